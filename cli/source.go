package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/source"
	"github.com/SchedMD/slurm-sub064/source/kafka"
	"github.com/SchedMD/slurm-sub064/source/slurmrest"
	"github.com/SchedMD/slurm-sub064/source/sonar"
	"github.com/SchedMD/slurm-sub064/source/tsdb"
)

type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceSlurmrest
	SourceDatabase
	SourceKafka
	SourceFiles
)

func (k SourceKind) String() string {
	switch k {
	case SourceSlurmrest:
		return "slurmrestd"
	case SourceDatabase:
		return "database"
	case SourceKafka:
		return "kafka"
	case SourceFiles:
		return "sonar files"
	default:
		return "none"
	}
}

// ClassifySource decides which loader serves uri, and returns the part of the uri the loader wants.
func ClassifySource(uri string) (SourceKind, string, error) {
	if uri == "" {
		return SourceNone, "", nil
	}
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return SourceFiles, uri, nil
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		return SourceSlurmrest, uri, nil
	case "postgres", "postgresql":
		return SourceDatabase, uri, nil
	case "kafka":
		u, err := url.Parse(uri)
		if err != nil || u.Host == "" {
			return SourceNone, "", NewInvalidArgument("Invalid Kafka address: %s", uri)
		}
		return SourceKafka, u.Host, nil
	case "file":
		if rest == "" {
			return SourceNone, "", NewInvalidArgument("Invalid file source: %s", uri)
		}
		return SourceFiles, rest, nil
	default:
		return SourceNone, "", NewInvalidArgument("Unknown data source scheme: %s", scheme)
	}
}

// OpenSource connects to the data source.  Failing to reach it makes the snapshots unavailable.
func OpenSource(ctx context.Context, uri, cluster string) (source.Loader, error) {
	kind, addr, err := ClassifySource(uri)
	if err != nil {
		return nil, err
	}
	Log.Infof("Data source %s (%s)", addr, kind)
	var loader source.Loader
	switch kind {
	case SourceNone:
		return nil, NewInvalidArgument(
			"No data source: use --source, set SLURMTAB_SOURCE, or set uri in the [data-source] section of %s",
			IniFilename())
	case SourceSlurmrest:
		loader, err = slurmrest.New(&http.Client{}, addr)
	case SourceDatabase:
		loader, err = tsdb.Open(ctx, addr, cluster)
	case SourceKafka:
		loader, err = kafka.Open(addr, cluster)
	case SourceFiles:
		loader, err = sonar.NewFiles(addr)
	}
	if err != nil {
		return nil, NewSnapshotUnavailable(fmt.Errorf("Unable to open %s: %w", kind, err))
	}
	return loader, nil
}
