// `sinfo` -- Report the partitions and nodes of a Slurm cluster
//
// Run `sinfo --help` for brief help.

package main

import (
	"os"

	"github.com/SchedMD/slurm-sub064/cli"
	"github.com/SchedMD/slurm-sub064/sinfo"
)

func main() {
	os.Exit(cli.Main(sinfo.New(), os.Args[1:]))
}
