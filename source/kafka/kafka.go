// Snapshot loader that follows the Sonar topics `<cluster>.cluster` and `<cluster>.jobs` on a Kafka
// broker.  The consumer starts at the last record of every partition, so the first snapshot is the
// most recently published one, and later loads pick up whatever has been published since.

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"
	"github.com/twmb/franz-go/pkg/kgo"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
	"github.com/SchedMD/slurm-sub064/source/sonar"
)

// How long a load waits for the first record of a kind.
const DefaultWait = 10 * time.Second

// How long a load polls for newer records once it has some.
const pollInterval = 500 * time.Millisecond

type Consumer struct {
	client  *kgo.Client
	cluster string
	wait    time.Duration
	disp    map[string]func(data []byte) error

	nodes *slurm.NodeSnapshot
	jobs  *slurm.JobSnapshot
	steps *slurm.StepSnapshot
}

var _ source.Loader = (*Consumer)(nil)

func newConsumer(cluster string) *Consumer {
	c := &Consumer{cluster: cluster, wait: DefaultWait}
	c.disp = map[string]func([]byte) error{
		ClusterTopic(cluster): c.handleCluster,
		JobsTopic(cluster):    c.handleJobs,
	}
	return c
}

func ClusterTopic(cluster string) string {
	return cluster + "." + string(newfmt.DataTagCluster)
}

func JobsTopic(cluster string) string {
	return cluster + "." + string(newfmt.DataTagJobs)
}

func Open(broker, cluster string) (*Consumer, error) {
	if cluster == "" {
		return nil, errors.New("A cluster name is required to consume from Kafka")
	}
	c := newConsumer(cluster)
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(ClusterTopic(cluster), JobsTopic(cluster)),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd().Relative(-1)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: Failed to create Kafka client: %w", cluster, err)
	}
	c.client = cl
	return c, nil
}

func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func (c *Consumer) dispatch(topic string, value []byte) error {
	if handler, found := c.disp[topic]; found {
		return handler(value)
	}
	return fmt.Errorf("%s: No handler for topic: %s", c.cluster, topic)
}

// Older records than the ones held are ignored, partitions may deliver out of order.
func (c *Consumer) handleCluster(data []byte) error {
	info := new(newfmt.ClusterEnvelope)
	if err := json.Unmarshal(data, info); err != nil {
		return err
	}
	if info.Data == nil {
		Log.Debugf("%s: Dropping a cluster error object on the floor", c.cluster)
		return nil
	}
	snap, err := sonar.NodeSnapshot(info)
	if err != nil {
		return err
	}
	if c.nodes == nil || snap.LastUpdate.After(c.nodes.LastUpdate) {
		c.nodes = snap
	}
	return nil
}

func (c *Consumer) handleJobs(data []byte) error {
	info := new(newfmt.JobsEnvelope)
	if err := json.Unmarshal(data, info); err != nil {
		return err
	}
	if info.Data == nil {
		Log.Debugf("%s: Dropping a jobs error object on the floor", c.cluster)
		return nil
	}
	jobs, steps, err := sonar.JobSnapshots(info)
	if err != nil {
		return err
	}
	if c.jobs == nil || jobs.LastUpdate.After(c.jobs.LastUpdate) {
		c.jobs = jobs
		c.steps = steps
	}
	return nil
}

// poll fetches what is available, waiting for up to `wait` if `have` is false.
func (c *Consumer) poll(ctx context.Context, have bool) error {
	wait := pollInterval
	if !have {
		wait = c.wait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return errors.New("Kafka client closed")
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
				continue
			}
			Log.Warningf("%s: Failed to fetch from %s: %v", c.cluster, fe.Topic, fe.Err)
		}
		n := 0
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			n++
			if err := c.dispatch(record.Topic, record.Value); err != nil {
				Log.Warningf("%s: Topic handler %s failed: %v", c.cluster, record.Topic, err)
			}
		}
		Log.Debugf("%s: %d records", c.cluster, n)
		if ctx.Err() != nil || n == 0 {
			return nil
		}
	}
}

func (c *Consumer) LoadNodes(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.NodeSnapshot, error) {
	if err := c.poll(ctx, c.nodes != nil); err != nil {
		return nil, err
	}
	if c.nodes == nil {
		return nil, fmt.Errorf("No data on topic %s", ClusterTopic(c.cluster))
	}
	if source.Unchanged(since, c.nodes.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return c.nodes, nil
}

func (c *Consumer) LoadJobs(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.JobSnapshot, error) {
	if err := c.poll(ctx, c.jobs != nil); err != nil {
		return nil, err
	}
	if c.jobs == nil {
		return nil, fmt.Errorf("No data on topic %s", JobsTopic(c.cluster))
	}
	if source.Unchanged(since, c.jobs.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return c.jobs, nil
}

func (c *Consumer) LoadSteps(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.StepSnapshot, error) {
	if err := c.poll(ctx, c.steps != nil); err != nil {
		return nil, err
	}
	if c.steps == nil {
		return nil, fmt.Errorf("No data on topic %s", JobsTopic(c.cluster))
	}
	if source.Unchanged(since, c.steps.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return c.steps, nil
}
