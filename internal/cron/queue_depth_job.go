package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/posrelay/pkg/logger"
)

// QueueDepthJobParams wires the queue depth sampler.
type QueueDepthJobParams struct {
	Logger  *logger.Logger
	Centres centreLister
	Queue   depthReader
	Gauge   depthGauge
}

type centreLister interface {
	Centres(ctx context.Context) ([]string, error)
}

type depthReader interface {
	Depth(ctx context.Context, centre string) (int64, error)
}

type depthGauge interface {
	SetQueueDepth(centre string, depth int64)
}

// NewQueueDepthJob samples every centre's sales queue depth into a gauge.
// It only reads; queues and audit trails are never touched.
func NewQueueDepthJob(params QueueDepthJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Centres == nil {
		return nil, fmt.Errorf("centre lister required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("queue reader required")
	}
	if params.Gauge == nil {
		return nil, fmt.Errorf("depth gauge required")
	}
	return &queueDepthJob{
		logg:    params.Logger,
		centres: params.Centres,
		queue:   params.Queue,
		gauge:   params.Gauge,
	}, nil
}

type queueDepthJob struct {
	logg    *logger.Logger
	centres centreLister
	queue   depthReader
	gauge   depthGauge
}

func (j *queueDepthJob) Name() string { return "queue-depth" }

func (j *queueDepthJob) Run(ctx context.Context) error {
	centres, err := j.centres.Centres(ctx)
	if err != nil {
		return fmt.Errorf("list centres: %w", err)
	}
	var total int64
	for _, centre := range centres {
		depth, err := j.queue.Depth(ctx, centre)
		if err != nil {
			return fmt.Errorf("queue depth for %s: %w", centre, err)
		}
		j.gauge.SetQueueDepth(centre, depth)
		total += depth
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"centres":      len(centres),
		"queued_sales": total,
	}), "queue depth sampled")
	return nil
}
