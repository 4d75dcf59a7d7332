// Package worker runs a processor in a loop until its context is
// cancelled. The event relay uses it to own the Kafka connection off the
// request path.
package worker

import (
	"context"
	"log/slog"
)

type Config struct {
	Name      string
	Processor Processor
}

// Processor handles one unit of work per call. It must return promptly
// when ctx is cancelled.
type Processor interface {
	ProcessMessage(ctx context.Context)
}

type Worker struct {
	name      string
	processor Processor
}

func New(cfg Config) *Worker {
	return &Worker{
		name:      cfg.Name,
		processor: cfg.Processor,
	}
}

func (w *Worker) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Worker started...", "worker", w.name)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return
		default:
			w.processor.ProcessMessage(ctx)
		}
	}
}
