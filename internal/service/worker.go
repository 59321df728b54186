package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/output"
	"github.com/airenas/transcriber/internal/runner"
)

var (
	// ErrQueueFull is returned when no more jobs can be accepted
	ErrQueueFull = errors.New("queue is full")
	// ErrStopped is recorded for jobs left in the queue on exit
	ErrStopped = errors.New("service stopped")
)

// Worker runs queued jobs one by one
type Worker struct {
	store     Store
	loader    runner.Loader
	modelSize string
	queue     chan string
}

// NewWorker creates worker with a queue of queueSize jobs
func NewWorker(store Store, loader runner.Loader, modelSize string, queueSize int) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	if loader == nil {
		return nil, fmt.Errorf("no loader")
	}
	if modelSize == "" {
		return nil, fmt.Errorf("no model size")
	}
	if queueSize < 1 {
		return nil, fmt.Errorf("wrong queue size %d", queueSize)
	}
	return &Worker{store: store, loader: loader, modelSize: modelSize, queue: make(chan string, queueSize)}, nil
}

// Add enqueues the job, it does not block
func (w *Worker) Add(job *domain.Job) error {
	select {
	case w.queue <- job.ID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the processing loop until ctx is done.
// Jobs still queued on exit are marked failed and their audio is removed.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	res := make(chan struct{})
	go func() {
		defer close(res)
		for {
			select {
			case <-ctx.Done():
				w.drain()
				goapp.Log.Info().Msg("exit worker")
				return
			case id := <-w.queue:
				if ctx.Err() != nil {
					w.cancel(id)
					continue
				}
				if err := w.process(ctx, id); err != nil {
					goapp.Log.Error().Err(err).Str("id", id).Msg("can't process job")
				}
			}
		}
	}()
	return res
}

func (w *Worker) drain() {
	for {
		select {
		case id := <-w.queue:
			w.cancel(id)
		default:
			return
		}
	}
}

func (w *Worker) cancel(id string) {
	ctx := context.Background()
	job, err := w.store.GetJob(ctx, id)
	if err != nil {
		goapp.Log.Error().Err(err).Str("id", id).Msg("can't get job")
		return
	}
	removeFile(job.AudioFile)
	if err := w.update(ctx, job, domain.Failed, ErrStopped); err != nil {
		goapp.Log.Error().Err(err).Str("id", id).Msg("can't cancel job")
	}
}

func (w *Worker) process(ctx context.Context, id string) error {
	job, err := w.store.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	defer removeFile(job.AudioFile)

	if err := w.update(ctx, job, domain.Running, nil); err != nil {
		return err
	}
	goapp.Log.Info().Str("id", id).Msg("started")

	res, err := runner.Transcribe(ctx, runner.Config{AudioPath: job.AudioFile, ModelSize: w.modelSize,
		Language: job.Language}, w.loader)
	if err == nil {
		err = w.saveResult(ctx, id, res)
	}
	if err != nil {
		goapp.Log.Warn().Err(err).Str("id", id).Msg("failed")
		// ctx may be canceled already
		return w.update(context.WithoutCancel(ctx), job, domain.Failed, err)
	}
	goapp.Log.Info().Str("id", id).Msg("done")
	return w.update(ctx, job, domain.Done, nil)
}

func (w *Worker) saveResult(ctx context.Context, id string, res *domain.Result) error {
	data, err := output.Encode(res)
	if err != nil {
		return err
	}
	if err := w.store.SaveResult(ctx, id, data); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (w *Worker) update(ctx context.Context, job *domain.Job, state domain.State, jobErr error) error {
	job.State, job.Updated = state, time.Now()
	if jobErr != nil {
		job.Error = jobErr.Error()
	}
	if err := w.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		goapp.Log.Warn().Err(err).Str("file", path).Msg("can't remove")
	}
}
