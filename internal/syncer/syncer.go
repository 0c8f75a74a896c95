package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/metrics"
	"github.com/Checker-Finance/erclient/internal/publisher"
	"github.com/Checker-Finance/erclient/pkg/model"
)

// ErrRunInProgress is returned by RunOnce while another run is active.
var ErrRunInProgress = errors.New("sync: run already in progress")

// Sink writes mapped rows.
type Sink interface {
	Upsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Watermarks stores the last fully-synced updated_at.
type Watermarks interface {
	Get(ctx context.Context, name string) (time.Time, bool, error)
	Advance(ctx context.Context, name string, t time.Time) error
	Reset(ctx context.Context, name string) error
}

// RunFunc performs a claimed run. With full set the watermark is dropped first
// so every event is re-read.
type RunFunc func(ctx context.Context, full bool) (model.SyncRun, error)

type Options struct {
	Table     string
	ChunkSize int
	// Lookback re-reads a window before the watermark to catch late writes.
	Lookback time.Duration
	States   []string
	Fields   FieldMap
	// Site tags published envelopes.
	Site     string
	Interval time.Duration
}

// Syncer copies updated EarthRanger events into Postgres on a schedule.
type Syncer struct {
	logger *zap.Logger
	src    EventSource
	sink   Sink
	marks  Watermarks
	pub    publisher.Publisher
	opts   Options

	running atomic.Bool
	mu      sync.RWMutex
	last    *model.SyncRun
	stopCh  chan struct{}
	stopped sync.Once
	now     func() time.Time
}

func New(logger *zap.Logger, src EventSource, sink Sink, marks Watermarks, pub publisher.Publisher, opts Options) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = publisher.Nop{}
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	return &Syncer{
		logger: logger,
		src:    src,
		sink:   sink,
		marks:  marks,
		pub:    pub,
		opts:   opts,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Start runs one sync immediately and then every Interval until ctx ends or Stop is called.
func (s *Syncer) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("sync.started",
		zap.String("table", s.opts.Table),
		zap.Duration("interval", s.opts.Interval))

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			s.logger.Info("sync.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			s.logger.Info("sync.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
		s.logger.Error("sync.run_failed", zap.Error(err))
	}
}

// Stop halts Start. Safe to call more than once.
func (s *Syncer) Stop() {
	s.stopped.Do(func() { close(s.stopCh) })
}

// Running reports whether a run is active.
func (s *Syncer) Running() bool { return s.running.Load() }

// Last returns the most recent completed run.
func (s *Syncer) Last() (model.SyncRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return model.SyncRun{}, false
	}
	return *s.last, true
}

// RunOnce performs one incremental sync. Chunk failures are collected and the
// watermark only advances when every chunk was written.
func (s *Syncer) RunOnce(ctx context.Context) (model.SyncRun, error) {
	run, ok := s.Claim()
	if !ok {
		return model.SyncRun{}, ErrRunInProgress
	}
	return run(ctx, false)
}

// Claim marks the syncer busy and returns the function that performs the run.
// ok is false while another run holds the claim. The claim is released when the
// returned function finishes; only its first call runs.
func (s *Syncer) Claim() (RunFunc, bool) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func(ctx context.Context, full bool) (model.SyncRun, error) {
		var (
			run model.SyncRun
			err error
		)
		once.Do(func() {
			defer s.running.Store(false)
			run, err = s.claimed(ctx, full)
		})
		return run, err
	}, true
}

func (s *Syncer) claimed(ctx context.Context, full bool) (model.SyncRun, error) {
	run := model.SyncRun{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	corr := uuid.MustParse(run.RunID)
	log := s.logger.With(zap.String("run_id", run.RunID), zap.String("table", s.opts.Table))

	var final error
	if full {
		if err := s.marks.Reset(ctx, s.opts.Table); err != nil {
			final = fmt.Errorf("reset watermark: %w", err)
		} else {
			log.Info("sync.watermark_reset")
		}
	}
	if final == nil {
		final = s.run(ctx, log, corr, &run)
	}

	run.FinishedAt = s.now().UTC()
	run.Duration = run.FinishedAt.Sub(run.StartedAt)
	metrics.ObserveDuration(metrics.SyncRunDuration, run.StartedAt, s.opts.Table)

	topic, eventType := model.TopicSyncCompleted, "er.sync.completed"
	if final != nil {
		run.Error = final.Error()
		topic, eventType = model.TopicSyncFailed, "er.sync.failed"
		metrics.IncError("sync", "run_failed")
	} else {
		metrics.SetLastSync(s.opts.Table, run.FinishedAt)
	}
	s.publish(ctx, log, topic, eventType, corr, run)

	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()

	log.Info("sync.run_finished",
		zap.Int("fetched", run.Fetched),
		zap.Int("upserted", run.Upserted),
		zap.Int("failed_chunks", run.FailedChunks),
		zap.Time("watermark", run.Watermark),
		zap.Duration("duration", run.Duration))
	return run, final
}

func (s *Syncer) run(ctx context.Context, log *zap.Logger, corr uuid.UUID, run *model.SyncRun) error {
	wm, ok, err := s.marks.Get(ctx, s.opts.Table)
	if err != nil {
		return fmt.Errorf("read watermark: %w", err)
	}
	if ok {
		run.Watermark = wm
		run.Since = wm.Add(-s.opts.Lookback)
	}
	log.Info("sync.run_started", zap.Time("since", run.Since))

	columns := s.opts.Fields.Columns()
	var errs *multierror.Error
	high := wm
	chunk := 0

	for events, err := range s.src.UpdatedEvents(ctx, run.Since, s.opts.States, s.opts.ChunkSize) {
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("fetch events: %w", err))
			break
		}
		chunk++
		run.Fetched += len(events)
		metrics.AddSyncRows(s.opts.Table, "fetched", len(events))

		rows := make([][]any, 0, len(events))
		ids := make([]string, 0, len(events))
		var chunkErr *multierror.Error
		for _, ev := range events {
			row, err := s.opts.Fields.Row(ev)
			if err != nil {
				chunkErr = multierror.Append(chunkErr, err)
				continue
			}
			rows = append(rows, row)
			ids = append(ids, ev.ID)
			if ev.UpdatedAt != nil && ev.UpdatedAt.After(high) {
				high = *ev.UpdatedAt
			}
		}

		if _, err := s.sink.Upsert(ctx, s.opts.Table, columns, rows); err != nil {
			chunkErr = multierror.Append(chunkErr, err)
		}
		if chunkErr.ErrorOrNil() != nil {
			run.FailedChunks++
			metrics.AddSyncRows(s.opts.Table, "failed", len(events))
			errs = multierror.Append(errs, fmt.Errorf("chunk %d: %w", chunk, chunkErr.ErrorOrNil()))
			log.Warn("sync.chunk_failed", zap.Int("chunk", chunk), zap.Error(chunkErr))
			continue
		}

		run.Upserted += len(rows)
		metrics.AddSyncRows(s.opts.Table, "upserted", len(rows))
		s.publish(ctx, log, model.TopicEventsSynced, "er.events.synced", corr, model.EventSynced{
			Table:    s.opts.Table,
			EventIDs: ids,
			Count:    len(ids),
			SyncedAt: s.now().UTC(),
		})
	}

	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	if high.After(wm) {
		if err := s.marks.Advance(ctx, s.opts.Table, high); err != nil {
			return fmt.Errorf("advance watermark: %w", err)
		}
		run.Watermark = high
	}
	return nil
}

// publish is best effort; failures are only logged.
func (s *Syncer) publish(ctx context.Context, log *zap.Logger, topic, eventType string, corr uuid.UUID, payload any) {
	env, err := model.NewEnvelope(topic, eventType, s.opts.Site, corr, payload)
	if err != nil {
		log.Warn("sync.envelope_failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := s.pub.PublishEnvelope(ctx, topic, env); err != nil {
		log.Warn("sync.publish_failed", zap.String("topic", topic), zap.Error(err))
	}
}
