package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(sessionID string)
}

// worker runs scoring jobs with bounded concurrency and sweeps active
// sessions for expired question deadlines.
type worker struct {
	interviews    InterviewService
	jobQueue      chan string
	concurrency   int
	sweepInterval time.Duration
	log           *zap.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewWorker(interviews InterviewService, concurrency int, sweepInterval time.Duration, log *zap.Logger) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	w := &worker{
		interviews:    interviews,
		jobQueue:      make(chan string, 100),
		concurrency:   concurrency,
		sweepInterval: sweepInterval,
		log:           log,
		pending:       make(map[string]struct{}),
		stopChan:      make(chan struct{}),
	}
	interviews.SetScoringQueue(w)
	return w
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting worker", zap.Int("concurrency", w.concurrency))

	if n, err := w.interviews.RecoverInterrupted(ctx); err != nil {
		w.log.Warn("⚠️ Failed to recover interrupted scoring", zap.Error(err))
	} else if n > 0 {
		w.log.Info("🩹 Marked interrupted scoring as failed", zap.Int("sessions", n))
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.sweepDeadlines(ctx)

	w.log.Info("✅ Worker started")
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker and ScoringQueue. A session already waiting
// in the queue is not added twice.
func (w *worker) EnqueueJob(sessionID string) {
	w.pendingMu.Lock()
	if _, ok := w.pending[sessionID]; ok {
		w.pendingMu.Unlock()
		return
	}
	w.pending[sessionID] = struct{}{}
	w.pendingMu.Unlock()

	select {
	case w.jobQueue <- sessionID:
		w.log.Debug("📥 Scoring job enqueued", zap.String("session_id", sessionID))
	case <-w.stopChan:
		w.release(sessionID)
		w.log.Warn("⚠️ Worker stopped, cannot enqueue job", zap.String("session_id", sessionID))
	}
}

func (w *worker) release(sessionID string) {
	w.pendingMu.Lock()
	delete(w.pending, sessionID)
	w.pendingMu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Worker stopped", zap.Int("worker", workerID))
			return
		case <-ctx.Done():
			return
		case sessionID := <-w.jobQueue:
			w.release(sessionID)
			w.log.Info("👷 Processing scoring job",
				zap.Int("worker", workerID),
				zap.String("session_id", sessionID))

			if err := w.interviews.ScoreSession(ctx, sessionID); err != nil {
				w.log.Error("❌ Scoring job failed",
					zap.Int("worker", workerID),
					zap.String("session_id", sessionID),
					zap.Error(err))
			}
		}
	}
}

func (w *worker) sweepDeadlines(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *worker) sweepOnce(ctx context.Context) int {
	ids, err := w.interviews.ActiveSessions(ctx)
	if err != nil {
		w.log.Warn("⚠️ Failed to list active sessions", zap.Error(err))
		return 0
	}

	expired := 0
	for _, id := range ids {
		ok, err := w.interviews.ExpireSession(ctx, id)
		if err != nil {
			w.log.Debug("Sweep skipped session", zap.String("session_id", id), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired
}
