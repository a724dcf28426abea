package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/repositories"
)

// UploadJanitor periodically removes stored resumes and their document rows
// once they are older than maxAge.
type UploadJanitor struct {
	storage   StorageService
	documents repositories.DocumentRepository
	schedule  string
	maxAge    time.Duration
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
}

func NewUploadJanitor(storage StorageService, documents repositories.DocumentRepository, schedule string, maxAge time.Duration, log *zap.Logger) *UploadJanitor {
	return &UploadJanitor{
		storage:   storage,
		documents: documents,
		schedule:  schedule,
		maxAge:    maxAge,
		cron:      cron.New(),
		now:       time.Now,
		log:       log,
	}
}

// Start schedules the purge. A zero maxAge disables it.
func (j *UploadJanitor) Start() error {
	if j.maxAge <= 0 {
		j.log.Info("Upload purge disabled")
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(); err != nil {
			j.log.Error("❌ Upload purge failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule upload purge: %w", err)
	}

	j.cron.Start()
	j.log.Info("🧹 Upload janitor started",
		zap.String("schedule", j.schedule),
		zap.Duration("max_age", j.maxAge))
	return nil
}

func (j *UploadJanitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// RunOnce purges expired uploads and returns how many files were removed.
func (j *UploadJanitor) RunOnce() (int, error) {
	now := j.now()
	files, err := j.storage.PurgeOlderThan(j.maxAge, now)
	if err != nil {
		return files, err
	}

	rows, err := j.documents.DeleteCreatedBefore(now.Add(-j.maxAge))
	if err != nil {
		return files, err
	}

	if files > 0 || rows > 0 {
		j.log.Info("🧹 Purged old uploads", zap.Int("files", files), zap.Int64("documents", rows))
	}
	return files, nil
}
