package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

func TestJanitorRunOnce(t *testing.T) {
	dir := t.TempDir()
	docs := repositories.NewDocumentRepository(testDB(t))
	j := NewUploadJanitor(NewStorageService(dir, 0), docs, "@hourly", 72*time.Hour, zap.NewNop())
	now := time.Now()
	j.now = func() time.Time { return now }

	oldPath := filepath.Join(dir, "old.pdf")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(oldPath, now.Add(-80*time.Hour), now.Add(-80*time.Hour)))
	require.NoError(t, docs.Create(&models.Document{ID: "old", Filename: "old.pdf", CreatedAt: now.Add(-80 * time.Hour)}))
	require.NoError(t, docs.Create(&models.Document{ID: "new", Filename: "new.pdf"}))

	removed, err := j.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldPath)

	_, err = docs.FindByID("old")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = docs.FindByID("new")
	assert.NoError(t, err)
}

func TestJanitorStartRejectsBadSchedule(t *testing.T) {
	j := NewUploadJanitor(NewStorageService(t.TempDir(), 0), nil, "every so often", time.Hour, zap.NewNop())
	assert.Error(t, j.Start())
}
