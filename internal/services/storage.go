package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidExtension = errors.New("only .pdf and .docx resumes are accepted")
	ErrFileTooLarge     = errors.New("file exceeds the upload size limit")
)

var allowedResumeExt = map[string]bool{
	".pdf":  true,
	".docx": true,
}

type StorageService interface {
	SaveFile(file *multipart.FileHeader, sessionID string) (string, string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	PurgeOlderThan(maxAge time.Duration, now time.Time) (int, error)
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath  string
	maxFileSize int64
}

func NewStorageService(uploadPath string, maxFileSize int64) StorageService {
	return &storageService{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveFile stores an uploaded resume as resume_<session>_<uuid><ext> and
// returns the stored filename and its full path.
func (s *storageService) SaveFile(file *multipart.FileHeader, sessionID string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedResumeExt[ext] {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return "", "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.Size)
	}

	uniqueFilename := fmt.Sprintf("resume_%s_%s%s", sessionID, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}

func (s *storageService) DeleteFile(filename string) error {
	if err := os.Remove(s.GetFilePath(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PurgeOlderThan removes stored uploads last modified before now-maxAge.
func (s *storageService) PurgeOlderThan(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.uploadPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !allowedResumeExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.DeleteFile(e.Name()); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
