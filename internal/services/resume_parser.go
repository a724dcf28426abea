package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ParserModeRemote = "remote"
	ParserModeLocal  = "local"
)

// ResumeParser turns a stored resume file into plain text.
type ResumeParser interface {
	Parse(ctx context.Context, filePath, originalName string) (string, error)
}

// NewResumeParser picks the remote parsing service or in-process extraction.
func NewResumeParser(mode, url string, extractor DocumentTextExtractor, log *zap.Logger) (ResumeParser, error) {
	switch mode {
	case ParserModeRemote, "":
		return &remoteResumeParser{
			url:    url,
			client: &http.Client{Timeout: 60 * time.Second},
			log:    log,
		}, nil
	case ParserModeLocal:
		return &localResumeParser{extractor: extractor}, nil
	default:
		return nil, fmt.Errorf("unknown resume parser mode: %s", mode)
	}
}

type localResumeParser struct {
	extractor DocumentTextExtractor
}

func (p *localResumeParser) Parse(ctx context.Context, filePath, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.extractor.ExtractText(filePath)
}

type remoteResumeParser struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

type parseReply struct {
	Text string `json:"text"`
}

// Parse posts the file as multipart field "file" and reads {"text": ...}.
func (p *remoteResumeParser) Parse(ctx context.Context, filePath, originalName string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open resume: %w", err)
	}
	defer f.Close()

	if originalName == "" {
		originalName = filepath.Base(filePath)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", originalName)
	if err != nil {
		return "", fmt.Errorf("failed to build parse request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to build parse request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resume parser unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("resume parser returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var reply parseReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode parser reply: %w", err)
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return "", ErrEmptyDocument
	}

	p.log.Info("📄 Resume parsed",
		zap.String("file", originalName),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)))

	return text, nil
}
