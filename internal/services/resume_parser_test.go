package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRemoteResumeParser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("remove_emails"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cv.pdf", header.Filename)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  Ada Lovelace\nada@example.com "})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "stored.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	p, err := NewResumeParser(ParserModeRemote, server.URL+"/parse?remove_emails=false", nil, zap.NewNop())
	require.NoError(t, err)

	text, err := p.Parse(context.Background(), path, "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nada@example.com", text)
}

func TestRemoteResumeParserErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "stored.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	p, err := NewResumeParser(ParserModeRemote, server.URL, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Parse(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLocalResumeParserDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Grace Hopper</w:t></w:r></w:p>
<w:p><w:r><w:t>grace@</w:t></w:r><w:r><w:t>navy.mil</w:t></w:r></w:p>
<w:p></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p, err := NewResumeParser(ParserModeLocal, "", NewDocumentTextExtractor(), zap.NewNop())
	require.NoError(t, err)

	text, err := p.Parse(context.Background(), path, "cv.docx")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper\ngrace@navy.mil", text)
}

func TestLocalResumeParserUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	_, err := NewDocumentTextExtractor().ExtractText(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUnknownParserMode(t *testing.T) {
	_, err := NewResumeParser("ocr", "", nil, zap.NewNop())
	assert.Error(t, err)
}
