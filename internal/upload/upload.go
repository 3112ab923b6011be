package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrTooLarge    = errors.New("upload: file too large")
	ErrMissingFile = errors.New("upload: missing file field")
)

// Store writes uploaded media to a local directory and hands back the
// URL clients use to reference it.
type Store struct {
	dir        string
	publicBase string
	maxBytes   int64
	log        *slog.Logger
}

func NewStore(dir, publicBase string, maxBytes int64, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	return &Store{dir: dir, publicBase: strings.TrimSuffix(publicBase, "/"), maxBytes: maxBytes, log: log}, nil
}

// Save persists one multipart file under a fresh name, keeping only
// the original extension. Returns the public URL.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + sanitizeExt(fh.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// LimitReader guards against a lying Content-Length.
	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	if n > s.maxBytes {
		os.Remove(dst.Name())
		return "", ErrTooLarge
	}

	return s.publicBase + "/" + name, nil
}

// Handler accepts a multipart POST with a "file" field and responds
// with {"url": ...} or {"error": ...}.
func (s *Store) Handler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrMissingFile.Error()})
		return
	}

	url, err := s.Save(fh)
	switch {
	case errors.Is(err, ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("upload failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
