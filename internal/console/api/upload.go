package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrUploadAborted marks a cancellation as distinct from network or
// server failures so callers can skip the error notice.
var ErrUploadAborted = errors.New("api: upload aborted")

// Upload posts the file at path as multipart form data. progress, if
// non-nil, receives percent complete in [0,100] as the body is read.
func (c *Client) Upload(ctx context.Context, path string, progress func(pct int)) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// The body is assembled up front; files here are capped well below
	// anything that would make streaming worth the complexity.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	pr := &progressReader{r: bytes.NewReader(buf.Bytes()), total: int64(buf.Len()), progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/uploads", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = int64(buf.Len())
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrUploadAborted
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", readError(resp)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.URL == "" {
		return "", errors.New("api: upload response missing url")
	}
	if progress != nil {
		progress(100)
	}
	return out.URL, nil
}

type progressReader struct {
	r        io.Reader
	total    int64
	read     atomic.Int64
	progress func(pct int)
	lastPct  int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.progress != nil && p.total > 0 {
		read := p.read.Add(int64(n))
		pct := int(read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.progress(pct)
		}
	}
	return n, err
}
