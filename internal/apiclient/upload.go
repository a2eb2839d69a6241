package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Progress reports how much of an upload body has been sent.
type Progress struct {
	Loaded     int64
	Total      int64
	Percentage float64
}

type ProgressFunc func(Progress)

// Upload sends a file as multipart form data. Progress is reported per write
// via onProgress; auth and error handling follow the same contract as Request.
// The body is buffered so the single refresh-and-retry cycle can re-send it.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, out any, onProgress ProgressFunc) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("building upload body: %v", err)}
	}
	if _, err := io.Copy(part, r); err != nil {
		return &APIError{Message: fmt.Sprintf("reading upload payload: %v", err)}
	}
	if err := mw.Close(); err != nil {
		return &APIError{Message: fmt.Sprintf("finalizing upload body: %v", err)}
	}

	return c.do(ctx, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType(), out, newRequestMeta(path), onProgress)
}

// progressReader reports fractional progress as the request body is consumed.
type progressReader struct {
	r      *bytes.Reader
	total  int64
	loaded int64
	report ProgressFunc
}

func newProgressReader(payload []byte, report ProgressFunc) *progressReader {
	return &progressReader{
		r:      bytes.NewReader(payload),
		total:  int64(len(payload)),
		report: report,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		pct := 100.0
		if p.total > 0 {
			pct = float64(p.loaded) / float64(p.total) * 100
		}
		p.report(Progress{Loaded: p.loaded, Total: p.total, Percentage: pct})
	}
	return n, err
}
