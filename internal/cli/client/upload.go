package client

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/fmcg-dev/fmcg/internal/types"
)

// ProgressFunc receives the number of bytes sent so far and the total size
type ProgressFunc func(sent, total int64)

// UploadExcel uploads a spreadsheet as multipart form data. It uses the
// long-running timeout and stops as soon as ctx is cancelled, in which case
// the error satisfies IsCanceled.
func (c *Client) UploadExcel(ctx context.Context, filename string, file io.Reader, size int64, progress ProgressFunc) (*types.UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := file
		if progress != nil {
			src = &progressReader{r: file, total: size, progress: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/upload/excel",
		body:        pr,
		contentType: mw.FormDataContentType(),
		long:        true,
	})
	// Unblock the writer goroutine if the transport stopped reading early
	pr.Close()
	if err != nil {
		return nil, err
	}

	var result types.UploadResult
	if err := decode(body, "data", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TriggerLLMMastering runs AI attribute extraction on an uploaded sheet
func (c *Client) TriggerLLMMastering(ctx context.Context, sheetName string) (*types.MasteringResult, error) {
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/process/llm-mastering/" + url.PathEscape(sheetName),
		long:   true,
	})
	if err != nil {
		return nil, err
	}

	var result types.MasteringResult
	if err := decode(body, "data", &result); err != nil {
		return nil, err
	}
	if result.SheetName == "" {
		result.SheetName = sheetName
	}
	return &result, nil
}

// progressReader reports bytes read through it
type progressReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.progress(p.sent, p.total)
	}
	return n, err
}
