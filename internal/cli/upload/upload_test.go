package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/types"
)

type fakeUploader struct {
	calls   int
	started chan struct{}
	block   bool
	err     error
	result  *types.UploadResult
}

func (f *fakeUploader) UploadExcel(ctx context.Context, filename string, file io.Reader, size int64, progress client.ProgressFunc) (*types.UploadResult, error) {
	f.calls++
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	half := int64(len(data) / 2)
	progress(half, size)
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return nil, &client.APIError{Message: "request cancelled", Err: errors.Join(client.ErrCanceled, ctx.Err())}
	}
	progress(size, size)
	return f.result, f.err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want error
	}{
		{"xlsx", "stock.xlsx", 1024, nil},
		{"xls upper case", "STOCK.XLS", 1024, nil},
		{"exactly the limit", "big.xlsx", MaxFileSize, nil},
		{"csv rejected", "stock.csv", 10, ErrUnsupportedType},
		{"no extension", "stock", 10, ErrUnsupportedType},
		{"too large", "huge.xlsx", MaxFileSize + 1, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_InvalidFileNeverReachesAPI(t *testing.T) {
	api := &fakeUploader{}
	s := NewSession(api)

	out := s.Run(context.Background(), "notes.txt", strings.NewReader("x"), 1)

	assert.Equal(t, StateIdle, out.State)
	assert.ErrorIs(t, out.Err, ErrUnsupportedType)
	assert.Equal(t, 0, api.calls)
	assert.Equal(t, StateIdle, s.State())
}

func TestRun_Success(t *testing.T) {
	api := &fakeUploader{result: &types.UploadResult{
		Filename: "stock.xlsx",
		Sheets:   []types.SheetResult{{SheetName: "stock", Rows: 10}},
	}}

	var mu sync.Mutex
	var seen []int
	s := NewSession(api, WithProgress(func(p int) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}))

	out := s.Run(context.Background(), "stock.xlsx", strings.NewReader("0123456789"), 10)

	require.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "stock", out.Result.Sheets[0].SheetName)
	assert.Equal(t, StateSuccess, s.State())
	assert.Equal(t, 100, s.Progress())
	assert.Equal(t, []int{50, 100}, seen)
}

func TestRun_FailureIsError(t *testing.T) {
	api := &fakeUploader{err: &client.APIError{StatusCode: 400, Message: "Invalid file format", FromBackend: true}}
	s := NewSession(api)

	out := s.Run(context.Background(), "stock.xlsx", strings.NewReader("data"), 4)

	assert.Equal(t, StateError, out.State)
	assert.Equal(t, "Invalid file format", out.Message)
}

func TestRun_CancelIsNotError(t *testing.T) {
	api := &fakeUploader{block: true, started: make(chan struct{})}
	s := NewSession(api)

	done := make(chan Outcome, 1)
	go func() {
		done <- s.Run(context.Background(), "stock.xlsx", strings.NewReader("data"), 4)
	}()

	<-api.started
	assert.Equal(t, StateUploading, s.State())
	s.Cancel()

	select {
	case out := <-done:
		assert.Equal(t, StateCancelled, out.State)
		assert.Equal(t, CancelledMessage, out.Message)
		assert.True(t, client.IsCanceled(out.Err))
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not stop after Cancel")
	}

	assert.Equal(t, StateCancelled, s.State())
	assert.Equal(t, 0, s.Progress())

	s.Reset()
	assert.Equal(t, StateIdle, s.State())
}

func TestRun_ParentContextCancel(t *testing.T) {
	api := &fakeUploader{block: true, started: make(chan struct{})}
	s := NewSession(api)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-api.started
		cancel()
	}()

	out := s.Run(ctx, "stock.xlsx", strings.NewReader("data"), 4)
	assert.Equal(t, StateCancelled, out.State)
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weekly.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("spreadsheet"), 0644))

	api := &fakeUploader{result: &types.UploadResult{Filename: "weekly.xlsx"}}
	out := NewSession(api).RunFile(context.Background(), path)
	assert.Equal(t, StateSuccess, out.State)

	out = NewSession(api).RunFile(context.Background(), filepath.Join(dir, "missing.xlsx"))
	assert.Equal(t, StateIdle, out.State)
	assert.Error(t, out.Err)
}
