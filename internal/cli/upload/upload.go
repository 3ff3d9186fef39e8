// Package upload validates spreadsheets and drives a single upload through
// its lifecycle: idle, uploading, then success, error or cancelled.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fmcg-dev/fmcg/internal/cli/catalog"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// MaxFileSize is the largest spreadsheet accepted (100 MiB)
const MaxFileSize = 100 << 20

// CancelledMessage is reported when the user stops an upload
const CancelledMessage = "Upload cancelled by user"

var (
	ErrUnsupportedType = errors.New("please select a valid Excel file (.xlsx or .xls)")
	ErrTooLarge        = errors.New("file size must be less than 100MB")
)

var allowedExtensions = []string{".xlsx", ".xls"}

// Validate checks a file name and size before anything is sent
func Validate(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	ok := false
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedType)
	}
	if size > MaxFileSize {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrTooLarge)
	}
	return nil
}

// State is the upload lifecycle position
type State int

const (
	StateIdle State = iota
	StateUploading
	StateSuccess
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Uploader is the API surface an upload needs
type Uploader interface {
	UploadExcel(ctx context.Context, filename string, file io.Reader, size int64, progress client.ProgressFunc) (*types.UploadResult, error)
}

// Outcome is the terminal result of Run
type Outcome struct {
	State   State
	Result  *types.UploadResult
	Message string
	Err     error
}

// Session runs one upload at a time and can be cancelled from another goroutine
type Session struct {
	api        Uploader
	log        zerolog.Logger
	onProgress func(percent int)

	mu       sync.Mutex
	state    State
	progress int
	cancel   context.CancelFunc
}

// Option configures a Session
type Option func(*Session)

// WithProgress receives the upload percentage as bytes are sent
func WithProgress(fn func(percent int)) Option {
	return func(s *Session) { s.onProgress = fn }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession creates an idle upload session
func NewSession(api Uploader, opts ...Option) *Session {
	s := &Session{api: api, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle position
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the last reported percentage
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Cancel aborts an in-flight upload. It is a no-op otherwise.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RunFile validates and uploads the file at path
func (s *Session) RunFile(ctx context.Context, path string) Outcome {
	info, err := os.Stat(path)
	if err != nil {
		return Outcome{State: StateIdle, Message: err.Error(), Err: err}
	}
	if err := Validate(path, info.Size()); err != nil {
		return Outcome{State: StateIdle, Message: err.Error(), Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return Outcome{State: StateIdle, Message: err.Error(), Err: err}
	}
	defer f.Close()

	return s.Run(ctx, filepath.Base(path), f, info.Size())
}

// Run uploads r. Validation failures leave the session idle without a request.
// Cancellation through ctx or Cancel ends in StateCancelled, never StateError.
func (s *Session) Run(ctx context.Context, name string, r io.Reader, size int64) Outcome {
	if err := Validate(name, size); err != nil {
		return Outcome{State: StateIdle, Message: err.Error(), Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state == StateUploading {
		s.mu.Unlock()
		err := errors.New("an upload is already in progress")
		return Outcome{State: StateUploading, Message: err.Error(), Err: err}
	}
	s.state = StateUploading
	s.progress = 0
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Debug().Str("file", name).Int64("size", size).Msg("upload started")

	result, err := s.api.UploadExcel(ctx, name, r, size, s.report)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	switch {
	case err == nil:
		s.state = StateSuccess
		s.progress = 100
		return Outcome{State: StateSuccess, Result: result}
	case client.IsCanceled(err) || errors.Is(err, context.Canceled):
		s.state = StateCancelled
		s.progress = 0
		s.log.Info().Str("file", name).Msg("upload cancelled")
		return Outcome{State: StateCancelled, Message: CancelledMessage, Err: err}
	default:
		s.state = StateError
		s.log.Warn().Err(err).Str("file", name).Msg("upload failed")
		return Outcome{State: StateError, Message: err.Error(), Err: err}
	}
}

// Reset returns a finished session to idle
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUploading {
		s.state = StateIdle
		s.progress = 0
	}
}

func (s *Session) report(sent, total int64) {
	p := catalog.Percent(float64(sent), float64(total))
	s.mu.Lock()
	changed := p != s.progress
	s.progress = p
	s.mu.Unlock()
	if changed && s.onProgress != nil {
		s.onProgress(p)
	}
}
