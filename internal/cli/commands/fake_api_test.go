package commands

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmcg-dev/fmcg/internal/cli/auth"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/session"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// fakeAPI is an in-memory backend. Unset results fall back to empty values.
type fakeAPI struct {
	calls []string

	loginResp *types.LoginResponse
	loginErr  error
	verify    *types.VerifyResponse
	logoutErr error

	summary      *types.Summary
	brands       []string
	products     []types.Product
	detail       *types.ProductDetail
	lowConf      []types.Product
	analytics    *types.AnalyticsData
	analyticsErr error
	exportBody   string
	exportErr    error
	reset        *types.ResetResult
	uploadResult *types.UploadResult
	uploadBlock  bool
	uploadSeen   chan struct{}
	mastering    *types.MasteringResult
	chat         *types.ChatResult

	lastQuery      client.ProductQuery
	lastClearCache bool
	lastReportType string
}

func (f *fakeAPI) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeAPI) called(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	f.record("login")
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.record("logout")
	return f.logoutErr
}

func (f *fakeAPI) Verify(ctx context.Context, token string) (*types.VerifyResponse, error) {
	f.record("verify")
	if f.verify == nil {
		return &types.VerifyResponse{Status: "error"}, nil
	}
	return f.verify, nil
}

func (f *fakeAPI) Summary(ctx context.Context) (*types.Summary, error) {
	f.record("summary")
	if f.summary == nil {
		return &types.Summary{}, nil
	}
	return f.summary, nil
}

func (f *fakeAPI) Brands(ctx context.Context) ([]string, error) {
	f.record("brands")
	return f.brands, nil
}

// Products pages over f.products the way the backend does
func (f *fakeAPI) Products(ctx context.Context, q client.ProductQuery) (*types.ProductPage, error) {
	f.record("products")
	f.lastQuery = q
	limit := q.Limit
	if limit <= 0 {
		limit = client.DefaultPageSize
	}
	start := min(q.Skip, len(f.products))
	end := min(start+limit, len(f.products))
	return &types.ProductPage{
		Products: append([]types.Product(nil), f.products[start:end]...),
		Total:    len(f.products),
		Limit:    limit,
		Skip:     q.Skip,
	}, nil
}

func (f *fakeAPI) Product(ctx context.Context, mergeID string) (*types.ProductDetail, error) {
	f.record("product")
	if f.detail == nil || f.detail.MergeID != mergeID {
		return nil, &client.APIError{StatusCode: 404, Message: "Product not found", FromBackend: true}
	}
	return f.detail, nil
}

func (f *fakeAPI) LowConfidence(ctx context.Context) ([]types.Product, error) {
	f.record("low-confidence")
	return f.lowConf, nil
}

func (f *fakeAPI) AnalyticsData(ctx context.Context) (*types.AnalyticsData, error) {
	f.record("analytics")
	return f.analytics, f.analyticsErr
}

func (f *fakeAPI) ExportMasterStock(ctx context.Context, reportType string, w io.Writer) (int64, error) {
	f.record("export")
	f.lastReportType = reportType
	if f.exportErr != nil {
		return 0, f.exportErr
	}
	n, err := io.Copy(w, strings.NewReader(f.exportBody))
	return n, err
}

func (f *fakeAPI) ResetDatabase(ctx context.Context, clearCache bool) (*types.ResetResult, error) {
	f.record("reset")
	f.lastClearCache = clearCache
	return f.reset, nil
}

func (f *fakeAPI) UploadExcel(ctx context.Context, filename string, file io.Reader, size int64, progress client.ProgressFunc) (*types.UploadResult, error) {
	f.record("upload")
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, err
	}
	progress(size, size)
	if f.uploadBlock {
		close(f.uploadSeen)
		<-ctx.Done()
		return nil, client.ErrCanceled
	}
	return f.uploadResult, nil
}

func (f *fakeAPI) TriggerLLMMastering(ctx context.Context, sheetName string) (*types.MasteringResult, error) {
	f.record("process:" + sheetName)
	if f.mastering == nil {
		return &types.MasteringResult{SheetName: sheetName}, nil
	}
	return f.mastering, nil
}

func (f *fakeAPI) ChatbotQuery(ctx context.Context, question, sessionID string) (*types.ChatResult, error) {
	f.record("chat")
	return f.chat, nil
}

// testEnv returns an Env connected to api as an authenticated user
func testEnv(t *testing.T, api *fakeAPI) (*Env, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	tokens := auth.NewMemoryStore()
	if err := tokens.SaveToken("http://backend", "T"); err != nil {
		t.Fatal(err)
	}
	if api.verify == nil {
		api.verify = &types.VerifyResponse{Status: "success", User: &types.User{Name: "Demo", Email: "demo@example.com"}}
	}

	env := &Env{
		Out:          out,
		Err:          io.Discard,
		In:           strings.NewReader(""),
		Log:          zerolog.Nop(),
		Server:       &config.Server{Alias: "test", URL: "http://backend"},
		API:          api,
		Confirm:      func(string) (bool, error) { return false, nil },
		ReadPassword: func() (string, error) { return "secret", nil },
		Now:          func() time.Time { return time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC) },
	}
	env.Session = session.New(api, tokens, "http://backend", session.WithNavigator(env))
	env.Decision = guard.Decide(guard.Protected, env.Session.CheckAuth(context.Background()))
	api.calls = nil
	return env, out
}

func conf(v float64) *float64 { return &v }
