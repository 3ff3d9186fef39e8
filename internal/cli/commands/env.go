package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/cli/session"
	"github.com/fmcg-dev/fmcg/internal/cli/upload"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// API is everything the page commands call on the backend
type API interface {
	session.API
	upload.Uploader

	Summary(ctx context.Context) (*types.Summary, error)
	Brands(ctx context.Context) ([]string, error)
	Products(ctx context.Context, q client.ProductQuery) (*types.ProductPage, error)
	Product(ctx context.Context, mergeID string) (*types.ProductDetail, error)
	LowConfidence(ctx context.Context) ([]types.Product, error)
	AnalyticsData(ctx context.Context) (*types.AnalyticsData, error)
	ExportMasterStock(ctx context.Context, reportType string, w io.Writer) (int64, error)
	ResetDatabase(ctx context.Context, clearCache bool) (*types.ResetResult, error)
	TriggerLLMMastering(ctx context.Context, sheetName string) (*types.MasteringResult, error)
	ChatbotQuery(ctx context.Context, question, sessionID string) (*types.ChatResult, error)
}

var _ API = (*client.Client)(nil)

// Env carries the dependencies commands share. The root command connects it
// to a backend before any guarded command runs.
type Env struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader
	Log zerolog.Logger

	Server   *config.Server
	API      API
	Session  *session.Store
	Decision guard.Decision

	// Confirm asks a yes/no question. Declining is (false, nil).
	Confirm func(label string) (bool, error)
	// ReadPassword reads a password without echo
	ReadPassword func() (string, error)
	Now          func() time.Time
}

// NewEnv returns an Env wired to the terminal
func NewEnv() *Env {
	return &Env{
		Out:          os.Stdout,
		Err:          os.Stderr,
		In:           os.Stdin,
		Log:          zerolog.Nop(),
		Confirm:      promptConfirm,
		ReadPassword: readPassword,
		Now:          time.Now,
	}
}

// Navigate implements session.Navigator for the terminal
func (e *Env) Navigate(route session.Route) {
	switch route {
	case session.RouteHome:
		if err := e.showHome(context.Background()); err != nil {
			fmt.Fprintln(e.Err, render.Warning("could not load dashboard: "+err.Error()))
		}
	case session.RouteLogin:
		fmt.Fprintln(e.Out, render.Success("Logged out"))
		fmt.Fprintln(e.Out, render.Muted("Run 'fmcg login' to sign in."))
	}
}

func (e *Env) showHome(ctx context.Context) error {
	summary, err := e.API.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.Out)
	render.Summary(e.Out, e.Session.User(), summary)
	return nil
}

// backendAnnotation marks unguarded commands that still need a connected backend
const backendAnnotation = "fmcg.backend"

func withBackend(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[backendAnnotation] = "true"
	return cmd
}

// NeedsBackend reports whether cmd must be connected to a backend before it runs
func NeedsBackend(cmd *cobra.Command) bool {
	return guard.KindOf(cmd) != guard.Unguarded || cmd.Annotations[backendAnnotation] == "true"
}

func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func readPassword() (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or FMCG_PASSWORD env var)")
	}
	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// interrupted reports whether err is a user cancellation that should end the
// command quietly
func interrupted(err error) bool {
	return client.IsCanceled(err) || errors.Is(err, context.Canceled)
}
