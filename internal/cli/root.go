package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/auth"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/commands"
	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
	"github.com/fmcg-dev/fmcg/internal/cli/serverselect"
	"github.com/fmcg-dev/fmcg/internal/cli/session"
	"github.com/fmcg-dev/fmcg/internal/cli/userconfig"
	"github.com/fmcg-dev/fmcg/internal/logger"
)

var version = "dev" // Will be set during build

const envLogLevel = "FMCG_LOG_LEVEL"

var errEphemeralScope = errors.New("--ephemeral signs in from FMCG_EMAIL and FMCG_PASSWORD on each command and only applies to commands that need a session")

type rootOptions struct {
	env        *commands.Env
	tokens     auth.TokenStore
	httpClient *http.Client
	prompt     serverselect.Prompter
	logOut     io.Writer
}

// Option customizes the root command, mainly for tests
type Option func(*rootOptions)

// WithEnv replaces the terminal-bound command environment
func WithEnv(env *commands.Env) Option {
	return func(o *rootOptions) { o.env = env }
}

// WithTokenStore replaces the OS keyring
func WithTokenStore(tokens auth.TokenStore) Option {
	return func(o *rootOptions) { o.tokens = tokens }
}

// WithHTTPClient sets the HTTP client used for the backend
func WithHTTPClient(c *http.Client) Option {
	return func(o *rootOptions) { o.httpClient = c }
}

// WithPrompter replaces the interactive backend selector
func WithPrompter(p serverselect.Prompter) Option {
	return func(o *rootOptions) { o.prompt = p }
}

// NewRootCmd builds the fmcg command tree
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &rootOptions{
		env:    commands.NewEnv(),
		tokens: auth.Default,
		prompt: serverselect.PromptServerSelection,
		logOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	env := o.env

	var serverAlias, logLevel string
	var ephemeral bool

	rootCmd := &cobra.Command{
		Use:   "fmcg",
		Short: "fmcg - product-mastering dashboard in your terminal",
		Long: `fmcg CLI - Upload stock spreadsheets, run AI mastering, browse the
deduplicated product catalog and ask questions about your data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging(o.logOut, logLevel)
			env.Log = logger.GetLogger()

			if !commands.NeedsBackend(cmd) {
				return nil
			}

			tokens := o.tokens
			if ephemeral {
				if guard.KindOf(cmd) != guard.Protected {
					return errEphemeralScope
				}
				tokens = auth.NewMemoryStore()
			}
			return connect(cmd, env, o, tokens, serverAlias, ephemeral)
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverAlias, "server", "", "Backend alias or URL (overrides the selected backend)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (or set "+envLogLevel+")")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Sign in from FMCG_EMAIL/FMCG_PASSWORD for this command only, without storing a token")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "fmcg version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd(env))
	rootCmd.AddCommand(commands.NewSelectServerCmd(env, o.prompt))
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewDashboardCmd(env))
	rootCmd.AddCommand(commands.NewBrandsCmd(env))
	rootCmd.AddCommand(commands.NewProductsCmd(env))
	rootCmd.AddCommand(commands.NewProductCmd(env))
	rootCmd.AddCommand(commands.NewLowConfidenceCmd(env))
	rootCmd.AddCommand(commands.NewAnalyticsCmd(env))
	rootCmd.AddCommand(commands.NewUploadCmd(env))
	rootCmd.AddCommand(commands.NewProcessCmd(env))
	rootCmd.AddCommand(commands.NewExportCmd(env))
	rootCmd.AddCommand(commands.NewResetCmd(env))
	rootCmd.AddCommand(commands.NewChatCmd(env))

	rootCmd.SetOut(env.Out)
	rootCmd.SetErr(env.Err)

	return rootCmd
}

// initLogging picks the level from the flag, then the environment, then the
// user config; CLI logs default to warn
func initLogging(out io.Writer, flagLevel string) {
	level := flagLevel
	if level == "" {
		level = os.Getenv(envLogLevel)
	}
	if level == "" {
		if uc, err := userconfig.Load(); err == nil {
			level = uc.LogLevel
		}
	}
	if level == "" {
		level = "warn"
	}
	logger.InitWithWriter(out, level, "console")
}

// connect resolves the backend, verifies the stored session once and applies
// the command's guard
func connect(cmd *cobra.Command, env *commands.Env, o *rootOptions, tokens auth.TokenStore, serverAlias string, ephemeral bool) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'fmcg init' to create a configuration file", err)
	}

	resolver := &serverselect.Resolver{Prompt: o.prompt, Log: env.Log}
	server, err := resolver.Resolve(cfg, serverAlias)
	if err != nil {
		return err
	}
	env.Server = server

	var store *session.Store
	clientOpts := []client.Option{
		client.WithLogger(env.Log),
		client.WithTimeouts(cfg.Timeouts.Default, cfg.Timeouts.Long),
		client.WithTokenSource(client.TokenSourceFunc(func() string { return store.Token() })),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}
	api := client.New(server.URL, clientOpts...)
	env.API = api

	if ephemeral {
		if err := loginEphemeral(cmd.Context(), api, tokens, server.URL); err != nil {
			return err
		}
	}

	store = session.New(api, tokens, server.URL,
		session.WithNavigator(env),
		session.WithLogger(env.Log),
	)
	env.Session = store

	state := store.CheckAuth(cmd.Context())
	env.Decision = guard.Decide(guard.KindOf(cmd), state)
	env.Log.Debug().
		Str("command", cmd.Name()).
		Str("state", state.String()).
		Str("decision", env.Decision.String()).
		Msg("guard")

	switch env.Decision {
	case guard.Wait:
		return fmt.Errorf("session still loading, try again")
	case guard.RedirectLogin:
		return auth.ErrNoToken
	}
	return nil
}

// loginEphemeral signs in from the environment and leaves the token in the
// in-memory store, where CheckAuth picks it up like a persisted one
func loginEphemeral(ctx context.Context, api *client.Client, tokens auth.TokenStore, key string) error {
	email, password := os.Getenv("FMCG_EMAIL"), os.Getenv("FMCG_PASSWORD")
	if email == "" || password == "" {
		return errors.New("--ephemeral requires FMCG_EMAIL and FMCG_PASSWORD")
	}

	resp, err := api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("ephemeral login failed: %w", err)
	}
	if resp.SessionToken == "" {
		return errors.New("ephemeral login failed: no session token returned")
	}
	return tokens.SaveToken(key, resp.SessionToken)
}

// Execute runs the root command. Ctrl-C cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}
