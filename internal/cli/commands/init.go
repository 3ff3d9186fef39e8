package commands

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd(env *Env) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init [backend-url]",
		Short: "Add a backend to ./" + config.ConfigFileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backendURL := config.DefaultAPIURL
			if len(args) > 0 {
				backendURL = args[0]
			}
			return runInit(env, backendURL, alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Name for this backend (default local, then server-N)")

	return cmd
}

func runInit(env *Env, backendURL, alias string) error {
	backendURL = strings.TrimRight(strings.TrimSpace(backendURL), "/")
	u, err := url.Parse(backendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend URL %q (expected http(s)://host[:port])", backendURL)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(env.Out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Servers: []config.Server{}}
		isNewConfig = true
	}

	if _, err := cfg.GetServerByURL(backendURL); err == nil {
		fmt.Fprintf(env.Out, "Backend %s already exists in %s\n", backendURL, config.ConfigFileName)
		return nil
	}

	if alias == "" {
		alias = "local"
		if len(cfg.Servers) > 0 {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias %q is already used in %s", alias, config.ConfigFileName)
	}

	cfg.Servers = append(cfg.Servers, config.Server{Alias: alias, URL: backendURL})
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(env.Out, "✓ Created ./%s with backend %s (%s)\n", config.ConfigFileName, backendURL, alias)
	} else {
		fmt.Fprintf(env.Out, "✓ Added backend %s (%s) to ./%s\n", backendURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(env.Out, "\nNext steps:")
	fmt.Fprintln(env.Out, "  1. Run 'fmcg login' to authenticate")
	fmt.Fprintln(env.Out, "  2. Run 'fmcg upload <file.xlsx>' to load stock data")

	return nil
}
