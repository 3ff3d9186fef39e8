package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/serverselect"
	"github.com/fmcg-dev/fmcg/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd(env *Env, prompt serverselect.Prompter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the backend to use for commands",
		Long: `Select the backend to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ fmcg select-server                         # Interactive selection
  $ fmcg select-server http://localhost:8000   # Select by URL
  $ fmcg select-server production              # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(env, prompt, urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(env *Env, prompt serverselect.Prompter, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'fmcg init' to create a configuration file", err)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
	} else {
		server, err = prompt(cfg.Servers)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(env.Out, "Selected backend: %s (%s)\n", server.Alias, server.URL)
	return nil
}
