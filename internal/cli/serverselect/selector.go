package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"

	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/userconfig"
)

// Prompter picks one server from the list. Tests swap it out.
type Prompter func(servers []config.Server) (*config.Server, error)

// Resolver determines which backend to use
type Resolver struct {
	Prompt Prompter
	Log    zerolog.Logger
}

// ResolveServer resolves with the interactive promptui selector
func ResolveServer(projectConfig *config.Config, serverAlias string) (*config.Server, error) {
	r := &Resolver{Prompt: PromptServerSelection, Log: zerolog.Nop()}
	return r.Resolve(projectConfig, serverAlias)
}

// Resolve determines which server to use based on the following priority:
// 1. If serverAlias flag is provided, use that server (alias or URL)
// 2. If user has a selected server in their local config, use that
// 3. If only one server in project config, use that
// 4. Otherwise, prompt user to select a server interactively
func (r *Resolver) Resolve(projectConfig *config.Config, serverAlias string) (*config.Server, error) {
	if serverAlias != "" {
		return projectConfig.GetServerByURLOrAlias(serverAlias)
	}

	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err == nil {
			return server, nil
		}
		// Selected server no longer exists in project config, clear it and continue
		_ = userconfig.SetSelectedServer("")
	}

	if len(projectConfig.Servers) == 1 {
		server := &projectConfig.Servers[0]
		r.remember(server)
		return server, nil
	}

	if r.Prompt == nil {
		return nil, fmt.Errorf("multiple servers configured, use --server to pick one")
	}
	server, err := r.Prompt(projectConfig.Servers)
	if err != nil {
		return nil, err
	}

	r.remember(server)
	return server, nil
}

func (r *Resolver) remember(server *config.Server) {
	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		r.Log.Warn().Err(err).Msg("failed to save selected server")
	}
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(servers []config.Server) (*config.Server, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(servers))
	for i := range servers {
		server := &servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a backend",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
