package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/chat"
	"github.com/fmcg-dev/fmcg/internal/cli/guard"
)

// NewChatCmd creates the chat command
func NewChatCmd(env *Env) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask the AI product assistant",
		Long: `Ask the AI product assistant about your product data.

With a question, prints one answer and exits. Without one, starts an
interactive conversation; type /help for commands.`,
		Example: `  fmcg chat "Which products were merged the most?"
  fmcg chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []chat.Option{chat.WithLogger(env.Log)}
			if plain {
				opts = append(opts, chat.WithPlainText())
			}
			s := chat.New(env.API, env.Out, opts...)

			if len(args) > 0 {
				_, err := s.Ask(cmd.Context(), strings.Join(args, " "))
				if err != nil && interrupted(err) {
					return nil
				}
				return err
			}
			return s.Run(cmd.Context(), env.In)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print answers without markdown rendering")

	return guard.Mark(cmd, guard.Protected)
}
