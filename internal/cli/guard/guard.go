// Package guard decides whether a command may render based on the
// authentication state. Decisions are pure; verification happens once,
// when the session store is checked.
package guard

import (
	"github.com/spf13/cobra"

	"github.com/fmcg-dev/fmcg/internal/cli/session"
)

// Kind classifies a view
type Kind int

const (
	// Unguarded views render regardless of auth state (version, init)
	Unguarded Kind = iota
	// Protected views require an authenticated session
	Protected
	// Public views are only for signed-out users (login)
	Public
)

// Decision is the guard outcome for a view
type Decision int

const (
	Wait Decision = iota
	Render
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Decide returns what a view of the given kind does in the given state
func Decide(kind Kind, state session.State) Decision {
	if kind == Unguarded {
		return Render
	}
	if state == session.StateLoading {
		return Wait
	}

	authenticated := state == session.StateAuthenticated
	switch kind {
	case Protected:
		if !authenticated {
			return RedirectLogin
		}
	case Public:
		if authenticated {
			return RedirectHome
		}
	}
	return Render
}

const annotationKey = "fmcg.guard"

// Mark annotates a command with its guard kind
func Mark(cmd *cobra.Command, kind Kind) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	switch kind {
	case Protected:
		cmd.Annotations[annotationKey] = "protected"
	case Public:
		cmd.Annotations[annotationKey] = "public"
	default:
		delete(cmd.Annotations, annotationKey)
	}
	return cmd
}

// KindOf returns the guard kind a command was marked with
func KindOf(cmd *cobra.Command) Kind {
	switch cmd.Annotations[annotationKey] {
	case "protected":
		return Protected
	case "public":
		return Public
	default:
		return Unguarded
	}
}
