package guard

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/fmcg-dev/fmcg/internal/cli/session"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		kind  Kind
		state session.State
		want  Decision
	}{
		{Protected, session.StateLoading, Wait},
		{Public, session.StateLoading, Wait},
		{Protected, session.StateUnauthenticated, RedirectLogin},
		{Protected, session.StateAuthenticated, Render},
		{Public, session.StateAuthenticated, RedirectHome},
		{Public, session.StateUnauthenticated, Render},
		{Unguarded, session.StateLoading, Render},
		{Unguarded, session.StateUnauthenticated, Render},
	}

	for _, tt := range tests {
		got := Decide(tt.kind, tt.state)
		assert.Equal(t, tt.want, got, "Decide(%d, %s)", tt.kind, tt.state)
	}
}

func TestMarkAndKindOf(t *testing.T) {
	protected := Mark(&cobra.Command{Use: "products"}, Protected)
	public := Mark(&cobra.Command{Use: "login"}, Public)
	plain := &cobra.Command{Use: "version"}

	assert.Equal(t, Protected, KindOf(protected))
	assert.Equal(t, Public, KindOf(public))
	assert.Equal(t, Unguarded, KindOf(plain))

	Mark(protected, Unguarded)
	assert.Equal(t, Unguarded, KindOf(protected))
}
