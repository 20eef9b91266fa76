package flows

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo_Triggers(t *testing.T) {
	g, err := Demo()
	require.NoError(t, err)

	for kw, want := range map[string]string{"hi": Welcome, "HELLO": Welcome, " hola ": Welcome} {
		node, ok := g.ResolveKeyword(kw)
		assert.True(t, ok, kw)
		assert.Equal(t, want, node, kw)
	}

	for event, want := range map[string]string{
		domain.EventWelcome:  Welcome,
		domain.EventRegister: Register,
		domain.EventSamples:  Samples,
		domain.EventMedia:    Media,
	} {
		node, ok := g.ResolveEvent(event)
		assert.True(t, ok, event)
		assert.Equal(t, want, node, event)
	}
}

func TestDemo_WelcomeBranchesToRegister(t *testing.T) {
	g := MustDemo()
	welcome, ok := g.Node(Welcome)
	require.True(t, ok)
	assert.True(t, welcome.HasBranch(Register))
	require.Len(t, welcome.Steps, 4)

	var captures []bool
	for _, step := range welcome.Steps {
		captures = append(captures, step.Capture)
	}
	assert.Equal(t, []bool{false, true, false, true}, captures)
	assert.Equal(t, "Do you want to register? Reply *yes* to continue", welcome.Steps[3].Message.Text)
}
