package fixup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fixup"
)

func TestEntityStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "detached", fixup.Detached.String())
	assert.Equal(t, "added", fixup.Added.String())
	assert.Equal(t, "unchanged", fixup.Unchanged.String())
	assert.Equal(t, "modified", fixup.Modified.String())
	assert.Equal(t, "deleted", fixup.Deleted.String())
	assert.Equal(t, "EntityState(9)", fixup.EntityState(9).String())
}

func TestParseEntityState(t *testing.T) {
	t.Parallel()

	for _, s := range []fixup.EntityState{fixup.Detached, fixup.Added, fixup.Unchanged, fixup.Modified, fixup.Deleted} {
		got, err := fixup.ParseEntityState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := fixup.ParseEntityState("archived")
	assert.EqualError(t, err, `fixup: unknown entity state "archived"`)

	var s fixup.EntityState
	require.NoError(t, s.UnmarshalText([]byte("modified")))
	assert.Equal(t, fixup.Modified, s)
}

func TestEntityStateTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to fixup.EntityState
		allowed  bool
	}{
		{fixup.Detached, fixup.Added, true},
		{fixup.Detached, fixup.Unchanged, true},
		{fixup.Detached, fixup.Modified, true},
		{fixup.Detached, fixup.Deleted, false},
		{fixup.Added, fixup.Deleted, true},
		{fixup.Unchanged, fixup.Modified, true},
		{fixup.Modified, fixup.Detached, true},
		{fixup.Deleted, fixup.Detached, true},
		{fixup.Deleted, fixup.Deleted, true},
		{fixup.Deleted, fixup.Unchanged, false},
		{fixup.Deleted, fixup.Added, false},
		{fixup.Added, fixup.EntityState(7), false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestEntityStateFixupParticipation(t *testing.T) {
	t.Parallel()

	assert.False(t, fixup.Detached.IsTracked())
	assert.True(t, fixup.Deleted.IsTracked())
	assert.False(t, fixup.Deleted.IsFixupTarget())
	for _, s := range fixup.States() {
		assert.True(t, s.IsFixupTarget(), s.String())
	}
}
