package fixup_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fixup"
)

func TestInvalidStateError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := fixup.NewInvalidStateError("Product", "attach", fixup.Deleted, fixup.Added)
		assert.Equal(t, "fixup: cannot attach Product from state deleted to added", err.Error())

		err = fixup.NewInvalidStateError("Product", "write", fixup.Deleted, fixup.Deleted)
		assert.Equal(t, "fixup: cannot write Product in state deleted", err.Error())
	})

	t.Run("IsInvalidState", func(t *testing.T) {
		err := fixup.NewInvalidStateError("Category", "attach", fixup.Deleted, fixup.Unchanged)
		assert.True(t, errors.Is(err, fixup.ErrInvalidState))
		assert.True(t, fixup.IsInvalidState(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, fixup.IsInvalidState(fixup.ErrInvalidState))
		assert.False(t, fixup.IsInvalidState(errors.New("other error")))
		assert.False(t, fixup.IsInvalidState(nil))
	})
}

func TestConflictingLinkageError(t *testing.T) {
	err := fixup.NewConflictingLinkageError("CategoryProducts", 78, 77, 99)
	assert.Equal(t, "fixup: relationship CategoryProducts: dependent 78 is linked to conflicting principals [77, 99]", err.Error())
	assert.True(t, errors.Is(err, fixup.ErrConflictingLinkage))
	assert.True(t, fixup.IsConflictingLinkage(fmt.Errorf("attach: %w", err)))
	assert.False(t, fixup.IsConflictingLinkage(fixup.ErrConfig))
	assert.False(t, fixup.IsConflictingLinkage(nil))
}

func TestConfigError(t *testing.T) {
	t.Run("WithName", func(t *testing.T) {
		err := fixup.NewConfigError("Product", "CategoryId", "no relationship uses this foreign key")
		assert.Equal(t, "fixup: Product.CategoryId: no relationship uses this foreign key", err.Error())
	})

	t.Run("WithoutName", func(t *testing.T) {
		err := fixup.NewConfigError("*main.Widget", "", "entity type is not part of the model")
		assert.Equal(t, "fixup: *main.Widget: entity type is not part of the model", err.Error())
		assert.True(t, fixup.IsConfigError(err))
		assert.True(t, errors.Is(err, fixup.ErrConfig))
	})
}

func TestIdentityConflictError(t *testing.T) {
	err := fixup.NewIdentityConflictError("Category", 77)
	assert.Equal(t, "fixup: another Category instance with key 77 is already tracked", err.Error())
	assert.True(t, fixup.IsIdentityConflict(err))
	assert.False(t, fixup.IsIdentityConflict(errors.New("x")))
}

func TestAggregateError(t *testing.T) {
	t.Run("nil when empty", func(t *testing.T) {
		assert.NoError(t, fixup.NewAggregateError(nil, nil))
	})

	t.Run("single error returned as-is", func(t *testing.T) {
		want := errors.New("only")
		assert.Same(t, want, fixup.NewAggregateError(nil, want))
	})

	t.Run("multiple errors", func(t *testing.T) {
		cfg := fixup.NewConfigError("Product", "CategoryId", "undeclared")
		err := fixup.NewAggregateError(errors.New("first"), cfg)
		require.Error(t, err)
		assert.Equal(t, "fixup: multiple errors:\n  [1] first\n  [2] fixup: Product.CategoryId: undeclared", err.Error())
		assert.True(t, fixup.IsConfigError(err))
	})
}
