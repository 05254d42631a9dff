package mailctx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScripter struct {
	result string
	err    error
	lastID int
}

func (f *fakeScripter) Eval(ctx context.Context, tabID int, expression string) (string, error) {
	f.lastID = tabID
	return f.result, f.err
}

func TestScriptResolver(t *testing.T) {
	t.Run("requires a scripter", func(t *testing.T) {
		_, err := NewScriptResolver(nil)
		assert.Error(t, err)
	})

	t.Run("returns attribute value", func(t *testing.T) {
		scripter := &fakeScripter{result: " thread-xyz "}
		r, err := NewScriptResolver(scripter)
		require.NoError(t, err)

		id, err := r.ThreadID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "thread-xyz", id)
		assert.Equal(t, 7, scripter.lastID)
	})

	t.Run("empty result is valid, not an error", func(t *testing.T) {
		r, err := NewScriptResolver(&fakeScripter{result: ""})
		require.NoError(t, err)

		id, err := r.ThreadID(context.Background(), 7)
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("wraps injection failures", func(t *testing.T) {
		r, err := NewScriptResolver(&fakeScripter{err: errors.New("no host permission")})
		require.NoError(t, err)

		_, err = r.ThreadID(context.Background(), 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tab 7")
	})
}
