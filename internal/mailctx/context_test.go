package mailctx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Hint
	}{
		{
			name: "thread view on second account",
			url:  "https://mail.google.com/mail/u/1/#inbox/1234567890ab",
			want: Hint{AccountIndex: 1, HasThread: true},
		},
		{
			name: "inbox list view",
			url:  "https://mail.google.com/mail/u/0/#inbox",
			want: Hint{AccountIndex: 0, HasThread: false},
		},
		{
			name: "no account segment defaults to zero",
			url:  "https://mail.google.com/mail/#inbox/18c2f9a7b3d4e5f6",
			want: Hint{AccountIndex: 0, HasThread: true},
		},
		{
			name: "non-numeric account segment defaults to zero",
			url:  "https://mail.google.com/mail/u/abc/#inbox",
			want: Hint{AccountIndex: 0, HasThread: false},
		},
		{
			name: "short fragment token is a view name",
			url:  "https://mail.google.com/mail/u/2/#starred",
			want: Hint{AccountIndex: 2, HasThread: false},
		},
		{
			name: "fragment token of exactly ten chars is not a thread",
			url:  "https://mail.google.com/mail/u/0/#inbox/abcdefghij",
			want: Hint{AccountIndex: 0, HasThread: false},
		},
		{
			name: "fragment token of eleven chars is a thread",
			url:  "https://mail.google.com/mail/u/0/#inbox/abcdefghijk",
			want: Hint{AccountIndex: 0, HasThread: true},
		},
		{
			name: "negative account segment defaults to zero",
			url:  "https://mail.google.com/mail/u/-3/#inbox",
			want: Hint{AccountIndex: 0, HasThread: false},
		},
		{
			name: "empty url",
			url:  "",
			want: Hint{},
		},
		{
			name: "malformed url",
			url:  "http://%zz/mail/u/1/",
			want: Hint{},
		},
		{
			name: "u as final segment",
			url:  "https://mail.google.com/mail/u",
			want: Hint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseURL(tt.url))
		})
	}
}

func TestThreadContextEqual(t *testing.T) {
	a := ThreadContext{ThreadID: "thread-xyz", AccountIndex: 1}
	assert.True(t, a.Equal(ThreadContext{ThreadID: "thread-xyz", AccountIndex: 1}))
	assert.False(t, a.Equal(ThreadContext{ThreadID: "thread-xyz", AccountIndex: 0}))
	assert.False(t, a.Equal(ThreadContext{ThreadID: "", AccountIndex: 1}))
}

func TestThreadContextJSON(t *testing.T) {
	t.Run("empty thread id marshals as null", func(t *testing.T) {
		out, err := json.Marshal(ThreadContext{AccountIndex: 2})
		require.NoError(t, err)
		assert.JSONEq(t, `{"threadId":null,"accountIndex":2}`, string(out))
	})

	t.Run("thread id round-trips", func(t *testing.T) {
		out, err := json.Marshal(ThreadContext{ThreadID: "thread-xyz", AccountIndex: 1})
		require.NoError(t, err)
		assert.JSONEq(t, `{"threadId":"thread-xyz","accountIndex":1}`, string(out))

		var got ThreadContext
		require.NoError(t, json.Unmarshal(out, &got))
		assert.Equal(t, ThreadContext{ThreadID: "thread-xyz", AccountIndex: 1}, got)
	})

	t.Run("null thread id unmarshals to empty", func(t *testing.T) {
		var got ThreadContext
		require.NoError(t, json.Unmarshal([]byte(`{"threadId":null,"accountIndex":0}`), &got))
		assert.Equal(t, ThreadContext{}, got)
	})
}
