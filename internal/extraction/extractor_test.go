package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/lioncrest/paneld/internal/logging"
)

// fakeModel replays a canned completion and records the prompt it saw.
type fakeModel struct {
	content  string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func newTestExtractor(t *testing.T, model *fakeModel) *Extractor {
	t.Helper()
	e, err := NewWithModel(model, logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("deal flow happy path", func(t *testing.T) {
		model := &fakeModel{content: `{
			"Company name": "Acme Robotics",
			"Email": "ceo@acme.example",
			"Revenue Run Rate": 4000000,
			"Financing Round": "Series A",
			"State": "Texas",
			"Referral Source": ["VC Fund"]
		}`}
		e := newTestExtractor(t, model)

		record, err := e.Extract(ctx, SchemaDealFlow, "Acme Robotics, Austin TX, $4M run rate, raising a Series A...")
		require.NoError(t, err)

		assert.Equal(t, "Acme Robotics", record["Company name"])
		assert.Equal(t, int64(4000000), record["Revenue Run Rate"])
		assert.Equal(t, []string{"VC Fund"}, record["Referral Source"])

		schema, _ := GetSchema(SchemaDealFlow)
		assert.Len(t, record, len(schema.Fields), "every schema column must be present")
		assert.Nil(t, record["Notes"], "absent fields come back null")
	})

	t.Run("prompt carries the field list and the text", func(t *testing.T) {
		model := &fakeModel{content: `{}`}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaNetwork, "Met Dana at the summit.")
		require.NoError(t, err)

		require.Len(t, model.messages, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
		assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)

		user := model.messages[1].Parts[0].(llms.TextContent).Text
		assert.Contains(t, user, "Extract the following fields for the network schema")
		assert.Contains(t, user, "- LinkedIn:")
		assert.Contains(t, user, "Met Dana at the summit.")
	})

	t.Run("bare string for a list field is coerced to a single-element list", func(t *testing.T) {
		model := &fakeModel{content: `{"Referral Source": "Inbound"}`}
		e := newTestExtractor(t, model)

		record, err := e.Extract(ctx, SchemaDealFlow, "inbound deal")
		require.NoError(t, err)
		assert.Equal(t, []string{"Inbound"}, record["Referral Source"])
	})

	t.Run("markdown fences are stripped", func(t *testing.T) {
		model := &fakeModel{content: "```json\n{\"Name\": \"Dana\"}\n```"}
		e := newTestExtractor(t, model)

		record, err := e.Extract(ctx, SchemaNetwork, "Dana")
		require.NoError(t, err)
		assert.Equal(t, "Dana", record["Name"])
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		model := &fakeModel{content: `{"Valuation": "10M"}`}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaDealFlow, "some deal")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Valuation", verr.Field)
	})

	t.Run("enum violations are rejected", func(t *testing.T) {
		model := &fakeModel{content: `{"Financing Round": "Series Z"}`}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaDealFlow, "some deal")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Financing Round", verr.Field)
		assert.Contains(t, verr.Error(), "Series Z")
	})

	t.Run("fractional integer is rejected", func(t *testing.T) {
		model := &fakeModel{content: `{"Revenue Run Rate": 4.5}`}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaDealFlow, "some deal")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Revenue Run Rate", verr.Field)
	})

	t.Run("non-object output fails cleanly", func(t *testing.T) {
		model := &fakeModel{content: "I could not extract anything."}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaNetwork, "text")
		assert.ErrorContains(t, err, "parseable object")
	})

	t.Run("empty text is rejected before the llm is called", func(t *testing.T) {
		model := &fakeModel{content: `{}`}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaNetwork, "   ")
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Nil(t, model.messages)
	})

	t.Run("unsupported schema type is rejected", func(t *testing.T) {
		e := newTestExtractor(t, &fakeModel{content: `{}`})

		_, err := e.Extract(ctx, "crm", "text")
		assert.ErrorContains(t, err, "unsupported schema_type")
	})

	t.Run("llm errors are wrapped", func(t *testing.T) {
		model := &fakeModel{err: errors.New("upstream unavailable")}
		e := newTestExtractor(t, model)

		_, err := e.Extract(ctx, SchemaNetwork, "text")
		assert.ErrorContains(t, err, "llm call")
	})
}

func TestFieldsBlock(t *testing.T) {
	s, err := GetSchema(SchemaVCFund)
	require.NoError(t, err)

	block := fieldsBlock(s)
	assert.True(t, strings.HasPrefix(block, "Extract the following fields for the vc_fund schema:"))
	assert.Contains(t, block, "- Check Size:")
	assert.Contains(t, block, "one of: ")
}
