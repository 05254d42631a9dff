package board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/extraction"
	"github.com/lioncrest/paneld/internal/logging"
)

// boardAPI is a scriptable GraphQL endpoint standing in for the board
// service.
type boardAPI struct {
	*httptest.Server

	mu           sync.Mutex
	columnCalls  int
	lastAuth     string
	lastMutation map[string]any
	nameItems    []map[string]any
	emailItems   []map[string]any
	failWith     string
}

func newBoardAPI(t *testing.T) *boardAPI {
	t.Helper()
	api := &boardAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.Close)
	return api
}

func (a *boardAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastAuth = r.Header.Get("Authorization")

	var payload struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if a.failWith != "" {
		fmt.Fprintf(w, `{"errors":[{"message":%q}]}`, a.failWith)
		return
	}

	switch {
	case strings.Contains(payload.Query, "columns { id title }"):
		a.columnCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"boards": []map[string]any{{
					"id": "1",
					"columns": []map[string]string{
						{"id": "text_mkr56xn0", "title": "Email"},
						{"id": "dropdown_mkr5wcap", "title": "Financing Round"},
						{"id": "text_state", "title": "State"},
						{"id": "numbers_rrr", "title": "Revenue Run Rate"},
						{"id": "dropdown_refs", "title": "Referral Source"},
					},
				}},
			},
		})

	case strings.Contains(payload.Query, "create_item"):
		a.lastMutation = payload.Variables
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"create_item": map[string]string{"id": "901", "name": payload.Variables["item_name"].(string)},
			},
		})

	case strings.Contains(payload.Query, "change_multiple_column_values"):
		a.lastMutation = payload.Variables
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"change_multiple_column_values": map[string]string{"id": payload.Variables["item_id"].(string), "name": "Updated"},
			},
		})

	case strings.Contains(payload.Query, `column_id: "name"`):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"items_page_by_column_values": map[string]any{"items": a.nameItems},
			},
		})

	case strings.Contains(payload.Query, "$column_id"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"items_page_by_column_values": map[string]any{"items": a.emailItems},
			},
		})

	default:
		http.Error(w, "unexpected query", http.StatusBadRequest)
	}
}

func (a *boardAPI) mutationColumnValues(t *testing.T) map[string]any {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotNil(t, a.lastMutation)
	encoded, ok := a.lastMutation["column_values"].(string)
	require.True(t, ok, "column_values must be a JSON-encoded string")
	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &values))
	return values
}

func newTestClient(t *testing.T, api *boardAPI) *Client {
	t.Helper()
	cfg := config.BoardConfig{
		APIURL: api.URL,
		APIKey: config.Secret("board-key"),
		Boards: map[string]int64{
			"deal_flow":         9206286550,
			"lp_main_dashboard": 9511257597,
			"vc_fund":           551869329,
			"network":           1028643789,
		},
	}
	c, err := NewClient(cfg, logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	logger := logging.NewTestLogger().Logger

	_, err := NewClient(config.BoardConfig{APIKey: config.Secret("k")}, logger)
	assert.ErrorContains(t, err, "api url")

	_, err = NewClient(config.BoardConfig{APIURL: "https://example.test"}, logger)
	assert.ErrorContains(t, err, "api key")
}

func TestColumnTitles(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	c := newTestClient(t, api)

	titles, err := c.ColumnTitles(ctx, 9206286550)
	require.NoError(t, err)
	assert.Equal(t, "Email", titles["text_mkr56xn0"])

	_, err = c.ColumnTitles(ctx, 9206286550)
	require.NoError(t, err)
	assert.Equal(t, 1, api.columnCalls, "column map must be fetched once per board")

	assert.Equal(t, "board-key", api.lastAuth)
}

func TestItemsByEmail(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	api.emailItems = []map[string]any{{
		"id":   "42",
		"name": "Dana Example",
		"column_values": []map[string]any{
			{"id": "text_mkr56xn0", "text": "dana@example.com"},
			{"id": "text_state", "text": "Ohio"},
			{"id": "unknown_col", "text": nil},
		},
	}}
	c := newTestClient(t, api)

	items, err := c.ItemsByEmail(ctx, 1028643789, "dana@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "dana@example.com", item.Columns["Email"])
	assert.Equal(t, "Ohio", item.Columns["State"])
	assert.Equal(t, "", item.Columns["unknown_col"], "unresolved columns fall back to their id")

	flat := item.Flattened()
	assert.Equal(t, "Dana Example", flat["Name"])
	assert.Equal(t, "Ohio", flat["State"])
}

func TestFirstItemByName(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	c := newTestClient(t, api)

	t.Run("no match returns nil", func(t *testing.T) {
		item, err := c.FirstItemByName(ctx, extraction.SchemaDealFlow, "Ghost Co")
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("first of several matches", func(t *testing.T) {
		api.mu.Lock()
		api.nameItems = []map[string]any{
			{"id": "7", "name": "Acme Robotics", "column_values": []map[string]any{}},
			{"id": "8", "name": "Acme Robotics", "column_values": []map[string]any{}},
		}
		api.mu.Unlock()

		item, err := c.FirstItemByName(ctx, extraction.SchemaDealFlow, "Acme Robotics")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "7", item.ID)
	})
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	c := newTestClient(t, api)

	item, err := c.CreateItem(ctx, 9206286550, "Acme Robotics", map[string]any{
		"Email":            "ceo@acme.example",
		"Revenue Run Rate": int64(4000000),
		"Referral Source":  []string{"VC Fund"},
		"Financing Round":  nil,
		"Valuation":        "ignored, unknown column",
	})
	require.NoError(t, err)
	assert.Equal(t, "901", item.ID)
	assert.Equal(t, "Acme Robotics", item.Name)

	values := api.mutationColumnValues(t)
	assert.Equal(t, "ceo@acme.example", values["text_mkr56xn0"])
	assert.Equal(t, "4000000", values["numbers_rrr"], "numbers are sent as strings")
	assert.Equal(t, map[string]any{"labels": []any{"VC Fund"}}, values["dropdown_refs"])
	assert.NotContains(t, values, "dropdown_mkr5wcap", "nil values are omitted on create")
}

func TestUpdateItemClearsColumns(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	c := newTestClient(t, api)

	_, err := c.UpdateItem(ctx, 9206286550, "42", map[string]any{
		"Financing Round": nil,
	})
	require.NoError(t, err)

	values := api.mutationColumnValues(t)
	assert.Equal(t, "", values["dropdown_mkr5wcap"], "updates send empty values to clear columns")
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when nothing matches", func(t *testing.T) {
		api := newBoardAPI(t)
		c := newTestClient(t, api)

		item, created, err := c.Upsert(ctx, extraction.SchemaDealFlow, "Acme Robotics",
			map[string]any{"Email": "ceo@acme.example"}, "Acme Robotics")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "901", item.ID)
	})

	t.Run("updates a contact matched by email", func(t *testing.T) {
		api := newBoardAPI(t)
		api.emailItems = []map[string]any{{
			"id": "42", "name": "Dana Example", "column_values": []map[string]any{},
		}}
		c := newTestClient(t, api)

		item, created, err := c.Upsert(ctx, extraction.SchemaNetwork, "Dana Example",
			map[string]any{"State": "Ohio"}, "dana@example.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "42", item.ID)
	})

	t.Run("no lookup key always creates", func(t *testing.T) {
		api := newBoardAPI(t)
		api.nameItems = []map[string]any{{
			"id": "7", "name": "Acme Robotics", "column_values": []map[string]any{},
		}}
		c := newTestClient(t, api)

		_, created, err := c.Upsert(ctx, extraction.SchemaDealFlow, "Acme Robotics",
			map[string]any{}, "")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("unknown schema type fails", func(t *testing.T) {
		api := newBoardAPI(t)
		c := newTestClient(t, api)

		_, _, err := c.Upsert(ctx, "crm", "x", nil, "")
		assert.ErrorContains(t, err, "no board configured")
	})
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	api := newBoardAPI(t)
	api.failWith = "rate limit exceeded"
	c := newTestClient(t, api)

	_, err := c.ColumnTitles(ctx, 9206286550)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Error(), "rate limit exceeded")
}

func TestFormatColumnValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"nil becomes empty", nil, ""},
		{"string passes through", "Ohio", "Ohio"},
		{"integer becomes string", int64(4000000), "4000000"},
		{"list becomes labels", []string{"VC Fund", "LP"}, map[string][]string{"labels": {"VC Fund", "LP"}}},
		{"empty list becomes empty", []string{}, ""},
		{"bool becomes checked", true, map[string]string{"checked": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatColumnValue(tt.value))
		})
	}
}
