// Package board reads and writes items on the firm's monday-style
// board API. Columns are addressed by human titles; the client resolves
// them to column ids through a cached per-board lookup.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/extraction"
	"github.com/lioncrest/paneld/internal/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
)

const queryColumns = `
query ($board_id: [ID!]) {
  boards(ids: $board_id) {
    id
    columns { id title }
  }
}`

const queryByName = `
query ($board_id: ID!, $name: String!) {
  items_page_by_column_values(
    board_id: $board_id
    columns: [{ column_id: "name", column_values: [$name] }]
    limit: 25
  ) {
    items {
      id
      name
      column_values { id text type }
    }
  }
}`

const queryByColumn = `
query ($board_id: ID!, $column_id: String!, $value: String!) {
  items_page_by_column_values(
    board_id: $board_id
    columns: [{ column_id: $column_id, column_values: [$value] }]
    limit: 25
  ) {
    items {
      id
      name
      column_values { id text type }
    }
  }
}`

const mutationCreateItem = `
mutation ($board_id: ID!, $item_name: String!, $column_values: JSON!) {
  create_item(
    board_id: $board_id
    item_name: $item_name
    column_values: $column_values
  ) {
    id
    name
  }
}`

const mutationUpdateItem = `
mutation ($board_id: ID!, $item_id: ID!, $column_values: JSON!) {
  change_multiple_column_values(
    board_id: $board_id
    item_id: $item_id
    column_values: $column_values
  ) {
    id
    name
  }
}`

// Item is a board item with its columns keyed by title.
type Item struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Columns map[string]string `json:"columns,omitempty"`
}

// Flattened merges the item name and its columns into one map, the
// shape panels render directly.
func (i *Item) Flattened() map[string]string {
	if i == nil {
		return nil
	}
	flat := make(map[string]string, len(i.Columns)+1)
	flat["Name"] = i.Name
	for title, text := range i.Columns {
		flat[title] = text
	}
	return flat
}

// APIError is a GraphQL-level failure returned by the board API.
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return "board API error(s): " + strings.Join(e.Messages, "; ")
}

// Client talks to the board API. Safe for concurrent use.
type Client struct {
	apiURL     string
	apiKey     string
	boards     map[string]int64
	httpClient *http.Client
	logger     *logging.Logger

	mu          sync.Mutex
	columnCache map[int64]map[string]string
}

// NewClient creates a board client from configuration.
func NewClient(cfg config.BoardConfig, logger *logging.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("board api url required")
	}
	if cfg.APIKey.Value() == "" {
		return nil, errors.New("board api key required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Client{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey.Value(),
		boards:      cfg.Boards,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger.Named("board"),
		columnCache: make(map[int64]map[string]string),
	}, nil
}

// BoardID resolves the board id for a schema type.
func (c *Client) BoardID(schemaType extraction.SchemaType) (int64, error) {
	id, ok := c.boards[string(schemaType)]
	if !ok {
		return 0, fmt.Errorf("no board configured for schema type %s", schemaType)
	}
	return id, nil
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// execute posts one GraphQL operation and returns the data payload.
func (c *Client) execute(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	boardRequests.WithLabelValues(operation).Inc()

	payload, err := json.Marshal(map[string]any{
		"query":     strings.TrimSpace(query),
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		boardErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("board request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		boardErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("reading board response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		boardErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("board API returned %d: %s", resp.StatusCode, string(body))
	}

	var gql gqlResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		boardErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("decoding board response: %w", err)
	}
	if len(gql.Errors) > 0 {
		boardErrors.WithLabelValues(operation).Inc()
		messages := make([]string, len(gql.Errors))
		for i, e := range gql.Errors {
			messages[i] = e.Message
		}
		return nil, &APIError{Messages: messages}
	}
	return gql.Data, nil
}

// ColumnTitles returns the column id to title map for a board,
// fetching it at most once.
func (c *Client) ColumnTitles(ctx context.Context, boardID int64) (map[string]string, error) {
	c.mu.Lock()
	if cached, ok := c.columnCache[boardID]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	data, err := c.execute(ctx, "columns", queryColumns, map[string]any{"board_id": []int64{boardID}})
	if err != nil {
		return nil, err
	}

	var result struct {
		Boards []struct {
			Columns []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"columns"`
		} `json:"boards"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding columns: %w", err)
	}
	if len(result.Boards) == 0 {
		return nil, fmt.Errorf("board %d not found", boardID)
	}

	titles := make(map[string]string, len(result.Boards[0].Columns))
	for _, col := range result.Boards[0].Columns {
		titles[col.ID] = col.Title
	}

	c.mu.Lock()
	c.columnCache[boardID] = titles
	c.mu.Unlock()
	return titles, nil
}

// columnIDs returns the reverse mapping, column title to id.
func (c *Client) columnIDs(ctx context.Context, boardID int64) (map[string]string, error) {
	titles, err := c.ColumnTitles(ctx, boardID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(titles))
	for id, title := range titles {
		ids[title] = id
	}
	return ids, nil
}

// emailColumnID finds the first column whose title contains "email".
func (c *Client) emailColumnID(ctx context.Context, boardID int64) (string, error) {
	titles, err := c.ColumnTitles(ctx, boardID)
	if err != nil {
		return "", err
	}
	for id, title := range titles {
		if strings.Contains(strings.ToLower(title), "email") {
			return id, nil
		}
	}
	return "", fmt.Errorf("no email column found on board %d", boardID)
}

type rawItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ColumnValues []struct {
		ID   string  `json:"id"`
		Text *string `json:"text"`
	} `json:"column_values"`
}

func decodeItems(data json.RawMessage) ([]rawItem, error) {
	var result struct {
		Page struct {
			Items []rawItem `json:"items"`
		} `json:"items_page_by_column_values"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return result.Page.Items, nil
}

func (c *Client) mapItem(raw rawItem, titles map[string]string) Item {
	columns := make(map[string]string, len(raw.ColumnValues))
	for _, cv := range raw.ColumnValues {
		title, ok := titles[cv.ID]
		if !ok {
			title = cv.ID
		}
		if cv.Text != nil {
			columns[title] = *cv.Text
		} else {
			columns[title] = ""
		}
	}
	return Item{ID: raw.ID, Name: raw.Name, Columns: columns}
}

// ItemsByName looks up items by exact name match. Duplicate names are
// possible.
func (c *Client) ItemsByName(ctx context.Context, boardID int64, name string) ([]Item, error) {
	data, err := c.execute(ctx, "items_by_name", queryByName, map[string]any{
		"board_id": boardID,
		"name":     name,
	})
	if err != nil {
		return nil, err
	}
	raw, err := decodeItems(data)
	if err != nil {
		return nil, err
	}
	return c.mapAll(ctx, boardID, raw)
}

// ItemsByEmail looks up items by email, auto-detecting the board's
// email column.
func (c *Client) ItemsByEmail(ctx context.Context, boardID int64, email string) ([]Item, error) {
	colID, err := c.emailColumnID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	data, err := c.execute(ctx, "items_by_email", queryByColumn, map[string]any{
		"board_id":  boardID,
		"column_id": colID,
		"value":     email,
	})
	if err != nil {
		return nil, err
	}
	raw, err := decodeItems(data)
	if err != nil {
		return nil, err
	}
	return c.mapAll(ctx, boardID, raw)
}

func (c *Client) mapAll(ctx context.Context, boardID int64, raw []rawItem) ([]Item, error) {
	titles, err := c.ColumnTitles(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(raw))
	for i, r := range raw {
		items[i] = c.mapItem(r, titles)
	}
	return items, nil
}

// FirstItemByName returns the first item matching the name, or nil.
func (c *Client) FirstItemByName(ctx context.Context, schemaType extraction.SchemaType, name string) (*Item, error) {
	boardID, err := c.BoardID(schemaType)
	if err != nil {
		return nil, err
	}
	items, err := c.ItemsByName(ctx, boardID, name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FirstItemByEmail returns the first item matching the email, or nil.
func (c *Client) FirstItemByEmail(ctx context.Context, schemaType extraction.SchemaType, email string) (*Item, error) {
	boardID, err := c.BoardID(schemaType)
	if err != nil {
		return nil, err
	}
	items, err := c.ItemsByEmail(ctx, boardID, email)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// formatColumnValue converts an extracted value into the shape the
// board API expects for its column type.
func formatColumnValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case []string:
		if len(v) == 0 {
			return ""
		}
		return map[string][]string{"labels": v}
	case []any:
		labels := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			labels = append(labels, fmt.Sprint(item))
		}
		if len(labels) == 0 {
			return ""
		}
		return map[string][]string{"labels": labels}
	case bool:
		checked := "false"
		if v {
			checked = "true"
		}
		return map[string]string{"checked": checked}
	default:
		return fmt.Sprint(v)
	}
}

// buildColumnValues resolves column titles to ids and formats values.
// Unknown titles are skipped with a warning. When includeEmpty is set,
// empty values are kept so updates can clear columns.
func (c *Client) buildColumnValues(ctx context.Context, boardID int64, columns map[string]any, includeEmpty bool) (map[string]any, error) {
	ids, err := c.columnIDs(ctx, boardID)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(columns))
	for title, value := range columns {
		if value == nil && !includeEmpty {
			continue
		}
		colID, ok := ids[title]
		if !ok {
			c.logger.Warn(ctx, "column not found on board, skipping",
				zap.String("column.title", title),
				zap.Int64("board.id", boardID))
			continue
		}
		formatted := formatColumnValue(value)
		if formatted == "" && !includeEmpty {
			continue
		}
		values[colID] = formatted
	}
	return values, nil
}

// CreateItem creates a new item. Columns are keyed by title; nil and
// empty values are omitted.
func (c *Client) CreateItem(ctx context.Context, boardID int64, name string, columns map[string]any) (Item, error) {
	values, err := c.buildColumnValues(ctx, boardID, columns, false)
	if err != nil {
		return Item{}, err
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return Item{}, fmt.Errorf("encoding column values: %w", err)
	}

	c.logger.Info(ctx, "creating board item",
		zap.Int64("board.id", boardID),
		zap.Int("columns", len(values)))

	data, err := c.execute(ctx, "create_item", mutationCreateItem, map[string]any{
		"board_id":      boardID,
		"item_name":     name,
		"column_values": string(encoded),
	})
	if err != nil {
		return Item{}, err
	}

	var result struct {
		Created Item `json:"create_item"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Item{}, fmt.Errorf("decoding create result: %w", err)
	}
	return result.Created, nil
}

// UpdateItem updates an existing item. Empty values are sent so that
// columns can be cleared.
func (c *Client) UpdateItem(ctx context.Context, boardID int64, itemID string, columns map[string]any) (Item, error) {
	values, err := c.buildColumnValues(ctx, boardID, columns, true)
	if err != nil {
		return Item{}, err
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return Item{}, fmt.Errorf("encoding column values: %w", err)
	}

	c.logger.Info(ctx, "updating board item",
		zap.Int64("board.id", boardID),
		zap.String("item.id", itemID),
		zap.Int("columns", len(values)))

	data, err := c.execute(ctx, "update_item", mutationUpdateItem, map[string]any{
		"board_id":      boardID,
		"item_id":       itemID,
		"column_values": string(encoded),
	})
	if err != nil {
		return Item{}, err
	}

	var result struct {
		Updated Item `json:"change_multiple_column_values"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Item{}, fmt.Errorf("decoding update result: %w", err)
	}
	return result.Updated, nil
}

// Upsert creates or updates an item. When lookupKey is set, deal and
// fund boards are matched by item name while contact boards are
// matched by email. Returns the item and whether it was created.
func (c *Client) Upsert(ctx context.Context, schemaType extraction.SchemaType, name string, columns map[string]any, lookupKey string) (Item, bool, error) {
	boardID, err := c.BoardID(schemaType)
	if err != nil {
		return Item{}, false, err
	}

	var existing *Item
	if lookupKey != "" {
		var items []Item
		switch schemaType {
		case extraction.SchemaDealFlow, extraction.SchemaVCFund:
			items, err = c.ItemsByName(ctx, boardID, lookupKey)
		case extraction.SchemaNetwork, extraction.SchemaLPMainDashboard:
			items, err = c.ItemsByEmail(ctx, boardID, lookupKey)
		}
		if err != nil {
			return Item{}, false, err
		}
		if len(items) > 0 {
			existing = &items[0]
		}
	}

	if existing != nil {
		c.logger.Info(ctx, "found existing board item, updating",
			zap.String("item.id", existing.ID))
		updated, err := c.UpdateItem(ctx, boardID, existing.ID, columns)
		if err != nil {
			return Item{}, false, err
		}
		return updated, false, nil
	}

	created, err := c.CreateItem(ctx, boardID, name, columns)
	if err != nil {
		return Item{}, false, err
	}
	return created, true, nil
}
