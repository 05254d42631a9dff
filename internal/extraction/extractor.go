// Package extraction turns unstructured text into board-ready records
// using an LLM constrained by a fixed set of field schemas. Extracted
// records are keyed by field alias so they can be written to boards
// without further mapping.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/logging"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// ErrEmptyText indicates there was nothing to extract from.
var ErrEmptyText = errors.New("text is required")

// ValidationError reports extracted output that does not fit the schema.
type ValidationError struct {
	Schema SchemaType
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extraction did not match schema %s: field %q: %s", e.Schema, e.Field, e.Reason)
}

// Record is an extracted result keyed by field alias. Absent fields are
// present with nil values so every schema column appears.
type Record map[string]any

// Extractor runs schema-constrained extraction against an LLM.
type Extractor struct {
	llm     llms.Model
	limiter *rate.Limiter
	logger  *logging.Logger
}

// New creates an extractor from configuration. The configured base URL
// may point at any OpenAI-compatible endpoint.
func New(cfg config.ExtractionConfig, logger *logging.Logger) (*Extractor, error) {
	if cfg.APIKey.Value() == "" {
		return nil, errors.New("extraction api key required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(cfg.APIKey.Value()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Extractor{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		logger:  logger.Named("extraction"),
	}, nil
}

// NewWithModel creates an extractor around an existing model. Used in
// tests and anywhere a shared client already exists.
func NewWithModel(llm llms.Model, logger *logging.Logger) (*Extractor, error) {
	if llm == nil {
		return nil, errors.New("llm model is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Extractor{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:  logger.Named("extraction"),
	}, nil
}

// Extract runs one extraction. The input text itself is never logged,
// only its length.
func (e *Extractor) Extract(ctx context.Context, schemaType SchemaType, text string) (Record, error) {
	start := time.Now()

	schema, err := GetSchema(schemaType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	e.logger.Info(ctx, "extraction started",
		zap.String("schema.type", string(schemaType)),
		zap.Int("text.len", len(text)))

	llmStart := time.Now()
	resp, err := e.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, userPrompt(schema, text)),
		},
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	llmElapsed := time.Since(llmStart)
	if err != nil {
		extractionFailures.WithLabelValues(string(schemaType), "llm").Inc()
		e.logger.Error(ctx, "llm call failed",
			zap.String("schema.type", string(schemaType)),
			zap.Duration("llm.elapsed", llmElapsed),
			zap.Error(err))
		return nil, fmt.Errorf("llm call: %w", err)
	}
	if len(resp.Choices) == 0 {
		extractionFailures.WithLabelValues(string(schemaType), "llm").Inc()
		return nil, errors.New("llm returned no choices")
	}

	record, err := parseRecord(schema, resp.Choices[0].Content)
	if err != nil {
		extractionFailures.WithLabelValues(string(schemaType), "validation").Inc()
		e.logger.Warn(ctx, "schema validation failed",
			zap.String("schema.type", string(schemaType)),
			zap.Duration("llm.elapsed", llmElapsed),
			zap.Error(err))
		return nil, err
	}

	extractionsTotal.WithLabelValues(string(schemaType)).Inc()
	extractionDuration.WithLabelValues(string(schemaType)).Observe(time.Since(start).Seconds())
	e.logger.Info(ctx, "extraction succeeded",
		zap.String("schema.type", string(schemaType)),
		zap.Duration("llm.elapsed", llmElapsed),
		zap.Duration("total.elapsed", time.Since(start)))

	return record, nil
}

// parseRecord decodes and validates LLM output against the schema.
// Unknown keys are rejected; missing fields are filled with nil so the
// record always carries every schema column.
func parseRecord(schema *Schema, content string) (Record, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("llm did not return a parseable object for %s: %w", schema.Type, err)
	}

	record := make(Record, len(schema.Fields))
	for key, value := range raw {
		field, ok := schema.FieldByAlias(key)
		if !ok {
			return nil, &ValidationError{Schema: schema.Type, Field: key, Reason: "unknown field"}
		}
		normalized, err := normalizeValue(schema.Type, field, value)
		if err != nil {
			return nil, err
		}
		record[key] = normalized
	}

	for _, f := range schema.Fields {
		if _, ok := record[f.Alias]; !ok {
			record[f.Alias] = nil
		}
	}
	return record, nil
}

// normalizeValue coerces one field value to its schema shape. A bare
// string for a list field becomes a single-element list; everything
// else that does not fit is a validation error.
func normalizeValue(schemaType SchemaType, field Field, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch field.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "expected string"}
		}
		return s, nil

	case KindInteger:
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "expected integer"}
		}
		return int64(n), nil

	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "expected string"}
		}
		if !enumContains(field.Enum, s) {
			return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: fmt.Sprintf("%q is not an allowed value", s)}
		}
		return s, nil

	case KindEnumList, KindStringList:
		items, err := toStringList(schemaType, field, value)
		if err != nil {
			return nil, err
		}
		if field.Kind == KindEnumList {
			for _, item := range items {
				if !enumContains(field.Enum, item) {
					return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: fmt.Sprintf("%q is not an allowed value", item)}
				}
			}
		}
		return items, nil

	default:
		return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "unknown field kind"}
	}
}

func toStringList(schemaType SchemaType, field Field, value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "expected list of strings"}
			}
			items = append(items, s)
		}
		return items, nil
	default:
		return nil, &ValidationError{Schema: schemaType, Field: field.Alias, Reason: "expected list of strings"}
	}
}

func enumContains(enum []string, value string) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}
