package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lioncrest/paneld/internal/extraction"
	"github.com/lioncrest/paneld/internal/mailctx"
	"github.com/lioncrest/paneld/internal/router"
)

// maxMessageSize bounds raw panel messages.
const maxMessageSize = 1 << 20

// Router-backed routes always answer 200 with a reply envelope, the
// same contract the panel message port has: transport success is
// separate from operation success.

func (s *Server) handleMessage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxMessageSize))
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Fail(err))
	}
	env := s.deps.Router.DispatchJSON(c.Request().Context(), body)
	return c.JSON(http.StatusOK, env)
}

func (s *Server) dispatch(c echo.Context, t router.MessageType) error {
	env := s.deps.Router.Dispatch(c.Request().Context(), router.Message{Type: t})
	return c.JSON(http.StatusOK, env)
}

func (s *Server) handleContext(c echo.Context) error {
	return s.dispatch(c, router.TypeGetContext)
}

func (s *Server) handleAuthStart(c echo.Context) error {
	return s.dispatch(c, router.TypeAuthStart)
}

func (s *Server) handleAuthStatus(c echo.Context) error {
	return s.dispatch(c, router.TypeAuthStatus)
}

func (s *Server) handleToken(c echo.Context) error {
	return s.dispatch(c, router.TypeGetToken)
}

func (s *Server) handleSignOut(c echo.Context) error {
	return s.dispatch(c, router.TypeSignOut)
}

// navigationRequest is a tab navigation event from the browser bridge.
type navigationRequest struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

func (s *Server) handleNavigation(c echo.Context) error {
	var req navigationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, router.Fail(err))
	}
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, router.Fail(errors.New("url is required")))
	}

	s.deps.Broadcaster.HandleNavigation(c.Request().Context(), mailctx.NavigationEvent{
		TabID: req.TabID,
		URL:   req.URL,
	})
	return c.JSON(http.StatusOK, router.OK(nil))
}

func (s *Server) handleSchemas(c echo.Context) error {
	all := extraction.AllSchemas()
	summaries := make([]map[string]string, len(all))
	for i, schema := range all {
		summaries[i] = map[string]string{
			"value":        string(schema.Type),
			"display_name": schema.DisplayName,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"schemas": summaries,
		"count":   len(summaries),
		"success": true,
	})
}

func (s *Server) handleSchema(c echo.Context) error {
	schemaType := extraction.SchemaType(c.Param("schema_type"))
	schema, err := extraction.GetSchema(schemaType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Fail(err))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"schema":  schema,
		"success": true,
	})
}

// extractRequest is the POST /v1/extract payload.
type extractRequest struct {
	Text       string                `json:"text"`
	SchemaType extraction.SchemaType `json:"schema_type"`
}

// extractResponse mirrors the panel's expected extraction reply.
type extractResponse struct {
	ExtractedData extraction.Record     `json:"extracted_data"`
	SchemaType    extraction.SchemaType `json:"schema_type"`
	Success       bool                  `json:"success"`
	Message       string                `json:"message,omitempty"`
}

func (s *Server) handleExtract(c echo.Context) error {
	if s.deps.Extractor == nil {
		return c.JSON(http.StatusServiceUnavailable, router.Fail(errors.New("extraction is not configured")))
	}

	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, router.Fail(err))
	}

	record, err := s.deps.Extractor.Extract(c.Request().Context(), req.SchemaType, req.Text)
	if err != nil {
		var verr *extraction.ValidationError
		switch {
		case errors.Is(err, extraction.ErrEmptyText), errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, router.Fail(err))
		default:
			if _, schemaErr := extraction.GetSchema(req.SchemaType); schemaErr != nil {
				return c.JSON(http.StatusBadRequest, router.Fail(schemaErr))
			}
			return c.JSON(http.StatusInternalServerError, router.Fail(errors.New("extraction failed")))
		}
	}

	return c.JSON(http.StatusOK, extractResponse{
		ExtractedData: record,
		SchemaType:    req.SchemaType,
		Success:       true,
		Message:       "Data extracted successfully",
	})
}

// upsertRequest is the POST /v1/board/upsert payload. Columns are
// keyed by board column title, the shape /v1/extract produces.
type upsertRequest struct {
	SchemaType extraction.SchemaType `json:"schema_type"`
	Name       string                `json:"name"`
	Email      string                `json:"email,omitempty"`
	Columns    map[string]any        `json:"columns"`
}

func (s *Server) handleBoardUpsert(c echo.Context) error {
	if s.deps.Boards == nil {
		return c.JSON(http.StatusServiceUnavailable, router.Fail(errors.New("board access is not configured")))
	}

	var req upsertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, router.Fail(err))
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, router.Fail(errors.New("name is required")))
	}

	lookupKey := req.Email
	if lookupKey == "" {
		lookupKey = req.Name
	}

	item, created, err := s.deps.Boards.Upsert(c.Request().Context(), req.SchemaType, req.Name, req.Columns, lookupKey)
	if err != nil {
		return c.JSON(http.StatusBadGateway, router.Fail(err))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"item":    item,
		"created": created,
	})
}
