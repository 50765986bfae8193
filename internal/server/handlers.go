package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"catalograg/internal/domain"
	"catalograg/internal/usecase"
)

// IndexRequest is a raw batch of parallel documents, metadatas and ids.
type IndexRequest struct {
	Documents []string          `json:"documents"`
	Metadatas []domain.Metadata `json:"metadatas"`
	IDs       []string          `json:"ids"`
}

// SearchRequest selects a query, result count and search mode.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Mode  string `json:"mode"`
}

// ChatRequest carries a question and the turns answered so far. The server
// keeps no conversation state; clients send back the history they received.
type ChatRequest struct {
	ConversationID string        `json:"conversation_id"`
	Question       string        `json:"question"`
	History        []domain.Turn `json:"history"`
}

// ChatResponse is the answer plus the updated history.
type ChatResponse struct {
	ConversationID string               `json:"conversation_id"`
	Answer         string               `json:"answer"`
	History        []domain.Turn        `json:"history"`
	Sources        []domain.QueryResult `json:"sources"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCollections(c *gin.Context) {
	infos, err := s.deps.Store.ListCollections()
	if err != nil {
		s.fail(c, "failed to list collections", err)
		return
	}
	if infos == nil {
		infos = []domain.CollectionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"collections": infos})
}

func (s *Server) indexDocuments(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "invalid request", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	name := c.Param("name")
	outcome := s.deps.Indexer.IndexDocuments(c.Request.Context(), req.Documents, req.Metadatas, req.IDs, name)
	s.respondIndexed(c, name, outcome)
}

func (s *Server) uploadWorkbook(c *gin.Context) {
	if limit := s.deps.Config.MaxUploadMB; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(limit)<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, "invalid upload", fmt.Errorf("%w: multipart field \"file\" is required: %w", domain.ErrValidation, err))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		s.fail(c, "invalid upload", fmt.Errorf("%w: only .xlsx workbooks are supported", domain.ErrValidation))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, "invalid upload", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	defer f.Close()

	table, err := s.deps.Reader.Read(f)
	if err != nil {
		s.fail(c, "failed to read "+header.Filename, err)
		return
	}

	name := c.Param("name")
	s.logger.Info("workbook uploaded", "file", header.Filename, "sheet", table.Sheet, "rows", len(table.Records), "collection", name)
	outcome := s.deps.Indexer.IndexRecords(c.Request.Context(), table.Records, name)
	s.respondIndexed(c, name, outcome)
}

func (s *Server) respondIndexed(c *gin.Context, name string, outcome domain.Outcome) {
	s.metrics.observe("index", outcome.OK)
	if !outcome.OK {
		c.JSON(statusFor(outcome.Err), outcome)
		return
	}
	if n, err := s.deps.Store.Count(name); err == nil {
		s.metrics.indexed.WithLabelValues(name).Set(float64(n))
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "invalid request", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.deps.DefaultTopK
	}
	if req.Mode == "" {
		req.Mode = s.deps.DefaultMode
	}

	outcome := s.deps.Retriever.Search(c.Request.Context(), req.Mode, req.Query, c.Param("name"), req.TopK)
	s.metrics.observe("search_"+modeLabel(req.Mode), outcome.OK)
	if !outcome.OK {
		c.JSON(statusFor(outcome.Err), outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) chat(c *gin.Context) {
	if s.deps.Chat == nil {
		s.fail(c, "chat unavailable", fmt.Errorf("%w: no answer generator configured", domain.ErrConfiguration))
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "invalid request", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	conv := domain.RestoreConversation(req.ConversationID, req.History)
	reply, err := s.deps.Chat.Ask(c.Request.Context(), conv, req.Question)
	s.metrics.observe("chat", err == nil)
	if err != nil {
		s.fail(c, "chat failed", err)
		return
	}

	sources := reply.Sources
	if sources == nil {
		sources = []domain.QueryResult{}
	}
	c.JSON(http.StatusOK, ChatResponse{
		ConversationID: conv.ID,
		Answer:         reply.Turn.Answer,
		History:        conv.History(0),
		Sources:        sources,
	})
}

// fail writes an Outcome-shaped error body. Internal errors are logged but
// their detail is not returned.
func (s *Server) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(action, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, domain.Outcome{OK: false, Message: action})
		return
	}
	c.JSON(status, domain.Failed(action, err))
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDimensionMismatch), errors.Is(err, domain.ErrConversationBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func modeLabel(mode string) string {
	if mode == usecase.ModeLexical {
		return usecase.ModeLexical
	}
	return usecase.ModeSemantic
}
