package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/query"
)

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Question string `json:"question"`
	Limit    *int   `json:"limit,omitempty"`
}

// QueryResponse is returned by POST /api/query, including on failure
type QueryResponse struct {
	Answer      string               `json:"answer"`
	Context     []answer.ContextItem `json:"context"`
	Results     []answer.ContextItem `json:"results"`
	Strategy    answer.Strategy      `json:"strategy,omitempty"`
	Error       string               `json:"error,omitempty"`
	ErrorDetail string               `json:"error_detail,omitempty"`
}

// IndexResponse is returned by POST /api/index
type IndexResponse struct {
	Message     string          `json:"message"`
	Count       int             `json:"count"`
	Report      *indexer.Report `json:"report,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": Name, "version": s.config.Version})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.queryError(c, errors.Wrap(err, errors.ErrTypeValidation, "malformed request body"))
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.queryError(c, errors.New(errors.ErrTypeValidation, "question is required"))
		return
	}

	limit := s.config.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	ctx := c.Request.Context()

	result, err := s.deps.Engine.Search(ctx, question, query.SearchOptions{Limit: limit})
	if err != nil {
		s.queryError(c, errors.FromContext(err))
		return
	}

	reply, err := s.deps.Composer.Compose(ctx, question, result.Matches)
	if err != nil {
		s.queryError(c, errors.FromContext(err))
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		Answer:   reply.Text,
		Context:  reply.Context,
		Results:  reply.Context,
		Strategy: reply.Strategy,
	})
}

func (s *Server) queryError(c *gin.Context, err error) {
	errType := errors.GetType(err)

	logging.WithFields(map[string]interface{}{
		"request_id": c.GetString(requestIDKey),
		"type":       errType,
	}).ErrorWithErr("Query failed", err)

	resp := QueryResponse{
		Answer:  errors.UserMessage(err),
		Context: []answer.ContextItem{},
		Results: []answer.ContextItem{},
		Error:   string(errType),
	}

	if s.config.Debug {
		resp.ErrorDetail = err.Error()
	}

	c.JSON(statusFor(errType), resp)
}

func (s *Server) index(c *gin.Context) {
	if !s.indexing.TryLock() {
		c.JSON(http.StatusConflict, IndexResponse{
			Message: errors.MessageBusy,
			Error:   string(errors.ErrTypeConflict),
		})

		return
	}
	defer s.indexing.Unlock()

	opts := indexer.Options{Clear: c.Query("clear") == "true"}

	report, err := s.deps.Indexer.Index(c.Request.Context(), opts)
	if err != nil {
		err = errors.FromContext(err)
		errType := errors.GetType(err)

		logging.WithField("request_id", c.GetString(requestIDKey)).ErrorWithErr("Indexing failed", err)

		c.JSON(statusFor(errType), IndexResponse{
			Message:     errors.UserMessage(err),
			Error:       string(errType),
			ErrorDetail: err.Error(),
		})

		return
	}

	c.JSON(http.StatusOK, IndexResponse{
		Message: fmt.Sprintf("Indexed %d documents", report.Documents),
		Count:   report.Documents,
		Report:  &report,
	})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.deps.Index.Stats(c.Request.Context())
	if err != nil {
		err = errors.FromContext(err)
		errType := errors.GetType(err)

		body := gin.H{"message": errors.UserMessage(err), "error": string(errType)}
		if s.config.Debug {
			body["error_detail"] = err.Error()
		}

		c.JSON(statusFor(errType), body)

		return
	}

	c.JSON(http.StatusOK, stats)
}

func statusFor(errType errors.ErrorType) int {
	switch errType {
	case errors.ErrTypeValidation:
		return http.StatusBadRequest
	case errors.ErrTypeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
