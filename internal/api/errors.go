package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

// statusError carries an explicit HTTP status and a client-safe message.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

var (
	errUnauthorized = &statusError{status: http.StatusUnauthorized, msg: "missing or invalid bearer token"}
	errRateLimited  = &statusError{status: http.StatusTooManyRequests, msg: "rate limit exceeded"}
)

func badRequest(msg string) error {
	return &statusError{status: http.StatusBadRequest, msg: msg}
}

// handleError maps err onto a status and writes the error envelope.
// Unclassified errors are logged and reported as a bare 500.
func handleError(c *gin.Context, err error) {
	requestID := c.GetString(requestIDKey)
	body := &ErrorBody{RequestID: requestID}

	var (
		reqErr *validation.RequestError
		stErr  *statusError
	)
	switch {
	case errors.As(err, &reqErr):
		body.Status = http.StatusBadRequest
		body.Message = "validation failed"
		body.Fields = reqErr.Fields
	case errors.As(err, &stErr):
		body.Status = stErr.status
		body.Message = stErr.msg
	case errors.Is(err, storage.ErrNotFound):
		body.Status = http.StatusNotFound
		body.Message = err.Error()
	case errors.Is(err, storage.ErrConflict):
		body.Status = http.StatusConflict
		body.Message = err.Error()
	default:
		body.Status = http.StatusInternalServerError
		body.Message = "internal server error"
		logger.Error("Request failed", "request_id", requestID, "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(body.Status, Response{Error: body})
}
