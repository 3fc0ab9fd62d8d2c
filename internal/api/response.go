package api

import (
	"github.com/greaterodd/odd-trackr/internal/validation"
)

// Response is the envelope every /v1 endpoint returns.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorBody     `json:"error,omitempty"`
}

type ErrorBody struct {
	Status    int                     `json:"status"`
	Message   string                  `json:"message"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
	RequestID string                  `json:"requestId,omitempty"`
}

func Success(data any, meta map[string]any) Response {
	return Response{Data: data, Meta: meta}
}

func Failure(status int, msg string) Response {
	return Response{Error: &ErrorBody{Status: status, Message: msg}}
}

// Deleted is the confirmation body for delete endpoints.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
