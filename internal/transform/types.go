package transform

import (
	"fmt"
	"net/http"
)

// Response mirrors the backend's /api/transform JSON body.
type Response struct {
	Success          bool   `json:"success"`
	TransformedImage string `json:"transformedImage,omitempty"`
	MIMEType         string `json:"mimeType,omitempty"`
	Style            string `json:"style,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
	IsCustomPrompt   bool   `json:"isCustomPrompt,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Kind classifies a failed transform.
type Kind string

const (
	KindConnection Kind = "connection"
	KindServer     Kind = "server"
	KindRejected   Kind = "rejected"
	KindUnexpected Kind = "unexpected"
)

const (
	MessageConnection = "Cannot connect to server. Please ensure the backend is running."
	MessageServer     = "Server error occurred"
	MessageRejected   = "Transformation failed"
	MessageUnexpected = "An unexpected error occurred"
	DetailConnection  = "Connection failed"
)

// Error is the structured failure returned by Client.Transform.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transform %s (http %d): %s: %s", e.Kind, e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("transform %s: %s: %s", e.Kind, e.Message, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the banner text for the failure.
func (e *Error) UserMessage() string { return e.Message }

func connectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: MessageConnection, Detail: DetailConnection, Err: err}
}

func unexpectedError(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: MessageUnexpected, Detail: err.Error(), Err: err}
}

func serverError(status int, body *Response) *Error {
	e := &Error{Kind: KindServer, Status: status, Message: MessageServer, Detail: http.StatusText(status)}
	if body != nil {
		if body.Message != "" {
			e.Message = body.Message
		}
		if body.Error != "" {
			e.Detail = body.Error
		}
	}
	return e
}

func rejectedError(status int, body *Response) *Error {
	e := &Error{Kind: KindRejected, Status: status, Message: MessageRejected, Detail: body.Error}
	if body.Message != "" {
		e.Message = body.Message
	}
	return e
}
