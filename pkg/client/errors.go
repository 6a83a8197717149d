package client

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped when a response body cannot be decoded
// into a page or lacks the "data" or "_metadata" block.
var ErrMalformedResponse = errors.New("malformed aanbod response")

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents undecodable or incomplete bodies.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassUnexpected represents non-2xx statuses outside 4xx/5xx.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// APIError describes a failed page fetch with the context needed to log it.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
	ErrorClass ErrorClass
	Page       int
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("aanbod %s error (page %d): %s: %v",
				e.ErrorClass, e.Page, e.Message, e.Err)
		}
		return fmt.Sprintf("aanbod %s error (page %d): %s",
			e.ErrorClass, e.Page, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("aanbod %s error (page %d, status %d): %s: %v",
			e.ErrorClass, e.Page, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("aanbod %s error (page %d, status %d): %s",
		e.ErrorClass, e.Page, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
