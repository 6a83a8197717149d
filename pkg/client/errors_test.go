package client

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ErrorClass
	}{
		{name: "not found", status: 404, expected: ErrorClassClient},
		{name: "forbidden", status: 403, expected: ErrorClassClient},
		{name: "internal error", status: 500, expected: ErrorClassServer},
		{name: "bad gateway", status: 502, expected: ErrorClassServer},
		{name: "redirect", status: 302, expected: ErrorClassUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyStatus(tt.status)
			if result != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "status error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Page:       2,
				Message:    "unexpected status",
			},
			expected: "aanbod server error (page 2, status 500): unexpected status",
		},
		{
			name: "status error with wrapped error",
			apiError: &APIError{
				StatusCode: 200,
				ErrorClass: ErrorClassDecode,
				Page:       0,
				Message:    "decode response",
				Err:        errors.New("unexpected EOF"),
			},
			expected: "aanbod decode error (page 0, status 200): decode response: unexpected EOF",
		},
		{
			name: "network error",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Page:       1,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "aanbod network error (page 1): request failed: connection refused",
		},
		{
			name: "network error without cause",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Page:       4,
				Message:    "request failed",
			},
			expected: "aanbod network error (page 4): request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apiError.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := apiError.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}

	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestAPIError_UnwrapNil(t *testing.T) {
	apiError := &APIError{
		StatusCode: 404,
		ErrorClass: ErrorClassClient,
		Message:    "not found",
	}

	if unwrapped := apiError.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}
