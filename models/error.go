package models

import "errors"

// Error taxonomy shared by the store, the sessions and the HTTP handlers
var (
	ErrAuthRejected     = errors.New("authentication rejected")
	ErrForbidden        = errors.New("role not permitted")
	ErrMalformedInput   = errors.New("malformed input")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("status changed concurrently")
	ErrDuplicate        = errors.New("already exists")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// HealthCheckResponse is returned by the health check route
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
