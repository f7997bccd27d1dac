package dto

import "time"

// StatusErrored marks a failed job in the response envelope.
const StatusErrored = "errored"

// ErrorResponse is the standardized error body returned by every endpoint.
//
// Adapter endpoints also fill JobRunID and StatusCode so callers that only
// understand the job envelope can still correlate the failure.
type ErrorResponse struct {
	JobRunID     string    `json:"jobRunID,omitempty" example:"1"`
	Status       string    `json:"status" example:"errored"`
	Message      string    `json:"message" example:"invalid request"`
	ErrorDetails string    `json:"error,omitempty" example:"days must be greater than 0"`
	StatusCode   int       `json:"statusCode,omitempty" example:"400"`
	Timestamp    time.Time `json:"timestamp"`
}

// Error implements the error interface so an ErrorResponse can travel through
// gin's c.Error chain.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse from a message and an optional cause.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Status:    StatusErrored,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}

// NewJobError is NewErrorResponse with the job envelope fields set.
func NewJobError(jobRunID string, statusCode int, message string, err error) ErrorResponse {
	resp := NewErrorResponse(message, err)
	resp.JobRunID = jobRunID
	resp.StatusCode = statusCode
	return resp
}
