package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error response. Every API error is written with
// Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference identifying the problem type.
	Type string `json:"type"`

	// Title is a short human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence.
	Status int `json:"status"`

	// Detail explains this specific occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance identifies the specific occurrence, usually the request path.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request identifier for correlation.
	TraceID string `json:"traceId"`

	// Errors carries structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation       = "https://api.greenroute.dev/problems/validation-error"
	ProblemTypeNotFound         = "https://api.greenroute.dev/problems/not-found"
	ProblemTypeInsufficientData = "https://api.greenroute.dev/problems/insufficient-data"
	ProblemTypeTooManyRequests  = "https://api.greenroute.dev/problems/too-many-requests"
	ProblemTypeInternal         = "https://api.greenroute.dev/problems/internal-error"
	ProblemTypeUnavailable      = "https://api.greenroute.dev/problems/service-unavailable"
)

// NewProblem creates a Problem.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets the detail message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the occurrence URI.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write serializes the Problem to the response.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID)
	p.Detail = detail
	return p
}

// NewInsufficientData creates a 422 problem for requests that are well
// formed but cannot be computed from the available data.
func NewInsufficientData(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInsufficientData, "Insufficient data", http.StatusUnprocessableEntity, traceID)
	p.Detail = detail
	return p
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID)
	p.Detail = detail
	return p
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	p.Detail = detail
	return p
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID)
	p.Detail = detail
	return p
}
