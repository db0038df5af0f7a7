package handlers

import "github.com/vzahanych/weather-widget/internal/server/utils"

// SearchRequest is the body of POST /search. Emptiness and length are left to
// the widget, which answers them with an error view rather than a 400.
type SearchRequest struct {
	City string `json:"city" validate:"max=100,printable"`
}

// RecentIndexRequest binds the :index path parameter, 0 being the most recent.
type RecentIndexRequest struct {
	Index int `uri:"index" json:"index" validate:"min=0"`
}

type RecentResponse struct {
	Recent     []string `json:"recent"`
	MaxEntries int      `json:"max_entries"`
}

type ClearResponse struct {
	Cleared bool     `json:"cleared"`
	Recent  []string `json:"recent"`
}

// ErrorResponse represents an error response with validation
type ErrorResponse struct {
	Error   string                  `json:"error" validate:"required,min=1,max=500"`
	Code    string                  `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Details string                  `json:"details,omitempty" validate:"omitempty,max=1000"`
	Fields  []utils.ValidationError `json:"fields,omitempty"`
}

// HealthResponse represents health check response with validation
type HealthResponse struct {
	Status    string            `json:"status" validate:"required,oneof=ok alive ready unavailable"`
	Uptime    string            `json:"uptime" validate:"required"`
	Timestamp string            `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Checks    map[string]string `json:"checks,omitempty"`
}
