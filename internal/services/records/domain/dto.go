// Package domain holds DTOs for records http and service contracts
package domain

import "time"

// ListInput selects rows from one record table
type ListInput struct {
	Table     string            `json:"table" validate:"required,alpha,max=64" example:"skills"`
	Filter    map[string]string `json:"filter,omitempty" validate:"omitempty,max=16" example:"customer_id:9"`
	SortField string            `json:"sort_field,omitempty" validate:"omitempty,max=64" example:"name"`
	SortDesc  bool              `json:"sort_desc,omitempty"`
	Limit     int               `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`

	// Refresh bypasses the cache and re-reads the backend
	Refresh bool `json:"refresh,omitempty"`
}

// RecordDTO is one row in generic form
type RecordDTO struct {
	ID        string         `json:"id" example:"9d2f9a2c"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListOutput is a cached result set plus its staleness
// FetchedAt is absent when the result never came from a completed fetch
type ListOutput struct {
	Records   []RecordDTO `json:"records"`
	FetchedAt *time.Time  `json:"fetched_at,omitempty"`
	Stale     bool        `json:"stale,omitempty"`
}

// CreateInput inserts one row
type CreateInput struct {
	Table  string         `json:"table" validate:"required,alpha,max=64" example:"skills"`
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

// UpdateInput patches one row
type UpdateInput struct {
	Table  string         `json:"table" validate:"required,alpha,max=64" example:"skills"`
	ID     string         `json:"id" validate:"required,max=64" example:"9d2f9a2c"`
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

// DeleteInput removes one row
type DeleteInput struct {
	Table string `json:"table" validate:"required,alpha,max=64" example:"skills"`
	ID    string `json:"id" validate:"required,max=64" example:"9d2f9a2c"`
}
