// Package domain holds DTOs for timeline http and service contracts
package domain

import "crewdesk/internal/core/timeline"

// FeedInput selects which activity to aggregate
// Empty filters mean the global feed
type FeedInput struct {
	EntityTable string `json:"entity_table,omitempty" validate:"omitempty,alpha,max=64" example:"skills"`
	EntityID    string `json:"entity_id,omitempty" validate:"omitempty,max=64" example:"5"`
	Limit       int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`

	// Refresh bypasses the cached feed and re-reads the sources
	Refresh bool `json:"refresh,omitempty"`
}

// FeedOutput is one aggregated activity feed
type FeedOutput struct {
	Events []timeline.Event `json:"events"`

	// Stale marks a feed served from cache while a refresh runs behind it
	Stale bool `json:"stale,omitempty"`
}
