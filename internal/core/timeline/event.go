// Package timeline provides the canonical activity event model, the
// deterministic normalizer that maps backend change-log rows into it, and the
// merge rule that combines event feeds into one ordered sequence
package timeline

import "time"

// Kind is the closed enumeration of canonical event kinds
type Kind string

// Canonical event kinds; Generic* is the designed degradation path for
// entity/operation pairs the rules table does not know
const (
	KindSkillCreated Kind = "SKILL_CREATED"
	KindSkillUpdated Kind = "SKILL_UPDATED"
	KindSkillDeleted Kind = "SKILL_DELETED"

	KindCustomerCreated Kind = "CUSTOMER_CREATED"
	KindCustomerUpdated Kind = "CUSTOMER_UPDATED"
	KindCustomerDeleted Kind = "CUSTOMER_DELETED"

	KindAssignmentCreated Kind = "ASSIGNMENT_CREATED"
	KindAssignmentUpdated Kind = "ASSIGNMENT_UPDATED"
	KindAssignmentDeleted Kind = "ASSIGNMENT_DELETED"

	KindUserCreated Kind = "USER_CREATED"
	KindUserUpdated Kind = "USER_UPDATED"
	KindUserDeleted Kind = "USER_DELETED"

	KindGenericCreated Kind = "GENERIC_CREATED"
	KindGenericUpdated Kind = "GENERIC_UPDATED"
	KindGenericDeleted Kind = "GENERIC_DELETED"
)

// Op is the backend change operation
type Op string

// Backend operations as they appear on raw change-log rows
const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Actor is the user who caused an event; never nil on an Event
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnknownActor is the sentinel used when a raw row carries no actor
var UnknownActor = Actor{ID: "unknown", Name: "Unknown actor"}

// EntityRef points at an entity an event is about
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// FieldChange is one old/new pair from an update
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Event is the canonical, entity-agnostic representation of one change
// Changes is empty for creation and deletion events
type Event struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	Actor       Actor         `json:"actor"`
	At          time.Time     `json:"at"`
	Subject     *EntityRef    `json:"subject,omitempty"`
	Related     *EntityRef    `json:"related,omitempty"`
	Description string        `json:"description"`
	Changes     []FieldChange `json:"changes,omitempty"`
}

// RawChange is the backend-native audit row; entity_type decides which
// metadata keys are meaningful. Legacy per-table audit shapes are read into
// this one struct by the repos, the unified model is authoritative
type RawChange struct {
	ID          string
	EventType   Op
	EntityType  string
	EntityID    string
	ActorID     string
	ActorName   string
	At          time.Time
	Description string
	Changes     []FieldChange
	Meta        map[string]string
}
