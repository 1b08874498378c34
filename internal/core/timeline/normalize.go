package timeline

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// entityRule is one row of the normalization table. Mapping is data driven so
// a new entity kind is a new table entry, not new branching code
type entityRule struct {
	kinds map[Op]Kind

	// label used when a raw row has no description, e.g. "Skill"
	label string

	// subject naming: metadata key carrying the entity display name
	subjectNameKey string

	// related entity: kind plus the metadata keys carrying its id and name,
	// empty relatedKind means the event has no related entity
	relatedKind    string
	relatedIDKey   string
	relatedNameKey string
}

var rules = map[string]entityRule{
	"skills": {
		kinds: map[Op]Kind{
			OpInsert: KindSkillCreated,
			OpUpdate: KindSkillUpdated,
			OpDelete: KindSkillDeleted,
		},
		label:          "Skill",
		subjectNameKey: "skill_name",
		relatedKind:    "customer",
		relatedIDKey:   "customer_id",
		relatedNameKey: "customer_name",
	},
	"customers": {
		kinds: map[Op]Kind{
			OpInsert: KindCustomerCreated,
			OpUpdate: KindCustomerUpdated,
			OpDelete: KindCustomerDeleted,
		},
		label:          "Customer",
		subjectNameKey: "customer_name",
	},
	"assignments": {
		kinds: map[Op]Kind{
			OpInsert: KindAssignmentCreated,
			OpUpdate: KindAssignmentUpdated,
			OpDelete: KindAssignmentDeleted,
		},
		label:          "Assignment",
		subjectNameKey: "assignment_name",
		relatedKind:    "user",
		relatedIDKey:   "user_id",
		relatedNameKey: "user_name",
	},
	"users": {
		kinds: map[Op]Kind{
			OpInsert: KindUserCreated,
			OpUpdate: KindUserUpdated,
			OpDelete: KindUserDeleted,
		},
		label:          "User",
		subjectNameKey: "user_name",
	},
}

var genericKinds = map[Op]Kind{
	OpInsert: KindGenericCreated,
	OpUpdate: KindGenericUpdated,
	OpDelete: KindGenericDeleted,
}

var verbs = map[Op]string{
	OpInsert: "created",
	OpUpdate: "updated",
	OpDelete: "deleted",
}

var titler = cases.Title(language.English)

// Normalize maps one raw change-log row to one canonical Event
// It is a pure function: the same RawChange always yields an identical Event,
// which is what makes re-merging idempotent. The second return reports that
// the generic fallback mapping was used (a schema-drift signal for the
// caller to log, not an error)
func Normalize(rc RawChange) (Event, bool) {
	rule, known := rules[rc.EntityType]

	op := rc.EventType
	kind, haveKind := rule.kinds[op]
	fallback := !known || !haveKind
	if fallback {
		kind, haveKind = genericKinds[op]
		if !haveKind {
			// unknown operation: still total, treat as a generic update
			kind = KindGenericUpdated
		}
	}

	ev := Event{
		ID:    rc.ID,
		Kind:  kind,
		Actor: actorOf(rc),
		At:    rc.At,
	}

	subjectKind := rc.EntityType
	label := rule.label
	if label == "" {
		label = titler.String(singular(rc.EntityType))
	}

	if rc.EntityID != "" {
		ev.Subject = &EntityRef{
			Kind: singular(subjectKind),
			ID:   rc.EntityID,
			Name: rc.Meta[rule.subjectNameKey],
		}
	}
	if rule.relatedKind != "" {
		if id := rc.Meta[rule.relatedIDKey]; id != "" {
			ev.Related = &EntityRef{
				Kind: rule.relatedKind,
				ID:   id,
				Name: rc.Meta[rule.relatedNameKey],
			}
		}
	}

	ev.Description = rc.Description
	if ev.Description == "" {
		ev.Description = label + " " + verbs[opOrUpdate(op)]
	}

	// only updates carry a diff; copy verbatim so callers can't alias our input
	if op == OpUpdate && len(rc.Changes) > 0 {
		ev.Changes = make([]FieldChange, len(rc.Changes))
		copy(ev.Changes, rc.Changes)
	}

	return ev, fallback
}

func actorOf(rc RawChange) Actor {
	if rc.ActorID == "" {
		return UnknownActor
	}
	name := rc.ActorName
	if name == "" {
		name = rc.ActorID
	}
	return Actor{ID: rc.ActorID, Name: name}
}

func opOrUpdate(op Op) Op {
	if _, ok := verbs[op]; !ok {
		return OpUpdate
	}
	return op
}

// singular trims the trailing plural s from a table name for display
func singular(table string) string {
	if len(table) > 1 && table[len(table)-1] == 's' {
		return table[:len(table)-1]
	}
	return table
}
