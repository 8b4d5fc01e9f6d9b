// Package store defines the record-store port for email records and the
// filter expressions the engine composes against it, plus the concrete
// adapters (qdrant, pgvector, in-memory).
package store

import (
	"context"

	"inboxai/internal/models"
)

// Filterable attribute names shared by all adapters.
const (
	FieldThreadID  = "conversation_id"
	FieldDirection = "direction"
	FieldIsRead    = "is_read"
	FieldIsReplied = "is_replied"
	FieldIsFlagged = "is_flagged"
	FieldDate      = "date"
)

// Op is a comparison operator in a filter clause.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Clause compares one attribute against a value.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of clauses. The clause list is always flat:
// combining filters concatenates clauses, so nested conjunctions cannot
// occur. The zero value matches every record.
type Filter struct {
	Clauses []Clause
}

// Eq builds a single equality filter.
func Eq(field string, value any) Filter {
	return Filter{Clauses: []Clause{{Field: field, Op: OpEq, Value: value}}}
}

// Gte builds a single lower-bound filter (inclusive).
func Gte(field string, value any) Filter {
	return Filter{Clauses: []Clause{{Field: field, Op: OpGte, Value: value}}}
}

// Lte builds a single upper-bound filter (inclusive).
func Lte(field string, value any) Filter {
	return Filter{Clauses: []Clause{{Field: field, Op: OpLte, Value: value}}}
}

// And conjoins filters into one flat clause list. Empty inputs are
// skipped, so And() of nothing (or of empty filters) stays empty.
func And(filters ...Filter) Filter {
	var out Filter
	for _, f := range filters {
		out.Clauses = append(out.Clauses, f.Clauses...)
	}
	return out
}

// IsEmpty reports whether the filter places no restriction.
func (f Filter) IsEmpty() bool {
	return len(f.Clauses) == 0
}

// Matches evaluates the filter against a record in memory. Used by the
// in-memory adapter and for post-filtering where a backend cannot push
// a clause down.
func (f Filter) Matches(r models.EmailRecord) bool {
	for _, c := range f.Clauses {
		v, ok := attributeValue(r, c.Field)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			if v != c.Value {
				return false
			}
		case OpGte:
			s, _ := v.(string)
			w, _ := c.Value.(string)
			if s < w {
				return false
			}
		case OpLte:
			s, _ := v.(string)
			w, _ := c.Value.(string)
			if s > w {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func attributeValue(r models.EmailRecord, field string) (any, bool) {
	switch field {
	case FieldThreadID:
		return r.ThreadID, true
	case FieldDirection:
		return r.Direction, true
	case FieldIsRead:
		return r.IsRead, true
	case FieldIsReplied:
		return r.IsReplied, true
	case FieldIsFlagged:
		return r.IsFlagged, true
	case FieldDate:
		return r.Date, true
	case "sender":
		return r.Sender, true
	case "subject":
		return r.Subject, true
	default:
		return nil, false
	}
}

// Embedder turns texts into vectors. The LLM client implements this.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the record-store port. All methods are safe for concurrent
// use. Add skips records whose id is already present and returns the
// number actually inserted.
type Store interface {
	Add(ctx context.Context, records []models.EmailRecord) (int, error)
	Search(ctx context.Context, query string, limit int, filter Filter) ([]models.SearchHit, error)
	FetchByAttribute(ctx context.Context, field string, value any) ([]models.EmailRecord, error)
	FetchAll(ctx context.Context, limit int) ([]models.EmailRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
