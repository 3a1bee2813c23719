// Package segment compiles ordered audience filter rules into a single
// boolean predicate tree and renders that tree into a parameterized SQL
// WHERE clause for the customer store.
package segment

import (
	"errors"
	"fmt"

	"github.com/ignite/crm-engine/internal/domain"
)

// ErrBadFilter is the sentinel for filter sequences that fail compilation.
// Wrapped errors carry the offending rule detail.
var ErrBadFilter = errors.New("invalid filter rule")

// Predicate is a node in a compiled filter tree: either a single Condition,
// a Combinator over child predicates, or MatchAll.
type Predicate interface {
	pred()
}

// MatchAll is the predicate produced by an empty rule sequence. It matches
// every customer.
type MatchAll struct{}

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    domain.FilterOperator
	Value any
}

// Combinator joins child predicates with AND or OR. Children are ordered.
type Combinator struct {
	Kind     domain.FilterLogic
	Children []Predicate
}

func (MatchAll) pred()   {}
func (Condition) pred()  {}
func (Combinator) pred() {}

// Compile folds an ordered rule sequence into a predicate tree,
// left-to-right. Consecutive rules joined by the same logic flatten into one
// combinator; switching between AND and OR wraps the accumulated result in a
// new enclosing combinator. An empty sequence compiles to MatchAll.
//
// Unrecognized operators and missing/unknown logic on rules past the first
// fail compilation outright rather than degrading to a no-op condition.
func Compile(rules []domain.FilterRule) (Predicate, error) {
	if len(rules) == 0 {
		return MatchAll{}, nil
	}

	var result Predicate
	for i, rule := range rules {
		if !rule.Operator.Valid() {
			return nil, fmt.Errorf("%w: unrecognized operator %q at rule %d", ErrBadFilter, rule.Operator, i)
		}

		cond := Condition{Field: rule.Field, Op: rule.Operator, Value: rule.Value}

		if i == 0 {
			result = cond
			continue
		}

		switch rule.Logic {
		case domain.LogicAnd, domain.LogicOr:
			result = combine(result, cond, rule.Logic)
		default:
			return nil, fmt.Errorf("%w: rule %d must carry AND or OR logic, got %q", ErrBadFilter, i, rule.Logic)
		}
	}
	return result, nil
}

// combine merges cond into the running result. A top-level combinator of
// matching kind absorbs the new condition as one more child; anything else
// gets wrapped.
func combine(result Predicate, cond Condition, kind domain.FilterLogic) Predicate {
	if c, ok := result.(Combinator); ok && c.Kind == kind {
		c.Children = append(c.Children, cond)
		return c
	}
	return Combinator{Kind: kind, Children: []Predicate{result, cond}}
}
