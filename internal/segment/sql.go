package segment

import (
	"fmt"
	"strings"

	"github.com/ignite/crm-engine/internal/domain"
)

// queryableFields maps the wire field names accepted in filter rules to the
// customer table columns they address. Unknown fields fail the render; raw
// field names never reach the SQL text.
var queryableFields = map[string]string{
	"name":        "name",
	"email":       "email",
	"totalspends": "total_spends",
	"lastvisit":   "last_visit",
	"totalvisits": "total_visits",
}

var sqlOps = map[domain.FilterOperator]string{
	domain.OpGreaterThan:        ">",
	domain.OpLessThan:           "<",
	domain.OpGreaterThanOrEqual: ">=",
	domain.OpLessThanOrEqual:    "<=",
	domain.OpEqual:              "=",
	domain.OpNotEqual:           "!=",
}

// sqlBuilder accumulates positional args while rendering a predicate tree.
type sqlBuilder struct {
	args       []any
	argCounter int
}

func (b *sqlBuilder) nextArg(value any) string {
	b.args = append(b.args, value)
	placeholder := fmt.Sprintf("$%d", b.argCounter)
	b.argCounter++
	return placeholder
}

// ToSQL renders a compiled predicate into a WHERE-clause fragment plus its
// positional arguments, numbered from $1. MatchAll renders as TRUE.
func ToSQL(p Predicate) (string, []any, error) {
	b := &sqlBuilder{args: make([]any, 0), argCounter: 1}
	clause, err := b.render(p)
	if err != nil {
		return "", nil, err
	}
	return clause, b.args, nil
}

func (b *sqlBuilder) render(p Predicate) (string, error) {
	switch node := p.(type) {
	case MatchAll:
		return "TRUE", nil

	case Condition:
		column, ok := queryableFields[node.Field]
		if !ok {
			return "", fmt.Errorf("%w: field %q is not queryable", ErrBadFilter, node.Field)
		}
		op, ok := sqlOps[node.Op]
		if !ok {
			return "", fmt.Errorf("%w: unrecognized operator %q", ErrBadFilter, node.Op)
		}
		return fmt.Sprintf("%s %s %s", column, op, b.nextArg(node.Value)), nil

	case Combinator:
		joiner := " AND "
		if node.Kind == domain.LogicOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(node.Children))
		for _, child := range node.Children {
			sql, err := b.render(child)
			if err != nil {
				return "", err
			}
			if _, nested := child.(Combinator); nested {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
		}
		return strings.Join(parts, joiner), nil

	default:
		return "", fmt.Errorf("%w: unknown predicate node %T", ErrBadFilter, p)
	}
}
