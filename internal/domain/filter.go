package domain

// FilterOperator enumerates the comparison operators accepted in audience
// filter rules. The wire names are fixed by the segment-builder UI.
type FilterOperator string

const (
	OpGreaterThan        FilterOperator = "greater_then"
	OpLessThan           FilterOperator = "less_then"
	OpGreaterThanOrEqual FilterOperator = "greater_then_or_equal_to"
	OpLessThanOrEqual    FilterOperator = "less_then_or_equal_to"
	OpEqual              FilterOperator = "equal_to"
	OpNotEqual           FilterOperator = "not_equal_to"
)

// Valid reports whether op is one of the six recognized operators.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual,
		OpLessThanOrEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// FilterLogic joins a rule to the rules before it. The first rule in a
// sequence carries no logic; every later rule must carry AND or OR.
type FilterLogic string

const (
	LogicAnd FilterLogic = "AND"
	LogicOr  FilterLogic = "OR"
)

// FilterRule is one comparison in an ordered audience filter sequence.
type FilterRule struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
	Logic    FilterLogic    `json:"logic,omitempty"`
}

// Event topics carried on the bus. Payloads are JSON copies of the domain
// types, never shared references.
const (
	TopicCustomers = "customer_events"
	TopicOrders    = "order_events"
	TopicCommLogs  = "communication_log_events"
)
