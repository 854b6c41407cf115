// Package editor resolves which value editor a field needs and what value
// it starts from. Shapes and values are closed sum types: every
// implementation lives in this package.
package editor

// Value is the payload a rule carries. Its concrete type is fixed by the
// rule's Shape.
type Value interface {
	isValue()
}

// TextValue is a single string (STRING, SELECT_ONE, GEO).
type TextValue struct {
	Value string
}

// ListValue is a multi-choice selection (SELECT_MANY).
type ListValue struct {
	Values []string
}

// RangeValue is an inclusive range (INTEGER, DECIMAL, DATE). Bounds hold the
// decimal or ISO date text as entered; nil means unbounded.
type RangeValue struct {
	From *string
	To   *string
}

// BoolValue is a tri-state toggle: nil is unset, distinct from false.
type BoolValue struct {
	Value *bool
}

// RoundValue scopes the inner value to one collection round (PDU).
type RoundValue struct {
	Round *int
	Inner Value
}

func (TextValue) isValue()  {}
func (ListValue) isValue()  {}
func (RangeValue) isValue() {}
func (BoolValue) isValue()  {}
func (RoundValue) isValue() {}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Text builds a TextValue.
func Text(s string) TextValue { return TextValue{Value: s} }

// List builds a ListValue; a nil selection becomes an empty one.
func List(values ...string) ListValue {
	return ListValue{Values: append([]string{}, values...)}
}

// Between builds a RangeValue from optional bounds.
func Between(from, to *string) RangeValue { return RangeValue{From: from, To: to} }

// Bool builds a set BoolValue.
func Bool(b bool) BoolValue { return BoolValue{Value: &b} }

// InRound scopes inner to round n.
func InRound(n int, inner Value) RoundValue { return RoundValue{Round: &n, Inner: inner} }
