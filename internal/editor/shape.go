package editor

import "github.com/hopekit/targeting/internal/catalog"

// Kind names a shape for JSON output and logging.
type Kind string

const (
	KindSingle      Kind = "single"
	KindMulti       Kind = "multi"
	KindRange       Kind = "range"
	KindToggle      Kind = "toggle"
	KindRoundScoped Kind = "round_scoped"
)

// Shape is the editor a field's value is entered with.
type Shape interface {
	Kind() Kind
	// Default is the value a freshly chosen field starts from.
	Default() Value
	// Accepts reports whether v has the concrete type this shape produces.
	Accepts(v Value) bool
	isShape()
}

// SingleValue edits one string.
type SingleValue struct {
	FieldType catalog.FieldType
	Choices   []catalog.Choice // set for SELECT_ONE only
}

// MultiValue edits a subset of Choices.
type MultiValue struct {
	Choices []catalog.Choice
}

// Range edits an inclusive from/to pair.
type Range struct {
	FieldType catalog.FieldType
}

// Toggle edits a tri-state boolean.
type Toggle struct{}

// RoundScoped wraps the subtype's shape with a round selector in [1, RoundsCount].
type RoundScoped struct {
	Inner       Shape
	RoundsCount int
	RoundsNames []string
}

func (SingleValue) Kind() Kind { return KindSingle }
func (MultiValue) Kind() Kind  { return KindMulti }
func (Range) Kind() Kind       { return KindRange }
func (Toggle) Kind() Kind      { return KindToggle }
func (RoundScoped) Kind() Kind { return KindRoundScoped }

func (SingleValue) Default() Value { return TextValue{Value: ""} }
func (MultiValue) Default() Value  { return ListValue{Values: []string{}} }
func (Range) Default() Value       { return RangeValue{} }
func (Toggle) Default() Value      { return BoolValue{} }
func (s RoundScoped) Default() Value {
	return RoundValue{Inner: s.Inner.Default()}
}

func (SingleValue) Accepts(v Value) bool {
	_, ok := v.(TextValue)
	return ok
}

func (MultiValue) Accepts(v Value) bool {
	_, ok := v.(ListValue)
	return ok
}

func (Range) Accepts(v Value) bool {
	_, ok := v.(RangeValue)
	return ok
}

func (Toggle) Accepts(v Value) bool {
	_, ok := v.(BoolValue)
	return ok
}

func (s RoundScoped) Accepts(v Value) bool {
	rv, ok := v.(RoundValue)
	if !ok || rv.Inner == nil {
		return false
	}
	return s.Inner.Accepts(rv.Inner)
}

func (SingleValue) isShape() {}
func (MultiValue) isShape()  {}
func (Range) isShape()       {}
func (Toggle) isShape()      {}
func (RoundScoped) isShape() {}
