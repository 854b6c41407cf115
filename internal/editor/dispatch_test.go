package editor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hopekit/targeting/internal/catalog"
)

func TestResolveEditorShape_DispatchTable(t *testing.T) {
	choices := []catalog.Choice{{Value: "A", Label: "a"}}

	tests := []struct {
		name        string
		attr        catalog.FieldAttribute
		wantKind    Kind
		wantDefault Value
	}{
		{"string", catalog.FieldAttribute{Name: "f", Type: catalog.TypeString}, KindSingle, TextValue{Value: ""}},
		{"select one", catalog.FieldAttribute{Name: "f", Type: catalog.TypeSelectOne, Choices: choices}, KindSingle, TextValue{Value: ""}},
		{"geo", catalog.FieldAttribute{Name: "f", Type: catalog.TypeGeo}, KindSingle, TextValue{Value: ""}},
		{"select many", catalog.FieldAttribute{Name: "f", Type: catalog.TypeSelectMany, Choices: choices}, KindMulti, ListValue{Values: []string{}}},
		{"integer", catalog.FieldAttribute{Name: "f", Type: catalog.TypeInteger}, KindRange, RangeValue{}},
		{"decimal", catalog.FieldAttribute{Name: "f", Type: catalog.TypeDecimal}, KindRange, RangeValue{}},
		{"date", catalog.FieldAttribute{Name: "f", Type: catalog.TypeDate}, KindRange, RangeValue{}},
		{"bool", catalog.FieldAttribute{Name: "f", Type: catalog.TypeBool}, KindToggle, BoolValue{}},
		{
			"pdu decimal",
			catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU, PDUData: &catalog.PDUData{Subtype: catalog.TypeDecimal, RoundsCount: 2}},
			KindRoundScoped,
			RoundValue{Inner: RangeValue{}},
		},
		{
			"pdu string",
			catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU, PDUData: &catalog.PDUData{Subtype: catalog.TypeString, RoundsCount: 1}},
			KindRoundScoped,
			RoundValue{Inner: TextValue{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := ResolveEditorShape(&tt.attr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if shape.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", shape.Kind(), tt.wantKind)
			}
			def := shape.Default()
			if !reflect.DeepEqual(def, tt.wantDefault) {
				t.Errorf("Default() = %#v, want %#v", def, tt.wantDefault)
			}
			if !shape.Accepts(def) {
				t.Errorf("shape does not accept its own default %#v", def)
			}
		})
	}
}

func TestResolveEditorShape_BoolDefaultIsUnset(t *testing.T) {
	v, err := DefaultValue(&catalog.FieldAttribute{Name: "f", Type: catalog.TypeBool})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bv, ok := v.(BoolValue)
	if !ok {
		t.Fatalf("default is %T, want BoolValue", v)
	}
	if bv.Value != nil {
		t.Errorf("default bool = %v, want unset", *bv.Value)
	}
}

func TestResolveEditorShape_RoundBounds(t *testing.T) {
	attr := catalog.FieldAttribute{
		Name:    "f",
		Type:    catalog.TypePDU,
		PDUData: &catalog.PDUData{Subtype: catalog.TypeBool, RoundsCount: 4, RoundsNames: []string{"a", "b", "c", "d"}},
	}
	shape, err := ResolveEditorShape(&attr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs, ok := shape.(RoundScoped)
	if !ok {
		t.Fatalf("shape is %T, want RoundScoped", shape)
	}
	if rs.RoundsCount != 4 {
		t.Errorf("RoundsCount = %d, want 4", rs.RoundsCount)
	}
	if _, ok := rs.Inner.(Toggle); !ok {
		t.Errorf("inner shape is %T, want Toggle", rs.Inner)
	}
}

func TestResolveEditorShape_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		attr    *catalog.FieldAttribute
		wantErr error
	}{
		{"nil attribute", nil, catalog.ErrMalformedField},
		{"unknown type", &catalog.FieldAttribute{Name: "f", Type: "BLOB"}, catalog.ErrUnknownFieldType},
		{"pdu without data", &catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU}, catalog.ErrMalformedField},
		{"pdu of pdu", &catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU, PDUData: &catalog.PDUData{Subtype: catalog.TypePDU, RoundsCount: 1}}, catalog.ErrUnknownFieldType},
		{"pdu of unknown", &catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU, PDUData: &catalog.PDUData{Subtype: "BLOB", RoundsCount: 1}}, catalog.ErrUnknownFieldType},
		{"pdu zero rounds", &catalog.FieldAttribute{Name: "f", Type: catalog.TypePDU, PDUData: &catalog.PDUData{Subtype: catalog.TypeString}}, catalog.ErrMalformedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveEditorShape(tt.attr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !catalog.IsConfigurationError(err) {
				t.Errorf("error %T is not a ConfigurationError", err)
			}
		})
	}
}

func TestShapeAccepts_RejectsForeignValues(t *testing.T) {
	rs := RoundScoped{Inner: Range{FieldType: catalog.TypeInteger}, RoundsCount: 2}

	if rs.Accepts(Between(Ptr("1"), nil)) {
		t.Error("round-scoped shape accepted a bare range")
	}
	if rs.Accepts(RoundValue{Round: Ptr(1)}) {
		t.Error("round-scoped shape accepted a round without inner value")
	}
	if rs.Accepts(InRound(1, Text("x"))) {
		t.Error("round-scoped range accepted a text inner value")
	}
	if !rs.Accepts(InRound(1, Between(nil, Ptr("3")))) {
		t.Error("round-scoped range rejected a range inner value")
	}
	if (Toggle{}).Accepts(List("a")) {
		t.Error("toggle accepted a list")
	}
}
