package editor

import (
	"fmt"

	"github.com/hopekit/targeting/internal/catalog"
)

// ResolveEditorShape maps a field descriptor to its editor shape. It is pure.
// A type it does not know is a *catalog.ConfigurationError: guessing a shape
// would corrupt the compiled criterion.
func ResolveEditorShape(attr *catalog.FieldAttribute) (Shape, error) {
	if attr == nil {
		return nil, &catalog.ConfigurationError{Message: "field attribute is missing", Err: catalog.ErrMalformedField}
	}

	if attr.Type != catalog.TypePDU {
		return scalarShape(attr.Name, attr.Type, attr.Choices)
	}

	pdu := attr.PDUData
	if pdu == nil {
		return nil, &catalog.ConfigurationError{Field: attr.Name, Message: "PDU field requires pduData", Err: catalog.ErrMalformedField}
	}
	if pdu.Subtype == catalog.TypePDU {
		return nil, &catalog.ConfigurationError{Field: attr.Name, Message: "PDU subtype cannot itself be PDU", Err: catalog.ErrUnknownFieldType}
	}
	if pdu.RoundsCount < 1 {
		return nil, &catalog.ConfigurationError{
			Field:   attr.Name,
			Message: fmt.Sprintf("PDU roundsCount must be at least 1, got %d", pdu.RoundsCount),
			Err:     catalog.ErrMalformedField,
		}
	}

	inner, err := scalarShape(attr.Name, pdu.Subtype, nil)
	if err != nil {
		return nil, err
	}
	return RoundScoped{
		Inner:       inner,
		RoundsCount: pdu.RoundsCount,
		RoundsNames: append([]string(nil), pdu.RoundsNames...),
	}, nil
}

func scalarShape(name string, t catalog.FieldType, choices []catalog.Choice) (Shape, error) {
	switch t {
	case catalog.TypeString, catalog.TypeGeo:
		return SingleValue{FieldType: t}, nil
	case catalog.TypeSelectOne:
		return SingleValue{FieldType: t, Choices: choices}, nil
	case catalog.TypeSelectMany:
		return MultiValue{Choices: choices}, nil
	case catalog.TypeInteger, catalog.TypeDecimal, catalog.TypeDate:
		return Range{FieldType: t}, nil
	case catalog.TypeBool:
		return Toggle{}, nil
	case catalog.TypePDU:
		return nil, &catalog.ConfigurationError{Field: name, Message: "PDU is not a scalar type", Err: catalog.ErrUnknownFieldType}
	default:
		return nil, &catalog.ConfigurationError{
			Field:   name,
			Message: fmt.Sprintf("type %q is not supported", t),
			Err:     catalog.ErrUnknownFieldType,
		}
	}
}

// DefaultValue resolves attr's shape and returns its seed value.
func DefaultValue(attr *catalog.FieldAttribute) (Value, error) {
	shape, err := ResolveEditorShape(attr)
	if err != nil {
		return nil, err
	}
	return shape.Default(), nil
}
