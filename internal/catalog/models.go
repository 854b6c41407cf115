// Package catalog holds the registry of filterable fields a targeting
// criterion can reference. A Catalog is built once per editing session and
// never mutated afterwards.
package catalog

// Domain identifies which population a field filters.
type Domain string

const (
	DomainHousehold  Domain = "household"
	DomainIndividual Domain = "individual"
	DomainCollector  Domain = "collector"
)

// Domains lists every domain in wire order.
var Domains = []Domain{DomainHousehold, DomainIndividual, DomainCollector}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainHousehold, DomainIndividual, DomainCollector:
		return true
	}
	return false
}

// FieldType is the value type of a field (string values for clean JSON serialization).
type FieldType string

const (
	TypeString     FieldType = "STRING"
	TypeInteger    FieldType = "INTEGER"
	TypeDecimal    FieldType = "DECIMAL"
	TypeBool       FieldType = "BOOL"
	TypeSelectOne  FieldType = "SELECT_ONE"
	TypeSelectMany FieldType = "SELECT_MANY"
	TypeDate       FieldType = "DATE"
	TypeGeo        FieldType = "GEO"
	TypePDU        FieldType = "PDU"
)

// Choice is one selectable option of a SELECT_ONE or SELECT_MANY field.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// PDUData describes a round-scoped flexible field. Subtype is the scalar
// type each round's value has.
type PDUData struct {
	Subtype     FieldType `json:"subtype" yaml:"subtype"`
	RoundsCount int       `json:"roundsCount" yaml:"roundsCount"`
	RoundsNames []string  `json:"roundsNames,omitempty" yaml:"roundsNames,omitempty"`
}

// FieldAttribute describes one filterable field.
type FieldAttribute struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Domain      Domain    `json:"domain" yaml:"domain"`
	Type        FieldType `json:"type" yaml:"type"`
	Choices     []Choice  `json:"choices,omitempty" yaml:"choices,omitempty"`
	IsFlexField bool      `json:"isFlexField" yaml:"isFlexField"`
	PDUData     *PDUData  `json:"pduData,omitempty" yaml:"pduData,omitempty"`
}

// HasChoice reports whether value is one of the attribute's declared choices.
func (a *FieldAttribute) HasChoice(value string) bool {
	for _, c := range a.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// ValueType returns the type a single value of this field has: the PDU
// subtype for round-scoped fields, the field type otherwise.
func (a *FieldAttribute) ValueType() FieldType {
	if a.Type == TypePDU && a.PDUData != nil {
		return a.PDUData.Subtype
	}
	return a.Type
}
