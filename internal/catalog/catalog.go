package catalog

import (
	"strings"
)

// Catalog is an immutable registry of field attributes keyed by (domain, name).
// Lookups return pointers into the catalog; callers must not mutate them.
type Catalog struct {
	byDomain map[Domain]map[string]*FieldAttribute
	ordered  map[Domain][]*FieldAttribute
}

// pduSubtypes are the scalar types a round-scoped field may carry.
var pduSubtypes = map[FieldType]struct{}{
	TypeString:  {},
	TypeInteger: {},
	TypeDecimal: {},
	TypeBool:    {},
	TypeDate:    {},
}

// New validates attrs and builds a Catalog. Any malformed entry aborts the
// build with a *ConfigurationError.
func New(attrs []FieldAttribute) (*Catalog, error) {
	c := &Catalog{
		byDomain: make(map[Domain]map[string]*FieldAttribute, len(Domains)),
		ordered:  make(map[Domain][]*FieldAttribute, len(Domains)),
	}
	for _, d := range Domains {
		c.byDomain[d] = make(map[string]*FieldAttribute)
	}

	for i := range attrs {
		attr := cloneAttribute(attrs[i])
		if err := ValidateAttribute(&attr); err != nil {
			return nil, err
		}
		if _, exists := c.byDomain[attr.Domain][attr.Name]; exists {
			return nil, configError(attr.Name, ErrDuplicateField, "field %q declared twice in domain %q", attr.Name, attr.Domain)
		}
		c.byDomain[attr.Domain][attr.Name] = &attr
		c.ordered[attr.Domain] = append(c.ordered[attr.Domain], &attr)
	}
	return c, nil
}

// ValidateAttribute checks a single descriptor for internal consistency.
func ValidateAttribute(a *FieldAttribute) error {
	if strings.TrimSpace(a.Name) == "" {
		return configError("", ErrMalformedField, "field name must not be empty")
	}
	if !a.Domain.Valid() {
		return configError(a.Name, ErrUnknownDomain, "domain %q is not supported", a.Domain)
	}

	switch a.Type {
	case TypeSelectOne, TypeSelectMany:
		if len(a.Choices) == 0 {
			return configError(a.Name, ErrMalformedField, "%s field must declare choices", a.Type)
		}
	case TypeString, TypeInteger, TypeDecimal, TypeBool, TypeDate, TypeGeo, TypePDU:
		if len(a.Choices) > 0 {
			return configError(a.Name, ErrMalformedField, "%s field must not declare choices", a.Type)
		}
	default:
		return configError(a.Name, ErrUnknownFieldType, "type %q is not supported", a.Type)
	}

	if a.Type != TypePDU {
		if a.PDUData != nil {
			return configError(a.Name, ErrMalformedField, "pduData is only allowed on PDU fields")
		}
		return nil
	}

	if a.PDUData == nil {
		return configError(a.Name, ErrMalformedField, "PDU field requires pduData")
	}
	if _, ok := pduSubtypes[a.PDUData.Subtype]; !ok {
		return configError(a.Name, ErrUnknownFieldType, "PDU subtype %q is not supported", a.PDUData.Subtype)
	}
	if a.PDUData.RoundsCount < 1 {
		return configError(a.Name, ErrMalformedField, "PDU roundsCount must be at least 1, got %d", a.PDUData.RoundsCount)
	}
	return nil
}

// Lookup resolves a field name within a domain.
func (c *Catalog) Lookup(domain Domain, name string) (*FieldAttribute, bool) {
	if c == nil {
		return nil, false
	}
	fields, ok := c.byDomain[domain]
	if !ok {
		return nil, false
	}
	attr, ok := fields[name]
	return attr, ok
}

// Fields returns the attributes of a domain in declaration order.
func (c *Catalog) Fields(domain Domain) []FieldAttribute {
	if c == nil {
		return nil
	}
	out := make([]FieldAttribute, 0, len(c.ordered[domain]))
	for _, a := range c.ordered[domain] {
		out = append(out, cloneAttribute(*a))
	}
	return out
}

// Len returns the total number of attributes across all domains.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, fields := range c.ordered {
		n += len(fields)
	}
	return n
}

func cloneAttribute(a FieldAttribute) FieldAttribute {
	if a.Choices != nil {
		a.Choices = append([]Choice(nil), a.Choices...)
	}
	if a.PDUData != nil {
		pdu := *a.PDUData
		if pdu.RoundsNames != nil {
			pdu.RoundsNames = append([]string(nil), pdu.RoundsNames...)
		}
		a.PDUData = &pdu
	}
	return a
}
