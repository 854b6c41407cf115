package wire

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/rules"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(catalog.DefaultSource().Fields)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

// sampleValue returns a value fitting attr, picked by seed. Some picks are
// incomplete on purpose: serialization does not judge completeness.
func sampleValue(attr *catalog.FieldAttribute, seed int) editor.Value {
	var inner editor.Value
	switch attr.ValueType() {
	case catalog.TypeString, catalog.TypeGeo:
		inner = editor.Text([]string{"", "Kabul", "AF0101"}[seed%3])
	case catalog.TypeSelectOne:
		inner = editor.Text(attr.Choices[seed%len(attr.Choices)].Value)
	case catalog.TypeSelectMany:
		var vals []string
		for _, c := range attr.Choices[:seed%(len(attr.Choices)+1)] {
			vals = append(vals, c.Value)
		}
		inner = editor.List(vals...)
	case catalog.TypeInteger:
		inner = []editor.RangeValue{
			editor.Between(editor.Ptr("1"), nil),
			editor.Between(nil, editor.Ptr("10")),
			editor.Between(editor.Ptr("2"), editor.Ptr("5")),
			{},
		}[seed%4]
	case catalog.TypeDecimal:
		inner = editor.Between(editor.Ptr("2.50"), editor.Ptr("7.25"))
	case catalog.TypeDate:
		inner = editor.Between(editor.Ptr("2023-01-01"), nil)
	case catalog.TypeBool:
		inner = []editor.BoolValue{editor.Bool(true), editor.Bool(false), {}}[seed%3]
	}

	if attr.Type == catalog.TypePDU {
		if seed%5 == 0 {
			return editor.RoundValue{Inner: inner}
		}
		return editor.InRound(1+seed%attr.PDUData.RoundsCount, inner)
	}
	return inner
}

// buildCriterion derives a criterion from seeds, placeholders included.
func buildCriterion(cat *catalog.Catalog, seeds []int) criteria.Criterion {
	c := criteria.New()
	for _, seed := range seeds {
		d := catalog.Domains[seed%len(catalog.Domains)]
		fields := cat.Fields(d)
		blocks, _ := c.Blocks(d)

		switch seed % 7 {
		case 0:
			c, _ = criteria.AddBlock(c, d)
		case 1:
			c, _ = criteria.AddRule(c, d, seed%len(blocks))
		default:
			bi := seed % len(blocks)
			ri := len(blocks[bi].Rules) - 1
			attr, _ := cat.Lookup(d, fields[seed%len(fields)].Name)
			c, _ = criteria.ChooseField(c, d, bi, ri, attr)
			c, _ = criteria.SetValue(c, d, bi, ri, sampleValue(attr, seed/7))
		}
	}

	if len(seeds) > 0 && seeds[0]%2 == 0 {
		c.HouseholdIDs = "HH-20-0001.0001, HH-20-0001.0002"
		c.DeliveryMechanism = editor.Ptr("cash")
		c.FSP = editor.Ptr("Cash Desk")
	}
	return c
}

func TestRoundTrip_Property(t *testing.T) {
	cat := testCatalog(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	// Criteria built through the editor never hold an empty mechanism or FSP:
	// SelectDeliveryMechanism and SelectFSP store "" as nil, and decoding
	// does the same, so the property only ranges over nil or non-empty values.
	properties.Property("from(to(c)) equals c without placeholders", prop.ForAll(
		func(seeds []int) bool {
			c := buildCriterion(cat, seeds)
			w, err := ToWireFormat(c)
			if err != nil {
				t.Logf("ToWireFormat: %v", err)
				return false
			}
			back, err := FromWireFormat(w, cat)
			if err != nil {
				t.Logf("FromWireFormat: %v", err)
				return false
			}
			return reflect.DeepEqual(back, criteria.Compact(c))
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}

func TestRoundTrip_ThroughJSON(t *testing.T) {
	cat := testCatalog(t)
	c := buildCriterion(cat, []int{2, 3, 4, 5, 6, 9, 10, 11, 12, 13, 16, 17, 18, 19, 20, 23})

	w, err := ToWireFormat(c)
	if err != nil {
		t.Fatalf("ToWireFormat: %v", err)
	}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	var decoded WireCriterion
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	back, err := FromWireFormat(decoded, cat)
	if err != nil {
		t.Fatalf("FromWireFormat: %v", err)
	}
	if !reflect.DeepEqual(back, criteria.Compact(c)) {
		t.Errorf("JSON round trip changed the criterion\n got: %+v\nwant: %+v", back, criteria.Compact(c))
	}
}

func TestRoundTrip_EmptyPaymentSelection(t *testing.T) {
	cat := testCatalog(t)

	empty := ""
	back, err := FromWireFormat(WireCriterion{DeliveryMechanism: &empty, FSP: &empty}, cat)
	if err != nil {
		t.Fatalf("FromWireFormat: %v", err)
	}
	if back.DeliveryMechanism != nil || back.FSP != nil {
		t.Errorf("empty payment values should decode to nil, got %v / %v", back.DeliveryMechanism, back.FSP)
	}

	fs := criteria.OpenPaymentChannel(criteria.NewForm())
	fs = criteria.SelectDeliveryMechanism(fs, "", catalog.DefaultSource().PaymentChannels)
	fs = criteria.SelectFSP(fs, "")
	c := criteria.Assemble(fs)
	if c.DeliveryMechanism != nil || c.FSP != nil {
		t.Fatalf("editor stored an empty selection: %v / %v", c.DeliveryMechanism, c.FSP)
	}

	w, err := ToWireFormat(c)
	if err != nil {
		t.Fatalf("ToWireFormat: %v", err)
	}
	back, err = FromWireFormat(w, cat)
	if err != nil {
		t.Fatalf("FromWireFormat: %v", err)
	}
	if !reflect.DeepEqual(back, criteria.Compact(c)) {
		t.Errorf("round trip changed the criterion\n got: %+v\nwant: %+v", back, criteria.Compact(c))
	}
}

func TestToWireFormat_Shape(t *testing.T) {
	cat := testCatalog(t)
	size, _ := cat.Lookup(catalog.DomainHousehold, "size")
	muac, _ := cat.Lookup(catalog.DomainIndividual, "muac")
	aid, _ := cat.Lookup(catalog.DomainHousehold, "assistance_type_h_f")

	c := criteria.Criterion{
		HouseholdIDs: "HH-20-0001.0001",
		HouseholdBlocks: []rules.Block{{Rules: []rules.Rule{
			{FieldName: "size", Attribute: size, Value: editor.Between(editor.Ptr("2"), nil)},
			{},
			{FieldName: aid.Name, Attribute: aid, Value: editor.List("cash")},
		}}},
		IndividualBlocks: []rules.Block{
			{Rules: []rules.Rule{{}}},
			{Rules: []rules.Rule{{FieldName: "muac", Attribute: muac, Value: editor.InRound(2, editor.Between(nil, editor.Ptr("11.5")))}}},
		},
	}

	w, err := ToWireFormat(c)
	if err != nil {
		t.Fatalf("ToWireFormat: %v", err)
	}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	want := `{"householdsFiltersBlocks":[[{"fieldName":"size","from":"2"},{"fieldName":"assistance_type_h_f","isFlexField":true,"value":["cash"]}]],` +
		`"individualsFiltersBlocks":[[{"fieldName":"muac","isFlexField":true,"roundNumber":2,"to":"11.5"}]],` +
		`"collectorsFiltersBlocks":[],"householdIds":"HH-20-0001.0001","individualIds":""}`
	if string(data) != want {
		t.Errorf("wire JSON =\n%s\nwant\n%s", data, want)
	}
}

func TestToWireFormat_RejectsMismatchedValue(t *testing.T) {
	cat := testCatalog(t)
	size, _ := cat.Lookup(catalog.DomainHousehold, "size")
	c := criteria.Criterion{HouseholdBlocks: []rules.Block{{Rules: []rules.Rule{
		{FieldName: "size", Attribute: size, Value: editor.Text("3")},
	}}}}

	if _, err := ToWireFormat(c); !errors.Is(err, rules.ErrValueShapeMismatch) {
		t.Errorf("error = %v, want ErrValueShapeMismatch", err)
	}
}

func TestFromWireFormat_AcceptsLooseJSON(t *testing.T) {
	cat := testCatalog(t)
	payload := `{
		"householdsFiltersBlocks": [[{"fieldName": "size", "from": 2, "to": "6"}, {"fieldName": ""}]],
		"individualsFiltersBlocks": [[{"fieldName": "disability", "value": "true"}], []],
		"collectorsFiltersBlocks": [],
		"householdIds": "",
		"individualIds": "",
		"deliveryMechanism": ""
	}`

	var w WireCriterion
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	c, err := FromWireFormat(w, cat)
	if err != nil {
		t.Fatalf("FromWireFormat: %v", err)
	}

	if len(c.HouseholdBlocks) != 1 || len(c.HouseholdBlocks[0].Rules) != 1 {
		t.Fatalf("household blocks = %+v", c.HouseholdBlocks)
	}
	if got := c.HouseholdBlocks[0].Rules[0].Value; !reflect.DeepEqual(got, editor.Between(editor.Ptr("2"), editor.Ptr("6"))) {
		t.Errorf("size value = %#v", got)
	}
	if got := c.IndividualBlocks[0].Rules[0].Value; !reflect.DeepEqual(got, editor.Bool(true)) {
		t.Errorf("disability value = %#v", got)
	}
	if len(c.IndividualBlocks) != 1 || c.CollectorBlocks != nil {
		t.Error("empty wire blocks should be dropped")
	}
	if c.DeliveryMechanism != nil {
		t.Error("empty delivery mechanism should decode as absent")
	}
}

func TestFromWireFormat_Errors(t *testing.T) {
	cat := testCatalog(t)
	tests := []struct {
		name    string
		wire    WireCriterion
		wantErr error
	}{
		{
			name:    "unknown field",
			wire:    WireCriterion{HouseholdsFiltersBlocks: [][]WireRule{{{FieldName: "nope"}}}},
			wantErr: ErrUnknownField,
		},
		{
			name:    "field from another domain",
			wire:    WireCriterion{CollectorsFiltersBlocks: [][]WireRule{{{FieldName: "size"}}}},
			wantErr: ErrUnknownField,
		},
		{
			name:    "list for a text field",
			wire:    WireCriterion{HouseholdsFiltersBlocks: [][]WireRule{{{FieldName: "village", Value: []any{"a"}}}}},
			wantErr: ErrMalformedValue,
		},
		{
			name:    "number in a multi select",
			wire:    WireCriterion{HouseholdsFiltersBlocks: [][]WireRule{{{FieldName: "assistance_type_h_f", Value: []any{1.0}}}}},
			wantErr: ErrMalformedValue,
		},
		{
			name:    "word for a toggle",
			wire:    WireCriterion{IndividualsFiltersBlocks: [][]WireRule{{{FieldName: "disability", Value: "maybe"}}}},
			wantErr: ErrMalformedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromWireFormat(tt.wire, cat)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	def := criteria.Definition{Criteria: []criteria.Criterion{
		buildCriterion(cat, []int{2, 9}),
		buildCriterion(cat, []int{3, 4, 5}),
	}}

	w, err := DefinitionToWire(def)
	if err != nil {
		t.Fatalf("DefinitionToWire: %v", err)
	}
	back, err := DefinitionFromWire(w, cat)
	if err != nil {
		t.Fatalf("DefinitionFromWire: %v", err)
	}
	for i := range def.Criteria {
		if !reflect.DeepEqual(back.Criteria[i], criteria.Compact(def.Criteria[i])) {
			t.Errorf("criteria[%d] changed in round trip", i)
		}
	}

	bad := WireDefinition{Criteria: []WireCriterion{{}, {HouseholdsFiltersBlocks: [][]WireRule{{{FieldName: "nope"}}}}}}
	if _, err := DefinitionFromWire(bad, cat); err == nil || !strings.Contains(err.Error(), "criteria[1]") {
		t.Errorf("error = %v, want it to name criteria[1]", err)
	}
}
