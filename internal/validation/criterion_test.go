package validation

import (
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

func testContext(t *testing.T) Context {
	return Context{
		Channels: catalog.DefaultSource().PaymentChannels,
		Catalog:  testCatalog(t),
	}
}

// ruleFor builds a chosen rule holding v.
func ruleFor(t *testing.T, d catalog.Domain, name string, v editor.Value) rules.Rule {
	t.Helper()
	attr, ok := testCatalog(t).Lookup(d, name)
	if !ok {
		t.Fatalf("field %s/%s not in catalog", d, name)
	}
	return rules.Rule{FieldName: name, Attribute: attr, Value: v}
}

func householdCriterion(rs ...rules.Rule) criteria.Criterion {
	return criteria.Criterion{HouseholdBlocks: []rules.Block{{Rules: rs}}}
}

func TestValidateCriterion_PaymentChannelSchemas(t *testing.T) {
	tests := []struct {
		name       string
		index      int
		open       bool
		dm, fsp    *string
		wantFields []string
	}{
		{
			name:       "first criterion, open, fsp blank",
			index:      0,
			open:       true,
			dm:         editor.Ptr("cash"),
			wantFields: []string{"fsp"},
		},
		{
			name:       "first criterion, open, both blank",
			index:      0,
			open:       true,
			wantFields: []string{"deliveryMechanism", "fsp"},
		},
		{
			name:  "first criterion, open, complete",
			index: 0,
			open:  true,
			dm:    editor.Ptr("cash"),
			fsp:   editor.Ptr("Cash Desk"),
		},
		{
			name:  "second criterion, both blank",
			index: 1,
			open:  true,
		},
		{
			name:  "first criterion, closed, both blank",
			index: 0,
			open:  false,
		},
		{
			name:       "lenient schema still checks compatibility",
			index:      1,
			dm:         editor.Ptr("cash"),
			fsp:        editor.Ptr("M-Pesa"),
			wantFields: []string{"fsp"},
		},
		{
			name:       "unknown mechanism",
			index:      1,
			dm:         editor.Ptr("voucher"),
			wantFields: []string{"deliveryMechanism"},
		},
		{
			name:       "fsp without mechanism",
			index:      1,
			fsp:        editor.Ptr("M-Pesa"),
			wantFields: []string{"fsp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			ctx.CriteriaIndex = tt.index
			ctx.PaymentChannelOpen = tt.open

			c := criteria.Criterion{DeliveryMechanism: tt.dm, FSP: tt.fsp}
			result, err := ValidateCriterion(c, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := result.Fields()
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("error fields = %v, want %v (%v)", got, tt.wantFields, result.Errors)
			}
			if result.Valid != (len(tt.wantFields) == 0) {
				t.Errorf("Valid = %v", result.Valid)
			}
		})
	}
}

func TestValidateCriterion_MechanismSwitchClearsFSP(t *testing.T) {
	channels := catalog.DefaultSource().PaymentChannels

	fs := criteria.OpenPaymentChannel(criteria.NewForm())
	fs = criteria.SelectDeliveryMechanism(fs, "cash", channels)
	fs = criteria.SelectFSP(fs, "Cash Desk")
	fs = criteria.SelectDeliveryMechanism(fs, "transfer_to_account", channels)

	c := criteria.Assemble(fs)
	if c.FSP != nil {
		t.Fatalf("FSP = %q, want cleared", *c.FSP)
	}

	ctx := testContext(t)
	ctx.PaymentChannelOpen = true

	result, err := ValidateCriterion(c, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Errors["fsp"]; !ok || len(result.Errors) != 1 {
		t.Errorf("errors = %v, want only fsp", result.Errors)
	}

	ctx.CriteriaIndex = 1
	result, err = ValidateCriterion(c, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Errorf("errors = %v, want none for a later criterion", result.Errors)
	}
}

func TestValidateCriterion_Rules(t *testing.T) {
	tests := []struct {
		name      string
		criterion func(t *testing.T) criteria.Criterion
		wantField string
	}{
		{
			name: "lone placeholder is allowed",
			criterion: func(t *testing.T) criteria.Criterion {
				return criteria.New()
			},
		},
		{
			name: "placeholder beside a chosen rule",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "size", editor.Between(editor.Ptr("1"), nil)), rules.Rule{})
			},
			wantField: "householdsFiltersBlocks[0][1].fieldName",
		},
		{
			name: "unknown field",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(rules.Rule{FieldName: "nope", Value: editor.Text("x")})
			},
			wantField: "householdsFiltersBlocks[0][0].fieldName",
		},
		{
			name: "field from another domain",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainIndividual, "age", editor.Between(editor.Ptr("1"), nil)))
			},
			wantField: "householdsFiltersBlocks[0][0].fieldName",
		},
		{
			name: "value of the wrong shape",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "size", editor.Text("3")))
			},
			wantField: "householdsFiltersBlocks[0][0].value",
		},
		{
			name: "empty text",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "village", editor.Text("  ")))
			},
			wantField: "householdsFiltersBlocks[0][0].value",
		},
		{
			name: "select one outside choices",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "residence_status", editor.Text("NOMAD")))
			},
			wantField: "householdsFiltersBlocks[0][0].value",
		},
		{
			name: "empty multi select",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "assistance_type_h_f", editor.List()))
			},
			wantField: "householdsFiltersBlocks[0][0].value",
		},
		{
			name: "multi select outside choices",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "assistance_type_h_f", editor.List("cash", "gold")))
			},
			wantField: "householdsFiltersBlocks[0][0].value",
		},
		{
			name: "range without bounds",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "size", editor.Between(nil, editor.Ptr(" "))))
			},
			wantField: "householdsFiltersBlocks[0][0].from",
		},
		{
			name: "integer bound not a number",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "size", editor.Between(editor.Ptr("2.5"), nil)))
			},
			wantField: "householdsFiltersBlocks[0][0].from",
		},
		{
			name: "inverted decimal range",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "total_cash_received", editor.Between(editor.Ptr("10.5"), editor.Ptr("3"))))
			},
			wantField: "householdsFiltersBlocks[0][0].to",
		},
		{
			name: "malformed date",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "first_registration_date", editor.Between(nil, editor.Ptr("01/02/2024"))))
			},
			wantField: "householdsFiltersBlocks[0][0].to",
		},
		{
			name: "valid date range",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(ruleFor(t, catalog.DomainHousehold, "first_registration_date", editor.Between(editor.Ptr("2023-01-01"), editor.Ptr("2024-01-01"))))
			},
		},
		{
			name: "unset toggle",
			criterion: func(t *testing.T) criteria.Criterion {
				return criteria.Criterion{CollectorBlocks: []rules.Block{{Rules: []rules.Rule{
					ruleFor(t, catalog.DomainCollector, "has_bank_account", editor.BoolValue{}),
				}}}}
			},
			wantField: "collectorsFiltersBlocks[0][0].value",
		},
		{
			name: "false toggle is a value",
			criterion: func(t *testing.T) criteria.Criterion {
				return criteria.Criterion{CollectorBlocks: []rules.Block{{Rules: []rules.Rule{
					ruleFor(t, catalog.DomainCollector, "has_bank_account", editor.Bool(false)),
				}}}}
			},
		},
		{
			name: "name resolved through the catalog",
			criterion: func(t *testing.T) criteria.Criterion {
				return householdCriterion(rules.Rule{FieldName: "size", Value: editor.Between(nil, editor.Ptr("4"))})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateCriterion(tt.criterion(t), testContext(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantField == "" {
				if !result.Valid {
					t.Errorf("errors = %v, want none", result.Errors)
				}
				return
			}
			if len(result.Errors) != 1 {
				t.Errorf("errors = %v, want exactly one on %s", result.Errors, tt.wantField)
			}
			if _, ok := result.Errors[tt.wantField]; !ok {
				t.Errorf("errors = %v, want one on %s", result.Errors, tt.wantField)
			}
		})
	}
}

func TestValidateCriterion_PDURoundProperty(t *testing.T) {
	cat := testCatalog(t)
	attr, _ := cat.Lookup(catalog.DomainIndividual, "school_enrolled")
	roundsCount := attr.PDUData.RoundsCount
	const key = "individualsFiltersBlocks[0][0].roundNumber"

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("round error iff absent or out of range", prop.ForAll(
		func(round int, absent bool) bool {
			v := editor.RoundValue{Inner: editor.Bool(true)}
			if !absent {
				v.Round = &round
			}
			c := criteria.Criterion{IndividualBlocks: []rules.Block{{Rules: []rules.Rule{
				{FieldName: attr.Name, Attribute: attr, Value: v},
			}}}}

			result, err := ValidateCriterion(c, Context{})
			if err != nil {
				return false
			}
			_, hasErr := result.Errors[key]
			wantErr := absent || round < 1 || round > roundsCount
			return hasErr == wantErr
		},
		gen.IntRange(-5, roundsCount+5),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestValidateCriterion_PDUInnerValue(t *testing.T) {
	attr, _ := testCatalog(t).Lookup(catalog.DomainIndividual, "muac")
	c := criteria.Criterion{IndividualBlocks: []rules.Block{{Rules: []rules.Rule{
		{FieldName: attr.Name, Attribute: attr, Value: editor.InRound(2, editor.Between(nil, nil))},
	}}}}

	result, err := ValidateCriterion(c, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Errors["individualsFiltersBlocks[0][0].from"]; !ok || len(result.Errors) != 1 {
		t.Errorf("errors = %v, want only the missing bound", result.Errors)
	}
}

func TestValidateCriterion_IDLists(t *testing.T) {
	c := criteria.Criterion{
		HouseholdIDs:  "HH-20-0001.0001, BADID, HH-20-0001.0001",
		IndividualIDs: "IND-20-0001.0001",
	}

	result, err := ValidateCriterion(c, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := result.Errors["householdIds"]; !strings.Contains(msg, "BADID") {
		t.Errorf("householdIds error = %q, want it to name BADID", msg)
	}
	if _, ok := result.Errors["householdIds.duplicates"]; ok {
		t.Error("repeats within one list must not be flagged as duplicates")
	}
	if _, ok := result.Errors["individualIds"]; ok {
		t.Error("valid individual IDs reported as invalid")
	}
	if got := result.IDLists["householdIds"]; len(got.Invalid) != 1 || len(got.Valid) != 1 {
		t.Errorf("household report = %+v", got)
	}
}

func TestValidateCriterion_ConfiguredPattern(t *testing.T) {
	ctx := Context{HouseholdIDPattern: regexpMust(t, `^H\d+$`)}
	result, err := ValidateCriterion(criteria.Criterion{HouseholdIDs: "H1 H22"}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestValidateCriterion_ConfigurationError(t *testing.T) {
	bad := &catalog.FieldAttribute{Name: "blob", Domain: catalog.DomainHousehold, Type: "BLOB"}
	c := householdCriterion(rules.Rule{FieldName: "blob", Attribute: bad, Value: editor.Text("x")})

	_, err := ValidateCriterion(c, Context{})
	if !catalog.IsConfigurationError(err) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}

func TestValidateDefinition(t *testing.T) {
	size := func(t *testing.T) rules.Rule {
		return ruleFor(t, catalog.DomainHousehold, "size", editor.Between(editor.Ptr("2"), nil))
	}

	t.Run("no criteria", func(t *testing.T) {
		result, err := ValidateDefinition(criteria.Definition{}, testContext(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := result.Errors["criteria"]; !ok {
			t.Errorf("errors = %v, want criteria", result.Errors)
		}
	})

	t.Run("duplicate IDs across criteria", func(t *testing.T) {
		def := criteria.Definition{Criteria: []criteria.Criterion{
			{HouseholdIDs: "HH-20-0001.0001"},
			{HouseholdIDs: "HH-20-0001.0001 HH-20-0001.0002"},
		}}
		result, err := ValidateDefinition(def, testContext(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Errors) != 1 {
			t.Errorf("errors = %v, want one", result.Errors)
		}
		if _, ok := result.Errors["criteria[1].householdIds.duplicates"]; !ok {
			t.Errorf("errors = %v, want a duplicate on the second criterion", result.Errors)
		}
	})

	t.Run("payment channel required on the first criterion only", func(t *testing.T) {
		ctx := testContext(t)
		ctx.PaymentChannelOpen = true
		def := criteria.Definition{Criteria: []criteria.Criterion{
			householdCriterion(size(t)),
			householdCriterion(size(t)),
		}}
		result, err := ValidateDefinition(def, ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "criteria[0].deliveryMechanism,criteria[0].fsp"
		if got := strings.Join(result.Fields(), ","); got != want {
			t.Errorf("error fields = %s, want %s", got, want)
		}
	})

	t.Run("empty criterion", func(t *testing.T) {
		def := criteria.Definition{Criteria: []criteria.Criterion{criteria.New()}}
		result, err := ValidateDefinition(def, testContext(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := result.Errors["criteria[0]"]; !ok {
			t.Errorf("errors = %v, want criteria[0]", result.Errors)
		}
	})
}
