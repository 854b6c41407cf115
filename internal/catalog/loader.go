package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hopekit/targeting/internal/payment"
)

// Source is the on-disk shape of a catalog file. Files ending in .toml are
// read as TOML; anything else as YAML, which covers JSON too.
type Source struct {
	Fields          []FieldAttribute `yaml:"fields" json:"fields" toml:"fields"`
	PaymentChannels payment.Channels `yaml:"paymentChannels" json:"paymentChannels" toml:"paymentChannels"`
}

// LoadFile reads and validates a catalog file. An empty path yields the
// built-in default source.
func LoadFile(path string) (*Catalog, payment.Channels, error) {
	src := DefaultSource()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		src = Source{}
		if err := decodeSource(path, data, &src); err != nil {
			return nil, nil, fmt.Errorf("failed to parse catalog file: %w", err)
		}
	}

	cat, err := New(src.Fields)
	if err != nil {
		return nil, nil, err
	}
	return cat, src.PaymentChannels, nil
}

func decodeSource(path string, data []byte, src *Source) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, src)
	}
	return yaml.Unmarshal(data, src)
}

// DefaultSource is a small built-in catalog used in development and tests.
func DefaultSource() Source {
	return Source{
		Fields: []FieldAttribute{
			{Name: "size", Label: "Household size", Domain: DomainHousehold, Type: TypeInteger},
			{Name: "residence_status", Label: "Residence status", Domain: DomainHousehold, Type: TypeSelectOne, Choices: []Choice{
				{Value: "HOST", Label: "Host"},
				{Value: "IDP", Label: "Displaced | Internally displaced people"},
				{Value: "REFUGEE", Label: "Displaced | Refugee / asylum seeker"},
			}},
			{Name: "admin2", Label: "Household resides in which admin2?", Domain: DomainHousehold, Type: TypeGeo},
			{Name: "village", Label: "Village", Domain: DomainHousehold, Type: TypeString},
			{Name: "first_registration_date", Label: "First registration date", Domain: DomainHousehold, Type: TypeDate},
			{Name: "total_cash_received", Label: "Total cash received", Domain: DomainHousehold, Type: TypeDecimal},
			{Name: "assistance_type_h_f", Label: "Assistance types received", Domain: DomainHousehold, Type: TypeSelectMany, IsFlexField: true, Choices: []Choice{
				{Value: "cash", Label: "Cash"},
				{Value: "food", Label: "Food"},
				{Value: "shelter", Label: "Shelter"},
			}},
			{Name: "age", Label: "Age (calculated)", Domain: DomainIndividual, Type: TypeInteger},
			{Name: "sex", Label: "Gender", Domain: DomainIndividual, Type: TypeSelectOne, Choices: []Choice{
				{Value: "FEMALE", Label: "Female"},
				{Value: "MALE", Label: "Male"},
			}},
			{Name: "disability", Label: "Disability", Domain: DomainIndividual, Type: TypeBool},
			{Name: "birth_date", Label: "Birth date", Domain: DomainIndividual, Type: TypeDate},
			{Name: "observed_disability", Label: "Observed disability", Domain: DomainIndividual, Type: TypeSelectMany, Choices: []Choice{
				{Value: "SEEING", Label: "Difficulty seeing"},
				{Value: "HEARING", Label: "Difficulty hearing"},
				{Value: "WALKING", Label: "Difficulty walking"},
			}},
			{Name: "school_enrolled", Label: "School enrolled", Domain: DomainIndividual, Type: TypePDU, IsFlexField: true, PDUData: &PDUData{
				Subtype:     TypeBool,
				RoundsCount: 3,
				RoundsNames: []string{"January", "February", "March"},
			}},
			{Name: "muac", Label: "MUAC measurement", Domain: DomainIndividual, Type: TypePDU, IsFlexField: true, PDUData: &PDUData{
				Subtype:     TypeDecimal,
				RoundsCount: 2,
			}},
			{Name: "has_bank_account", Label: "Collector has bank account", Domain: DomainCollector, Type: TypeBool},
			{Name: "phone_no", Label: "Collector phone number", Domain: DomainCollector, Type: TypeString},
			{Name: "collector_age", Label: "Collector age", Domain: DomainCollector, Type: TypeInteger},
		},
		PaymentChannels: payment.Channels{
			{DeliveryMechanism: "cash", FSPs: []string{"Western Union", "Cash Desk"}},
			{DeliveryMechanism: "transfer_to_account", FSPs: []string{"Bank of Europe"}},
			{DeliveryMechanism: "mobile_money", FSPs: []string{"M-Pesa", "Western Union"}},
		},
	}
}
