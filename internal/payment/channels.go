// Package payment models the delivery-mechanism / FSP pairings a criterion
// may require. FSP options depend on the selected delivery mechanism.
package payment

// Channel pairs one delivery mechanism with the financial service providers
// able to serve it.
type Channel struct {
	DeliveryMechanism string   `json:"deliveryMechanism" yaml:"deliveryMechanism"`
	FSPs              []string `json:"fsps" yaml:"fsps"`
}

// Channels is the list of pairings offered by the payment-channel service.
type Channels []Channel

// HasMechanism reports whether dm is a known delivery mechanism.
func (cs Channels) HasMechanism(dm string) bool {
	for _, c := range cs {
		if c.DeliveryMechanism == dm {
			return true
		}
	}
	return false
}

// FSPsFor returns the FSPs compatible with dm, or nil if dm is unknown.
func (cs Channels) FSPsFor(dm string) []string {
	for _, c := range cs {
		if c.DeliveryMechanism == dm {
			return append([]string(nil), c.FSPs...)
		}
	}
	return nil
}

// Compatible reports whether fsp can serve dm.
func (cs Channels) Compatible(dm, fsp string) bool {
	for _, f := range cs.FSPsFor(dm) {
		if f == fsp {
			return true
		}
	}
	return false
}

// Mechanisms lists the delivery mechanisms in declaration order.
func (cs Channels) Mechanisms() []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.DeliveryMechanism)
	}
	return out
}
