package criteria

import "github.com/hopekit/targeting/internal/payment"

// FormState is the editor state of one criterion: the criterion itself and
// whether its payment-channel section is open.
type FormState struct {
	Criterion          Criterion
	PaymentChannelOpen bool
}

// NewForm returns the state of a freshly opened criterion dialog.
func NewForm() FormState {
	return FormState{Criterion: New()}
}

// Rehydrate builds the editor state for a saved criterion. The payment
// section opens when the criterion carries a payment channel.
func Rehydrate(c Criterion) FormState {
	return FormState{
		Criterion:          c,
		PaymentChannelOpen: c.DeliveryMechanism != nil || c.FSP != nil,
	}
}

// OpenPaymentChannel shows the payment-channel section.
func OpenPaymentChannel(fs FormState) FormState {
	fs.PaymentChannelOpen = true
	return fs
}

// ClosePaymentChannel hides the payment-channel section. Selections are
// kept so reopening restores them; Assemble omits them while closed.
func ClosePaymentChannel(fs FormState) FormState {
	fs.PaymentChannelOpen = false
	return fs
}

// SelectDeliveryMechanism sets the delivery mechanism. An empty dm clears
// it. A previously chosen FSP that cannot serve the new mechanism is
// cleared.
func SelectDeliveryMechanism(fs FormState, dm string, channels payment.Channels) FormState {
	c := fs.Criterion
	if dm == "" {
		c.DeliveryMechanism = nil
	} else {
		c.DeliveryMechanism = &dm
	}
	if c.FSP != nil && (c.DeliveryMechanism == nil || !channels.Compatible(dm, *c.FSP)) {
		c.FSP = nil
	}
	fs.Criterion = c
	return fs
}

// SelectFSP sets the FSP. An empty fsp clears it. Compatibility with the
// delivery mechanism is checked by validation.
func SelectFSP(fs FormState, fsp string) FormState {
	if fsp == "" {
		fs.Criterion.FSP = nil
	} else {
		fs.Criterion.FSP = &fsp
	}
	return fs
}

// Assemble packages the form into a submittable criterion: placeholder
// rules and the blocks they leave empty are removed, ID strings pass
// through untouched, and the payment channel is included only while its
// section is open.
func Assemble(fs FormState) Criterion {
	c := Compact(fs.Criterion)
	if !fs.PaymentChannelOpen {
		c.DeliveryMechanism = nil
		c.FSP = nil
	}
	return c
}

// AssembleAll assembles every form of a targeting definition in order.
func AssembleAll(forms []FormState) Definition {
	def := Definition{Criteria: make([]Criterion, 0, len(forms))}
	for _, fs := range forms {
		def.Criteria = append(def.Criteria, Assemble(fs))
	}
	return def
}
