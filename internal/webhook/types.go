package webhook

import "time"

// Delivery headers sent with every webhook request.
const (
	HeaderSignature = "X-Targeting-Signature"
	HeaderEvent     = "X-Targeting-Event"
	HeaderDelivery  = "X-Targeting-Delivery"
)

// Endpoint is one webhook receiver.
type Endpoint struct {
	URL string
	// Events restricts delivery to these event types; empty means all.
	Events []string
	// Programmes restricts delivery to these programme IDs; empty means all.
	Programmes []string
	MaxRetries int
	Timeout    time.Duration
}

const (
	defaultMaxRetries = 3
	defaultTimeout    = 10 * time.Second
)

// EndpointsFromURLs builds endpoints with default retry and timeout settings
// that receive every event.
func EndpointsFromURLs(urls []string) []Endpoint {
	endpoints := make([]Endpoint, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, Endpoint{URL: u, MaxRetries: defaultMaxRetries, Timeout: defaultTimeout})
	}
	return endpoints
}
