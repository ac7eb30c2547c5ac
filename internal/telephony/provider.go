package telephony

import (
	"context"
	"strings"
)

// Provider is the outbound telephony surface the call flow depends on.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - The provider calls back into callbackBaseURL for every conversation step.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// PlaceCall rings toNumber and returns the provider's call id.
	PlaceCall(ctx context.Context, toNumber, callbackBaseURL string) (string, error)
}

// Webhook paths, relative to the public base URL.
const (
	WelcomePath = "/webhooks/twilio/voice/welcome"
	RespondPath = "/webhooks/twilio/voice/respond"
	StatusPath  = "/webhooks/twilio/voice/status"
)

// CallbackURL joins a public base URL and a webhook path.
func CallbackURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
