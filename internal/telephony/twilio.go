package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioAPI is the slice of the Twilio REST client we use.
type twilioAPI interface {
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
	FetchAccount(sid string) (*twilioapi.ApiV2010Account, error)
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioProvider places outbound calls through the Twilio REST API.
type TwilioProvider struct {
	api        twilioAPI
	accountSID string
	from       string
}

func NewTwilioProvider(cfg TwilioConfig) (*TwilioProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("telephony: twilio account sid, auth token and from number are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioProvider{api: client.Api, accountSID: cfg.AccountSID, from: cfg.FromNumber}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.api.FetchAccount(p.accountSID); err != nil {
		return fmt.Errorf("telephony: twilio account fetch: %w", err)
	}
	return nil
}

// PlaceCall starts an outbound call whose voice URL is the welcome webhook.
// Twilio posts the final call status to the status webhook.
func (p *TwilioProvider) PlaceCall(ctx context.Context, toNumber, callbackBaseURL string) (string, error) {
	if toNumber == "" {
		return "", errors.New("telephony: destination number is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(p.from)
	params.SetUrl(CallbackURL(callbackBaseURL, WelcomePath))
	params.SetMethod("POST")
	params.SetStatusCallback(CallbackURL(callbackBaseURL, StatusPath))
	params.SetStatusCallbackMethod("POST")

	call, err := p.api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: twilio create call: %w", err)
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", errors.New("telephony: twilio returned no call sid")
	}
	return *call.Sid, nil
}
