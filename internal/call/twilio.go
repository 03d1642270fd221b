package call

import (
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultRequestTimeout = 10 * time.Second

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	// Timeout bounds the whole create-call HTTP request.
	Timeout time.Duration
}

// TwilioDialer creates call resources through the Twilio REST API with
// basic-auth credentials and a bounded request timeout.
type TwilioDialer struct {
	rest *twilio.RestClient
}

func NewTwilioDialer(cfg TwilioConfig) *TwilioDialer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  &http.Client{Timeout: timeout},
	}
	base.SetAccountSid(cfg.AccountSID)
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Client: base})
	return &TwilioDialer{rest: rest}
}

func (d *TwilioDialer) Dial(to, from, twiml string) (string, string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetTwiml(twiml)

	resp, err := d.rest.Api.CreateCall(params)
	if err != nil {
		return "", "", fmt.Errorf("twilio create call: %w", err)
	}
	var sid, status string
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	if resp.Status != nil {
		status = *resp.Status
	}
	return sid, status, nil
}
