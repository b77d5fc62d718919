package negotiate

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TwilioDriver places the negotiation call through Twilio against a TwiML
// document. In demo mode the destination is a fixed test number; the TwiML
// is static, so PlayScript is a no-op until media streams are wired in.
type TwilioDriver struct {
	accountSID string
	authToken  string
	from       string
	to         string
	twimlURL   string
}

func NewTwilioDriver(accountSID, authToken, from, to, twimlURL string) *TwilioDriver {
	if to == "" {
		to = from
	}
	return &TwilioDriver{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		twimlURL:   twimlURL,
	}
}

func (d *TwilioDriver) Dial(ctx context.Context, brief TaskCreate) (string, error) {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: d.accountSID,
		Password: d.authToken,
	})

	params := &twilioApi.CreateCallParams{}
	params.SetTo(d.to)
	params.SetFrom(d.from)
	params.SetUrl(d.twimlURL)

	call, err := client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("failed to create call: %v", err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("call created without sid")
	}
	zap.L().Info("negotiation call placed",
		zap.String("sid", *call.Sid),
		zap.String("brand", brief.Brand))
	return *call.Sid, nil
}

func (d *TwilioDriver) PlayScript(ctx context.Context, callSID, text string) error {
	// Static TwiML demo: nothing to speak dynamically yet.
	return nil
}
