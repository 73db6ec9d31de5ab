package telephony

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-campaign/internal/config"
	"voice-campaign/internal/logger"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// CallAPI is the subset of the Twilio REST API used to drive calls.
// *twilioapi.ApiService satisfies it.
type CallAPI interface {
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
	UpdateCall(sid string, params *twilioapi.UpdateCallParams) (*twilioapi.ApiV2010Call, error)
}

var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// lateHangUpTimeout bounds the hang up of a call created after its dial was
// abandoned.
const lateHangUpTimeout = 10 * time.Second

// TwilioGateway places calls through the Twilio REST API and receives their
// progress through the status callback webhook.
type TwilioGateway struct {
	api               CallAPI
	bus               *Bus
	from              string
	voiceURL          string
	statusCallbackURL string
	ringTimeout       int
	record            bool
}

// NewTwilioGateway builds a gateway backed by the real Twilio REST client.
func NewTwilioGateway(cfg *config.Config) *TwilioGateway {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return NewTwilioGatewayWithAPI(rest.Api, cfg)
}

func NewTwilioGatewayWithAPI(api CallAPI, cfg *config.Config) *TwilioGateway {
	return &TwilioGateway{
		api:               api,
		bus:               NewBus(),
		from:              cfg.TwilioPhoneNumber,
		voiceURL:          cfg.VoiceURL(),
		statusCallbackURL: cfg.StatusCallbackURL(),
		ringTimeout:       int(cfg.AnswerTimeout.Seconds()),
		record:            cfg.TwilioRecord,
	}
}

func (g *TwilioGateway) PlaceCall(ctx context.Context, to string) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetUrl(g.voiceURL)
	params.SetStatusCallback(g.statusCallbackURL)
	params.SetStatusCallbackEvent(statusCallbackEvents)
	params.SetStatusCallbackMethod("POST")
	if g.ringTimeout > 0 {
		params.SetTimeout(g.ringTimeout)
	}
	params.SetRecord(g.record)

	call, err := callWithContext(ctx, func() (*twilioapi.ApiV2010Call, error) {
		return g.api.CreateCall(params)
	}, func(late *twilioapi.ApiV2010Call) {
		g.hangUpLate(to, late)
	})
	if err != nil {
		return "", fmt.Errorf("create call to %s: %w", to, describe(err))
	}
	if call == nil || call.Sid == nil {
		return "", errors.New("create call: response has no sid")
	}
	logger.Info("Call created", zap.String("call_sid", *call.Sid), zap.String("to", to))
	return *call.Sid, nil
}

func (g *TwilioGateway) HangUp(ctx context.Context, callSID string) error {
	if callSID == "" {
		return ErrUnknownCall
	}
	params := &twilioapi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err := callWithContext(ctx, func() (*twilioapi.ApiV2010Call, error) {
		return g.api.UpdateCall(callSID, params)
	}, nil)
	if err != nil {
		return fmt.Errorf("hang up %s: %w", callSID, describe(err))
	}
	return nil
}

func (g *TwilioGateway) Events(callSID string) <-chan Event {
	return g.bus.Subscribe(callSID)
}

func (g *TwilioGateway) Release(callSID string) {
	g.bus.Unsubscribe(callSID)
}

// Dispatch feeds a status callback into the gateway.
func (g *TwilioGateway) Dispatch(callSID, status string) {
	ev := Event{CallSID: callSID, Status: ParseStatus(status)}
	if !g.bus.Publish(ev) {
		logger.Debug("Status callback held for later subscriber",
			zap.String("call_sid", callSID), zap.String("status", status))
	}
}

// hangUpLate ends a call the carrier created after PlaceCall had already
// returned, so the line is never left ringing.
func (g *TwilioGateway) hangUpLate(to string, call *twilioapi.ApiV2010Call) {
	if call == nil || call.Sid == nil {
		return
	}
	sid := *call.Sid
	ctx, cancel := context.WithTimeout(context.Background(), lateHangUpTimeout)
	defer cancel()
	if err := g.HangUp(ctx, sid); err != nil {
		logger.Error("Failed to hang up abandoned call",
			zap.String("call_sid", sid), zap.String("to", to), zap.Error(err))
		return
	}
	logger.Warn("Hung up call created after dial was cancelled",
		zap.String("call_sid", sid), zap.String("to", to))
}

// callWithContext runs a blocking SDK call, giving up when ctx ends. The SDK
// call itself cannot be interrupted; if it succeeds after ctx ended, late
// receives its result.
func callWithContext(ctx context.Context, fn func() (*twilioapi.ApiV2010Call, error), late func(*twilioapi.ApiV2010Call)) (*twilioapi.ApiV2010Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		call *twilioapi.ApiV2010Call
		err  error
	}
	done := make(chan result, 1)
	go func() {
		call, err := fn()
		done <- result{call, err}
	}()
	select {
	case r := <-done:
		return r.call, r.err
	case <-ctx.Done():
		if late != nil {
			go func() {
				if r := <-done; r.err == nil {
					late(r.call)
				}
			}()
		}
		return nil, ctx.Err()
	}
}

func describe(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return fmt.Errorf("twilio error %d: %s: %w", restErr.Code, restErr.Message, err)
	}
	return err
}
