package telephony

import (
	"context"

	"voice-campaign/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManualGateway is used when an operator dials each number on a softphone
// whose audio is bridged to the capture device. The call counts as answered
// as soon as it is placed.
type ManualGateway struct {
	bus *Bus
}

func NewManualGateway() *ManualGateway {
	return &ManualGateway{bus: NewBus()}
}

func (g *ManualGateway) PlaceCall(ctx context.Context, to string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sid := "manual-" + uuid.NewString()
	logger.Info("Dial on softphone", zap.String("to", to), zap.String("call_sid", sid))
	g.bus.Publish(Event{CallSID: sid, Status: StatusAnswered})
	return sid, nil
}

func (g *ManualGateway) HangUp(_ context.Context, callSID string) error {
	logger.Info("Hang up softphone", zap.String("call_sid", callSID))
	return nil
}

func (g *ManualGateway) Events(callSID string) <-chan Event {
	return g.bus.Subscribe(callSID)
}

func (g *ManualGateway) Release(callSID string) {
	g.bus.Unsubscribe(callSID)
}

// Dispatch lets an operator report the far end hanging up.
func (g *ManualGateway) Dispatch(callSID, status string) {
	g.bus.Publish(Event{CallSID: callSID, Status: ParseStatus(status)})
}
