package telephony

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-campaign/internal/config"

	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCallAPI struct {
	mu      sync.Mutex
	created []*twilioapi.CreateCallParams
	updated map[string]*twilioapi.UpdateCallParams
	sid     string
	err     error
	block   chan struct{}
}

func (f *fakeCallAPI) CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &twilioapi.ApiV2010Call{Sid: &sid}, nil
}

func (f *fakeCallAPI) UpdateCall(sid string, params *twilioapi.UpdateCallParams) (*twilioapi.ApiV2010Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = make(map[string]*twilioapi.UpdateCallParams)
	}
	f.updated[sid] = params
	return &twilioapi.ApiV2010Call{Sid: &sid}, nil
}

func (f *fakeCallAPI) hungUp(sid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.updated[sid]
	return ok && p.Status != nil && *p.Status == "completed"
}

func testConfig() *config.Config {
	return &config.Config{
		TwilioPhoneNumber: "+15005550006",
		BaseURL:           "https://example.ngrok.app",
		AnswerTimeout:     30 * time.Second,
		TwilioRecord:      true,
	}
}

func TestTwilioPlaceCall(t *testing.T) {
	api := &fakeCallAPI{sid: "CA123"}
	g := NewTwilioGatewayWithAPI(api, testConfig())

	sid, err := g.PlaceCall(context.Background(), "+34600111222")
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if sid != "CA123" {
		t.Errorf("sid = %q", sid)
	}
	if len(api.created) != 1 {
		t.Fatalf("CreateCall called %d times", len(api.created))
	}
	p := api.created[0]
	if *p.To != "+34600111222" || *p.From != "+15005550006" {
		t.Errorf("to/from = %s/%s", *p.To, *p.From)
	}
	if *p.Url != "https://example.ngrok.app/twilio/voice" {
		t.Errorf("url = %s", *p.Url)
	}
	if *p.StatusCallback != "https://example.ngrok.app/twilio/status" {
		t.Errorf("status callback = %s", *p.StatusCallback)
	}
	if len(*p.StatusCallbackEvent) != 4 {
		t.Errorf("status callback events = %v", *p.StatusCallbackEvent)
	}
	if *p.Timeout != 30 || !*p.Record {
		t.Errorf("timeout/record = %d/%v", *p.Timeout, *p.Record)
	}
}

func TestTwilioPlaceCallError(t *testing.T) {
	api := &fakeCallAPI{err: &client.TwilioRestError{Code: 21211, Message: "Invalid 'To' Phone Number", Status: 400}}
	g := NewTwilioGatewayWithAPI(api, testConfig())

	_, err := g.PlaceCall(context.Background(), "+1")
	var restErr *client.TwilioRestError
	if !errors.As(err, &restErr) || restErr.Code != 21211 {
		t.Fatalf("expected wrapped TwilioRestError, got %v", err)
	}
}

func TestTwilioPlaceCallHonoursContext(t *testing.T) {
	api := &fakeCallAPI{sid: "CA1", block: make(chan struct{})}
	defer close(api.block)
	g := NewTwilioGatewayWithAPI(api, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.PlaceCall(ctx, "+34600111222"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTwilioPlaceCallHangsUpLateCall(t *testing.T) {
	api := &fakeCallAPI{sid: "CAlate", block: make(chan struct{})}
	g := NewTwilioGatewayWithAPI(api, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.PlaceCall(ctx, "+34600111222"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// the carrier answers the create request after the dial gave up
	close(api.block)

	deadline := time.Now().Add(2 * time.Second)
	for !api.hungUp("CAlate") {
		if time.Now().After(deadline) {
			t.Fatal("call created after cancellation was never hung up")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTwilioHangUp(t *testing.T) {
	api := &fakeCallAPI{}
	g := NewTwilioGatewayWithAPI(api, testConfig())
	if err := g.HangUp(context.Background(), "CA9"); err != nil {
		t.Fatalf("HangUp: %v", err)
	}
	p, ok := api.updated["CA9"]
	if !ok || *p.Status != "completed" {
		t.Fatalf("expected status=completed update, got %+v", api.updated)
	}
	if err := g.HangUp(context.Background(), ""); !errors.Is(err, ErrUnknownCall) {
		t.Fatalf("expected ErrUnknownCall, got %v", err)
	}
}

func TestDispatchBeforeSubscribe(t *testing.T) {
	g := NewTwilioGatewayWithAPI(&fakeCallAPI{}, testConfig())
	g.Dispatch("CA1", "initiated")
	g.Dispatch("CA1", "in-progress")

	ch := g.Events("CA1")
	for _, want := range []Status{StatusInitiated, StatusAnswered} {
		select {
		case ev := <-ch:
			if ev.Status != want {
				t.Errorf("status = %s, want %s", ev.Status, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no event for %s", want)
		}
	}

	g.Dispatch("CA1", "completed")
	if ev := <-ch; ev.Status != StatusCompleted || !ev.Status.Terminal() {
		t.Errorf("unexpected event %+v", ev)
	}
	g.Release("CA1")
}

func TestBusPrunesStaleEvents(t *testing.T) {
	b := NewBus()
	now := time.Now()
	b.now = func() time.Time { return now }
	b.Publish(Event{CallSID: "old", Status: StatusRinging})

	now = now.Add(pendingTTL + time.Second)
	b.Publish(Event{CallSID: "new", Status: StatusRinging})

	if _, ok := b.pending["old"]; ok {
		t.Error("stale pending events were not pruned")
	}
	if _, ok := b.pending["new"]; !ok {
		t.Error("fresh pending events were dropped")
	}
}

func TestStatusClassification(t *testing.T) {
	for _, s := range []Status{StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled} {
		if !s.Unreached() || !s.Terminal() {
			t.Errorf("%s should be unreached and terminal", s)
		}
	}
	if StatusCompleted.Unreached() {
		t.Error("completed is not unreached")
	}
	if ParseStatus("in-progress") != StatusAnswered {
		t.Error("in-progress should map to answered")
	}
}

func TestManualGatewayAnswersImmediately(t *testing.T) {
	g := NewManualGateway()
	sid, err := g.PlaceCall(context.Background(), "+34600111222")
	if err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-g.Events(sid):
		if ev.Status != StatusAnswered {
			t.Errorf("status = %s", ev.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no answered event")
	}
}
