package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-campaign/internal/dialogue"
	"voice-campaign/internal/script"
	"voice-campaign/internal/telephony"
	"voice-campaign/pkg/models"
)

type fakeGateway struct {
	bus      *telephony.Bus
	placeErr error
	statuses []telephony.Status

	mu      sync.Mutex
	placed  []string
	hangups []string
}

func newFakeGateway(statuses ...telephony.Status) *fakeGateway {
	return &fakeGateway{bus: telephony.NewBus(), statuses: statuses}
}

func (g *fakeGateway) PlaceCall(_ context.Context, to string) (string, error) {
	g.mu.Lock()
	g.placed = append(g.placed, to)
	g.mu.Unlock()
	if g.placeErr != nil {
		return "", g.placeErr
	}
	for _, st := range g.statuses {
		g.bus.Publish(telephony.Event{CallSID: "CAtest", Status: st})
	}
	return "CAtest", nil
}

func (g *fakeGateway) HangUp(_ context.Context, sid string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hangups = append(g.hangups, sid)
	return nil
}

func (g *fakeGateway) Events(sid string) <-chan telephony.Event { return g.bus.Subscribe(sid) }
func (g *fakeGateway) Release(sid string)                      { g.bus.Unsubscribe(sid) }

func (g *fakeGateway) hangupCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hangups)
}

type captureResult struct {
	audio []byte
	err   error
}

type transcript struct {
	text string
	err  error
}

// fakeSpeech replays scripted captures and transcripts. Once the captures run
// out it blocks until the context ends.
type fakeSpeech struct {
	mu          sync.Mutex
	captures    []captureResult
	transcripts []transcript
	synthErr    error
	captureN    int
	transcribeN int
	synthesized []string
	played      int
	blockedOnce sync.Once
	blockedCh   chan struct{}
}

// heard scripts one capture and one transcript per text. An empty text is a
// silent turn.
func heard(texts ...string) *fakeSpeech {
	fs := &fakeSpeech{blockedCh: make(chan struct{})}
	for _, text := range texts {
		fs.captures = append(fs.captures, captureResult{audio: []byte("pcm")})
		fs.transcripts = append(fs.transcripts, transcript{text: text})
	}
	return fs
}

func (f *fakeSpeech) Capture(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	if f.captureN < len(f.captures) {
		r := f.captures[f.captureN]
		f.captureN++
		f.mu.Unlock()
		return r.audio, r.err
	}
	f.mu.Unlock()
	if f.blockedCh != nil {
		f.blockedOnce.Do(func() { close(f.blockedCh) })
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSpeech) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcribeN >= len(f.transcripts) {
		return "", nil
	}
	r := f.transcripts[f.transcribeN]
	f.transcribeN++
	return r.text, r.err
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesized = append(f.synthesized, text)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return []byte("mp3:" + text), nil
}

func (f *fakeSpeech) Play(_ context.Context, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played++
	return nil
}

type fakePolicy struct {
	replies []string
	err     error
	failOn  int
	calls   int
}

func (p *fakePolicy) NextUtterance(_ context.Context, history []models.Turn, _ *models.Contact) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if p.failOn == p.calls {
		return "", errors.New("upstream timeout")
	}
	if len(p.replies) == 0 {
		return "¿Cuánto paga al mes?", nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []models.CallResult
}

func (s *recordingSink) Save(_ context.Context, r models.CallResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	states []models.State
}

func (n *recordingNotifier) BroadcastEvent(eventType string, data interface{}) {
	if eventType != EventStateChanged {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, data.(payload)["state"].(models.State))
}

func (n *recordingNotifier) visited(state models.State) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.states {
		if s == state {
			return true
		}
	}
	return false
}

type harness struct {
	gateway  *fakeGateway
	speech   *fakeSpeech
	policy   *fakePolicy
	sink     *recordingSink
	notifier *recordingNotifier
	cfg      Config
}

func newHarness(t *testing.T, speech *fakeSpeech) *harness {
	t.Helper()
	return &harness{
		gateway:  newFakeGateway(telephony.StatusInitiated, telephony.StatusRinging, telephony.StatusAnswered),
		speech:   speech,
		policy:   &fakePolicy{},
		sink:     &recordingSink{},
		notifier: &recordingNotifier{},
		cfg:      DefaultConfig(),
	}
}

func (h *harness) run(t *testing.T, ctx context.Context) (models.CallResult, *Session) {
	t.Helper()
	s := h.newSession(t)
	done := make(chan models.CallResult, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case r := <-done:
		return r, s
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate")
	}
	return models.CallResult{}, nil
}

func (h *harness) newSession(t *testing.T) *Session {
	t.Helper()
	sc := script.Default()
	intents, err := dialogue.NewIntentTable(sc.Intents)
	if err != nil {
		t.Fatal(err)
	}
	contact := &models.Contact{ID: 12, FullName: "Maria Lopez", Phone: "600111222", Address: "Calle Mayor 1"}
	return New(contact, Deps{
		Gateway:  h.gateway,
		Speech:   h.speech,
		Policy:   h.policy,
		Script:   sc,
		Intents:  intents,
		Closing:  dialogue.ClosingMarkers(sc.ClosingMarkers),
		Sink:     h.sink,
		Notifier: h.notifier,
	}, h.cfg)
}

func assertSavedOnce(t *testing.T, sink *recordingSink, want models.CallResult) {
	t.Helper()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.results) != 1 {
		t.Fatalf("sink received %d results, want 1", len(sink.results))
	}
	if sink.results[0].Outcome != want.Outcome || sink.results[0].SessionID != want.SessionID {
		t.Fatalf("sink got %+v, want %+v", sink.results[0], want)
	}
}

func TestDeclineKeywordSkipsPolicy(t *testing.T) {
	h := newHarness(t, heard("no me interesa"))
	r, s := h.run(t, context.Background())

	if r.Outcome != models.OutcomeDeclined {
		t.Fatalf("outcome = %s (%s), want DECLINED", r.Outcome, r.Reason)
	}
	if r.Reason != "keyword:not_interested" {
		t.Errorf("reason = %q", r.Reason)
	}
	if h.policy.calls != 0 {
		t.Errorf("policy called %d times", h.policy.calls)
	}
	if len(r.Turns) != 2 || r.Turns[0].Speaker != models.SpeakerAgent || r.Turns[1].Speaker != models.SpeakerCaller {
		t.Errorf("unexpected turns: %+v", r.Turns)
	}
	if h.gateway.placed[0] != "+34600111222" {
		t.Errorf("dialed %q", h.gateway.placed[0])
	}
	if h.gateway.hangupCount() != 1 {
		t.Errorf("hang up called %d times", h.gateway.hangupCount())
	}
	if s.State() != models.StateTerminated {
		t.Errorf("final state = %s", s.State())
	}
	assertSavedOnce(t, h.sink, r)
}

func TestGreetingIsRecordedBeforePlayback(t *testing.T) {
	h := newHarness(t, heard("adiós"))
	r, _ := h.run(t, context.Background())

	want := "Hola, buenos días. ¿Hablo con Maria? Le llamo del Departamento de Incidencias de Enerlux Soluciones por su suministro en Calle Mayor 1."
	if r.Turns[0].Text != want {
		t.Errorf("greeting = %q", r.Turns[0].Text)
	}
	if len(h.speech.synthesized) != 1 || h.speech.synthesized[0] != want || h.speech.played != 1 {
		t.Errorf("greeting was not synthesized and played: %v played=%d", h.speech.synthesized, h.speech.played)
	}
}

func TestSilenceCeilingTerminatesWithoutGenerating(t *testing.T) {
	h := newHarness(t, heard("", "   ", ""))
	r, s := h.run(t, context.Background())

	if r.Outcome != models.OutcomeHungUp || r.Reason != models.ReasonSilenceCeiling {
		t.Fatalf("result = %s/%s, want HUNG_UP/silence_ceiling", r.Outcome, r.Reason)
	}
	if h.policy.calls != 0 || h.notifier.visited(models.StateGenerating) {
		t.Error("GENERATING was entered")
	}
	if h.speech.captureN != 3 {
		t.Errorf("captured %d times, want 3", h.speech.captureN)
	}
	if s.SilenceStrikes() != 3 {
		t.Errorf("strikes = %d", s.SilenceStrikes())
	}
	if len(r.Turns) != 1 {
		t.Errorf("turns = %d, want greeting only", len(r.Turns))
	}
}

func TestCaptureAndTranscriptionFailuresCountAsStrikes(t *testing.T) {
	fs := &fakeSpeech{
		captures: []captureResult{
			{err: errors.New("device gone")},
			{audio: []byte("pcm")},
			{audio: []byte("pcm")},
		},
		transcripts: []transcript{
			{err: errors.New("whisper down")},
			{text: ""},
		},
	}
	h := newHarness(t, fs)
	r, _ := h.run(t, context.Background())

	if r.Reason != models.ReasonSilenceCeiling {
		t.Fatalf("reason = %s", r.Reason)
	}
	if fs.transcribeN != 2 {
		t.Errorf("transcribed %d times, want 2", fs.transcribeN)
	}
}

func TestConfiguredSilenceOutcome(t *testing.T) {
	h := newHarness(t, heard("", ""))
	h.cfg.SilenceCeiling = 2
	h.cfg.SilenceOutcome = models.OutcomeNoAnswer
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeNoAnswer || r.Reason != models.ReasonSilenceCeiling {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}
}

func TestStrikesResetOnSpeech(t *testing.T) {
	h := newHarness(t, heard("", "", "sí, dígame", "", "", ""))
	r, _ := h.run(t, context.Background())

	if r.Reason != models.ReasonSilenceCeiling {
		t.Fatalf("reason = %s", r.Reason)
	}
	if h.speech.captureN != 6 {
		t.Errorf("captured %d times, want 6", h.speech.captureN)
	}
	if h.policy.calls != 1 {
		t.Errorf("policy called %d times, want 1", h.policy.calls)
	}
}

func TestPolicyErrorFallsBackAndStillSpeaks(t *testing.T) {
	h := newHarness(t, heard("¿quién es?", "", "", ""))
	h.policy.err = errors.New("rate limited")
	r, _ := h.run(t, context.Background())

	fallback := script.Default().FallbackUtterance
	if len(r.Turns) < 3 {
		t.Fatalf("turns = %+v", r.Turns)
	}
	if r.Turns[2].Speaker != models.SpeakerAgent || r.Turns[2].Text != fallback {
		t.Errorf("turn 3 = %+v, want fallback", r.Turns[2])
	}
	if len(h.speech.synthesized) != 2 || h.speech.synthesized[1] != fallback {
		t.Errorf("fallback not synthesized: %v", h.speech.synthesized)
	}
}

func TestSpeakersAlternate(t *testing.T) {
	h := newHarness(t, heard("¿quién es?", "", "¿y qué tengo que hacer?", "no sé", "no me interesa"))
	h.policy.failOn = 2
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeDeclined {
		t.Fatalf("outcome = %s (%s)", r.Outcome, r.Reason)
	}
	if len(r.Turns) != 8 {
		t.Fatalf("turns = %d, want 8: %+v", len(r.Turns), r.Turns)
	}
	for i, turn := range r.Turns {
		want := models.SpeakerAgent
		if i%2 == 1 {
			want = models.SpeakerCaller
		}
		if turn.Speaker != want {
			t.Errorf("turn %d speaker = %s, want %s", i, turn.Speaker, want)
		}
		if i > 0 && turn.Timestamp.Before(r.Turns[i-1].Timestamp) {
			t.Errorf("turn %d is out of order", i)
		}
	}
	if r.Turns[4].Text != script.Default().FallbackUtterance {
		t.Errorf("turn 4 = %q, want fallback", r.Turns[4].Text)
	}
}

func TestStrikesReadableWhileRunning(t *testing.T) {
	h := newHarness(t, heard("", "", ""))
	s := h.newSession(t)

	done := make(chan models.CallResult, 1)
	go func() { done <- s.Run(context.Background()) }()

	for {
		select {
		case <-done:
			if snap := s.Snapshot(); snap.Strikes != 3 {
				t.Errorf("snapshot strikes = %d, want 3", snap.Strikes)
			}
			return
		case <-time.After(5 * time.Second):
			t.Fatal("session did not terminate")
		default:
			if n := s.SilenceStrikes(); n > 3 {
				t.Fatalf("strikes = %d", n)
			}
			_ = s.Snapshot()
		}
	}
}

func TestSynthesisFailureIsSwallowed(t *testing.T) {
	fs := heard("hola", "no me interesa")
	fs.synthErr = errors.New("tts down")
	h := newHarness(t, fs)
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeDeclined {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if fs.played != 0 {
		t.Errorf("played %d times with no audio", fs.played)
	}
	if len(r.Turns) != 4 {
		t.Errorf("turns = %d, want 4", len(r.Turns))
	}
}

func TestMaxTurns(t *testing.T) {
	h := newHarness(t, heard("sí", "dígame", "no sé", "bueno"))
	h.cfg.MaxTurns = 4
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeMaxTurns || r.Reason != models.ReasonMaxTurns {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}
	if len(r.Turns) != 5 {
		t.Errorf("turns = %d, want 5", len(r.Turns))
	}
	if h.speech.played != 3 {
		t.Errorf("played %d times, want the closing line spoken too", h.speech.played)
	}
}

func TestClosingMarkerAccepts(t *testing.T) {
	h := newHarness(t, heard("sí, me interesa"))
	h.policy.replies = []string{"Perfecto, le contactará su asesor asignado en 72 horas."}
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeAccepted || r.Reason != models.ReasonClosingMarker {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}
	if !r.Interested {
		t.Error("interest was not flagged")
	}
}

func TestClosingMarkerReferral(t *testing.T) {
	h := newHarness(t, heard("llame a mi cuñado"))
	h.policy.replies = []string{"Muchas gracias por la recomendación."}
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeReferral {
		t.Fatalf("outcome = %s", r.Outcome)
	}
}

func TestMinTurnsBeforeKeywords(t *testing.T) {
	h := newHarness(t, heard("adiós", "adiós"))
	h.cfg.MinTurnsBeforeKeywords = 1
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeDeclined {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if h.policy.calls != 1 {
		t.Errorf("policy called %d times, want 1", h.policy.calls)
	}
}

func TestUnansweredCall(t *testing.T) {
	for _, st := range []telephony.Status{telephony.StatusBusy, telephony.StatusNoAnswer, telephony.StatusFailed} {
		t.Run(string(st), func(t *testing.T) {
			h := newHarness(t, heard())
			h.gateway = newFakeGateway(telephony.StatusInitiated, st)
			r, _ := h.run(t, context.Background())

			if r.Outcome != models.OutcomeNoAnswer {
				t.Fatalf("outcome = %s", r.Outcome)
			}
			if len(r.Turns) != 0 || h.speech.captureN != 0 {
				t.Error("conversation started on an unanswered call")
			}
			if h.gateway.hangupCount() != 0 {
				t.Error("hung up a call that already ended")
			}
			assertSavedOnce(t, h.sink, r)
		})
	}
}

func TestAnswerTimeout(t *testing.T) {
	h := newHarness(t, heard())
	h.gateway = newFakeGateway(telephony.StatusRinging)
	h.cfg.AnswerTimeout = 30 * time.Millisecond
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeNoAnswer {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if h.gateway.hangupCount() != 1 {
		t.Error("ringing call was not cancelled")
	}
}

func TestGatewayErrors(t *testing.T) {
	h := newHarness(t, heard())
	h.gateway.placeErr = errors.New("authenticate")
	r, _ := h.run(t, context.Background())
	if r.Outcome != models.OutcomeError || r.Reason != models.ReasonGatewayError {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}

	h = newHarness(t, heard())
	h.gateway.placeErr = telephony.ErrNoAnswer
	r, _ = h.run(t, context.Background())
	if r.Outcome != models.OutcomeNoAnswer {
		t.Fatalf("outcome = %s", r.Outcome)
	}
}

func TestRemoteHangup(t *testing.T) {
	h := newHarness(t, heard())
	go func() {
		<-h.speech.blockedCh
		h.gateway.bus.Publish(telephony.Event{CallSID: "CAtest", Status: telephony.StatusCompleted})
	}()
	r, _ := h.run(t, context.Background())

	if r.Outcome != models.OutcomeHungUp || r.Reason != models.ReasonRemoteHangup {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}
	if h.gateway.hangupCount() != 0 {
		t.Error("hung up a call the far end already ended")
	}
}

func TestOperatorCancel(t *testing.T) {
	h := newHarness(t, heard())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.speech.blockedCh
		cancel()
	}()
	r, _ := h.run(t, ctx)

	if r.Outcome != models.OutcomeHungUp || r.Reason != models.ReasonCancelled {
		t.Fatalf("result = %s/%s", r.Outcome, r.Reason)
	}
	if h.gateway.hangupCount() != 1 {
		t.Error("call was not hung up")
	}
	assertSavedOnce(t, h.sink, r)
}
