package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voice-campaign/internal/config"
	"voice-campaign/internal/speech"
	"voice-campaign/internal/telephony"
	pm "voice-campaign/pkg/models"

	"github.com/gin-gonic/gin"
)

func manualConfig(t *testing.T) *config.Config {
	return &config.Config{
		LogMode:        "production",
		DBDriver:       "sqlite",
		DBPath:         filepath.Join(t.TempDir(), "campaign.db"),
		TelephonyMode:  "manual",
		STTProvider:    "openai",
		TTSProvider:    "edge",
		LLMModel:       "test",
		CaptureWindow:  time.Second,
		PacingInterval: time.Second,
		SilenceCeiling: 2,
		MaxTurns:       6,
		SilenceOutcome: "NO_ANSWER",
		NationalPrefix: "34",
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(&config.Config{TelephonyMode: "manual"}); err != nil {
		t.Errorf("manual: %v", err)
	}
	err := Validate(&config.Config{TelephonyMode: "twilio"})
	if err == nil {
		t.Fatal("twilio without credentials should fail")
	}
	for _, want := range []string{"TWILIO_ACCOUNT_SID", "TWILIO_PHONE_NUMBER", "BASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if err := Validate(&config.Config{TelephonyMode: "sip"}); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestProviderSelection(t *testing.T) {
	cfg := &config.Config{STTProvider: "local", TTSProvider: "edge", TelephonyMode: "manual"}
	if _, ok := NewTranscriber(cfg).(*speech.CommandTranscriber); !ok {
		t.Error("local STT should use the whisper CLI")
	}
	if _, ok := NewSynthesizer(cfg).(*speech.CommandSynthesizer); !ok {
		t.Error("edge TTS should use the edge-tts CLI")
	}
	if _, ok := NewGateway(cfg).(*telephony.ManualGateway); !ok {
		t.Error("manual mode should use the manual gateway")
	}

	cfg = &config.Config{STTProvider: "openai", TTSProvider: "elevenlabs", TelephonyMode: "twilio"}
	if _, ok := NewTranscriber(cfg).(*speech.WhisperClient); !ok {
		t.Error("default STT should be the Whisper API")
	}
	if _, ok := NewSynthesizer(cfg).(*speech.ElevenLabsClient); !ok {
		t.Error("default TTS should be ElevenLabs")
	}
	if _, ok := NewGateway(cfg).(*telephony.TwilioGateway); !ok {
		t.Error("twilio mode should use the Twilio gateway")
	}
}

func TestSessionConfig(t *testing.T) {
	sc := SessionConfig(manualConfig(t))
	if sc.SilenceCeiling != 2 || sc.MaxTurns != 6 || sc.SilenceOutcome != pm.OutcomeNoAnswer || sc.NationalPrefix != "34" {
		t.Errorf("session config = %+v", sc)
	}
}

func TestNewWiresRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(manualConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	r := a.Router()
	for _, path := range []string{"/api/health", "/api/status", "/api/contacts", "/api/calls"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/twilio/status", strings.NewReader("CallSid=manual-1&CallStatus=ringing"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	a.WebhookRouter().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("webhook status = %d", w.Code)
	}
}

func TestHeadlessSkipsHub(t *testing.T) {
	a, err := New(manualConfig(t), Headless())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if a.Notifier != nil {
		t.Errorf("headless notifier = %T", a.Notifier)
	}

	b, err := New(manualConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()
	if b.Notifier != b.Hub {
		t.Error("live feed not wired to the hub")
	}
}
