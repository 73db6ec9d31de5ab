package app

import (
	"context"
	"errors"
	"fmt"

	"voice-campaign/internal/api"
	"voice-campaign/internal/audio"
	"voice-campaign/internal/campaign"
	"voice-campaign/internal/config"
	"voice-campaign/internal/database"
	"voice-campaign/internal/dialogue"
	"voice-campaign/internal/llm"
	"voice-campaign/internal/logger"
	"voice-campaign/internal/script"
	"voice-campaign/internal/session"
	"voice-campaign/internal/speech"
	"voice-campaign/internal/telephony"
	"voice-campaign/internal/webhook"
	"voice-campaign/internal/ws"
	pm "voice-campaign/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is a telephony gateway that also accepts status updates from the
// webhook.
type Gateway interface {
	telephony.Gateway
	webhook.Dispatcher
}

// App holds the long lived components of a campaign process.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Hub       *ws.Hub
	Gateway   Gateway
	Script    *script.Script
	Calls     *database.CallStore
	Leads     *database.LeadStore
	Scheduler *campaign.Scheduler
	// Notifier receives session and campaign events. Nil when headless.
	Notifier campaign.Notifier
}

type options struct {
	headless bool
}

// Option configures New.
type Option func(*options)

// Headless keeps live events off the websocket hub, for processes that never
// run it.
func Headless() Option {
	return func(o *options) { o.headless = true }
}

// New builds every component from cfg. Collaborators that only matter at call
// time (speech, LLM) are constructed but not contacted.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	s, err := script.Load(cfg.ScriptPath)
	if err != nil {
		return nil, err
	}
	intents, err := dialogue.NewIntentTable(s.Intents)
	if err != nil {
		return nil, fmt.Errorf("script intents: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.SyncConfig(db, cfg); err != nil {
		logger.Warn("Could not sync settings", zap.Error(err))
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Hub:     ws.NewHub(),
		Gateway: NewGateway(cfg),
		Script:  s,
		Calls:   database.NewCallStore(db),
		Leads:   database.NewLeadStore(db),
	}
	if !o.headless {
		a.Notifier = a.Hub
	}

	deps := session.Deps{
		Gateway:  a.Gateway,
		Speech:   speech.NewAdapterFromConfig(cfg, audio.NewFFmpegDevice(cfg), NewTranscriber(cfg), NewSynthesizer(cfg)),
		Policy:   dialogue.NewPolicy(llm.NewClient(cfg), s, dialogue.WithHistoryWindow(cfg.LLMHistory)),
		Script:   s,
		Intents:  intents,
		Closing:  dialogue.ClosingMarkers(s.ClosingMarkers),
		Sink:     session.MultiSink{a.Calls, session.SinkFunc(logResult)},
		Notifier: a.Notifier,
	}
	sessCfg := SessionConfig(cfg)

	a.Scheduler = campaign.New(
		func(c *pm.Contact) campaign.Call { return session.New(c, deps, sessCfg) },
		campaign.WithPacing(cfg.PacingInterval),
		campaign.WithNotifier(a.Notifier),
	)
	return a, nil
}

// Validate rejects configurations that cannot place a call.
func Validate(cfg *config.Config) error {
	var errs error
	switch cfg.TelephonyMode {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
			errs = multierr.Append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required in twilio mode"))
		}
		if cfg.TwilioPhoneNumber == "" {
			errs = multierr.Append(errs, errors.New("TWILIO_PHONE_NUMBER is required in twilio mode"))
		}
		if cfg.BaseURL == "" {
			errs = multierr.Append(errs, errors.New("BASE_URL is required in twilio mode"))
		}
	case "manual":
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown TELEPHONY_MODE %q", cfg.TelephonyMode))
	}
	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY is not set, every reply will be the fallback utterance")
	}
	return errs
}

func NewGateway(cfg *config.Config) Gateway {
	if cfg.TelephonyMode == "manual" {
		return telephony.NewManualGateway()
	}
	return telephony.NewTwilioGateway(cfg)
}

func NewTranscriber(cfg *config.Config) speech.Transcriber {
	switch cfg.STTProvider {
	case "local", "whisper-cli":
		return &speech.CommandTranscriber{Path: cfg.WhisperPath, Model: cfg.WhisperModel}
	default:
		return speech.NewWhisperClient(cfg)
	}
}

func NewSynthesizer(cfg *config.Config) speech.Synthesizer {
	switch cfg.TTSProvider {
	case "edge", "edge-tts":
		return &speech.CommandSynthesizer{Path: cfg.EdgeTTSPath, Voice: cfg.EdgeTTSVoice}
	default:
		return speech.NewElevenLabsClient(cfg)
	}
}

func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		SilenceCeiling:         cfg.SilenceCeiling,
		MaxTurns:               cfg.MaxTurns,
		MinTurnsBeforeKeywords: cfg.MinTurnsBeforeKeywords,
		SilenceOutcome:         pm.Outcome(cfg.SilenceOutcome),
		AnswerTimeout:          cfg.AnswerTimeout,
		NationalPrefix:         cfg.NationalPrefix,
	}
}

// Router mounts the panel API, the live feed and the Twilio webhooks.
func (a *App) Router() *gin.Engine {
	r := gin.Default()
	api.Routes{
		Dashboard: api.NewDashboardHandler(a.Config, a.Hub.Clients),
		Contacts:  api.NewContactHandler(a.Leads),
		Campaign:  api.NewCampaignHandler(a.Scheduler, a.Leads),
		Calls:     api.NewCallHandler(a.Calls),
		Webhooks:  webhook.NewHandler(a.Config, a.Gateway),
		WS:        a.Hub.ServeWs,
	}.Register(r)
	return r
}

// WebhookRouter only serves the Twilio callbacks.
func (a *App) WebhookRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	webhook.NewHandler(a.Config, a.Gateway).Register(r)
	return r
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func logResult(_ context.Context, r pm.CallResult) error {
	logger.Info("Call finished",
		zap.String("session_id", r.SessionID),
		zap.String("phone", r.Contact.Phone),
		zap.String("outcome", string(r.Outcome)),
		zap.String("reason", r.Reason),
		zap.Bool("interested", r.Interested),
		zap.Int("turns", len(r.Turns)),
		zap.Duration("duration", r.Duration()))
	return nil
}
