package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-campaign/internal/config"
)

var ErrEmptyAudio = errors.New("speech: no audio captured")

// Device is the audio bridge to the live call.
type Device interface {
	Capture(ctx context.Context, window time.Duration) ([]byte, error)
	Play(ctx context.Context, audio []byte) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Timeouts bound every speech operation. Zero means no extra bound.
type Timeouts struct {
	Transcribe time.Duration
	Synthesize time.Duration
	Play       time.Duration
}

// Adapter turns call audio into text and text into call audio.
type Adapter struct {
	device      Device
	transcriber Transcriber
	synthesizer Synthesizer
	language    string
	window      time.Duration
	timeouts    Timeouts
}

func NewAdapter(device Device, stt Transcriber, tts Synthesizer, language string, window time.Duration, timeouts Timeouts) *Adapter {
	return &Adapter{
		device:      device,
		transcriber: stt,
		synthesizer: tts,
		language:    language,
		window:      window,
		timeouts:    timeouts,
	}
}

// NewAdapterFromConfig wires the adapter timeouts and capture window from cfg.
func NewAdapterFromConfig(cfg *config.Config, device Device, stt Transcriber, tts Synthesizer) *Adapter {
	return NewAdapter(device, stt, tts, cfg.Language, cfg.CaptureWindow, Timeouts{
		Transcribe: cfg.TranscribeTimeout,
		Synthesize: cfg.SynthesizeTimeout,
		Play:       cfg.PlayTimeout,
	})
}

// Capture records the caller for the configured window. The device call is
// given a small grace period beyond the window before it is abandoned.
func (a *Adapter) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.window+5*time.Second)
	defer cancel()
	audio, err := a.device.Capture(ctx, a.window)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}

func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := withTimeout(ctx, a.timeouts.Transcribe)
	defer cancel()
	return a.transcriber.Transcribe(ctx, audio, a.language)
}

func (a *Adapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, a.timeouts.Synthesize)
	defer cancel()
	return a.synthesizer.Synthesize(ctx, text)
}

func (a *Adapter) Play(ctx context.Context, audio []byte) error {
	ctx, cancel := withTimeout(ctx, a.timeouts.Play)
	defer cancel()
	return a.device.Play(ctx, audio)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
