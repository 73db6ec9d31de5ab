package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-campaign/internal/config"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient synthesizes speech with the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	BaseURL    string
	APIKey     string
	VoiceID    string
	Model      string
	HTTPClient *http.Client
}

func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	return &ElevenLabsClient{
		BaseURL:    elevenLabsBaseURL,
		APIKey:     cfg.ElevenLabsAPIKey,
		VoiceID:    cfg.ElevenLabsVoiceID,
		Model:      cfg.ElevenLabsModel,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns MPEG audio for text.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	if c.VoiceID == "" {
		return nil, fmt.Errorf("synthesize: no ElevenLabs voice configured")
	}

	payload, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       c.Model,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", strings.TrimRight(c.BaseURL, "/"), c.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ElevenLabs error: %s - %s", resp.Status, string(audio))
	}
	return audio, nil
}
