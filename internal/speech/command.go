package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandSynthesizer shells out to the edge-tts CLI.
type CommandSynthesizer struct {
	Path  string
	Voice string
}

func (s *CommandSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	dir, err := os.MkdirTemp("", "tts-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "output.mp3")
	cmd := exec.CommandContext(ctx, s.Path, "--text", text, "--voice", s.Voice, "--write-media", out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(out)
}

// CommandTranscriber runs a local whisper CLI and reads back its .txt output.
type CommandTranscriber struct {
	Path  string
	Model string
}

func (t *CommandTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	dir, err := os.MkdirTemp("", "stt-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "cliente.wav")
	if err := os.WriteFile(in, audio, 0o600); err != nil {
		return "", err
	}
	args := []string{in, "--model", t.Model, "--output_format", "txt", "--output_dir", dir, "--no_speech_threshold", "0.6"}
	if language != "" {
		args = append(args, "--language", language)
	}
	cmd := exec.CommandContext(ctx, t.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	text, err := os.ReadFile(filepath.Join(dir, "cliente.txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(text)), nil
}
