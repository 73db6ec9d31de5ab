package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voice-campaign/internal/config"
)

const sampleRate = 16000

// FFmpegDevice captures and plays call audio through ffmpeg, typically over a
// virtual audio cable bridged to a softphone.
type FFmpegDevice struct {
	FFmpegPath string
	FFplayPath string
	Format     string // dshow, pulse, alsa, avfoundation
	Input      string
	Output     string
	TempDir    string
}

func NewFFmpegDevice(cfg *config.Config) *FFmpegDevice {
	return &FFmpegDevice{
		FFmpegPath: cfg.FFmpegPath,
		FFplayPath: cfg.FFplayPath,
		Format:     cfg.AudioFormat,
		Input:      cfg.AudioInput,
		Output:     cfg.AudioOutput,
	}
}

// CaptureArgs builds the ffmpeg arguments recording window seconds of mono
// 16kHz audio into out.
func (d *FFmpegDevice) CaptureArgs(window time.Duration, out string) []string {
	secs := strconv.FormatFloat(window.Seconds(), 'f', -1, 64)
	return []string{
		"-f", d.Format,
		"-i", d.inputName(),
		"-t", secs,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-y", out,
	}
}

// PlayArgs builds the command line that plays in. With no output device
// configured ffplay renders to the default sink.
func (d *FFmpegDevice) PlayArgs(in string) (string, []string) {
	if d.Output == "" {
		return d.FFplayPath, []string{"-nodisp", "-autoexit", "-loglevel", "error", in}
	}
	return d.FFmpegPath, []string{"-re", "-i", in, "-f", d.Format, d.outputName()}
}

func (d *FFmpegDevice) Capture(ctx context.Context, window time.Duration) ([]byte, error) {
	dir, err := os.MkdirTemp(d.TempDir, "capture-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "cliente.wav")
	if err := run(ctx, d.FFmpegPath, d.CaptureArgs(window, out)); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

func (d *FFmpegDevice) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("play: empty audio")
	}
	dir, err := os.MkdirTemp(d.TempDir, "play-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "output.mp3")
	if err := os.WriteFile(in, audio, 0o600); err != nil {
		return err
	}
	bin, args := d.PlayArgs(in)
	return run(ctx, bin, args)
}

func (d *FFmpegDevice) inputName() string {
	if d.Format == "dshow" && !strings.HasPrefix(d.Input, "audio=") {
		return "audio=" + d.Input
	}
	return d.Input
}

func (d *FFmpegDevice) outputName() string {
	if d.Format == "dshow" && !strings.HasPrefix(d.Output, "audio=") {
		return "audio=" + d.Output
	}
	return d.Output
}

func run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, msg)
	}
	return nil
}
