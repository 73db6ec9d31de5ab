package audio

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCaptureArgsDshow(t *testing.T) {
	d := &FFmpegDevice{FFmpegPath: "ffmpeg", Format: "dshow", Input: "CABLE Output (VB-Audio Virtual Cable)"}
	got := strings.Join(d.CaptureArgs(8*time.Second, "out.wav"), " ")
	want := "-f dshow -i audio=CABLE Output (VB-Audio Virtual Cable) -t 8 -ar 16000 -ac 1 -y out.wav"
	if got != want {
		t.Fatalf("args = %q\nwant   %q", got, want)
	}
}

func TestCaptureArgsPulse(t *testing.T) {
	d := &FFmpegDevice{Format: "pulse", Input: "default"}
	args := d.CaptureArgs(2500*time.Millisecond, "x.wav")
	if args[3] != "default" || args[5] != "2.5" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestPlayArgs(t *testing.T) {
	d := &FFmpegDevice{FFmpegPath: "ffmpeg", FFplayPath: "ffplay", Format: "dshow", Output: "CABLE Input"}
	bin, args := d.PlayArgs("a.mp3")
	if bin != "ffmpeg" || args[len(args)-1] != "audio=CABLE Input" {
		t.Fatalf("unexpected play command: %s %v", bin, args)
	}

	d.Output = ""
	bin, args = d.PlayArgs("a.mp3")
	if bin != "ffplay" || args[len(args)-1] != "a.mp3" {
		t.Fatalf("unexpected play command: %s %v", bin, args)
	}
}

func TestCaptureMissingBinary(t *testing.T) {
	d := &FFmpegDevice{FFmpegPath: "/nonexistent/ffmpeg", Format: "pulse", Input: "default"}
	if _, err := d.Capture(context.Background(), time.Second); err == nil {
		t.Fatal("expected error for missing ffmpeg")
	}
}

func TestPlayRejectsEmptyAudio(t *testing.T) {
	d := &FFmpegDevice{}
	if err := d.Play(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}
