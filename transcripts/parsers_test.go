package transcripts_test

import (
	"math"
	"strings"
	"testing"

	"github.com/lecturecompanion/rag-engine/transcripts"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]transcripts.Format{
		"lecture.txt":  transcripts.FormatTXT,
		"lecture.TXT":  transcripts.FormatTXT,
		"notes.pdf":    transcripts.FormatPDF,
		"captions.srt": transcripts.FormatSRT,
		"captions.vtt": transcripts.FormatVTT,
		"audio.mp3":    transcripts.FormatUnknown,
	}
	for path, want := range cases {
		if got := transcripts.DetectFormat(path); got != want {
			t.Fatalf("%s: expected %q, got %q", path, want, got)
		}
	}
}

func TestParseTXT(t *testing.T) {
	transcript, err := transcripts.Parse("lecture.txt", []byte("The whole lecture text."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Text != "The whole lecture text." {
		t.Fatalf("unexpected text %q", transcript.Text)
	}
	if len(transcript.Segments) != 1 {
		t.Fatalf("expected a single un-timestamped segment, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Start != nil || transcript.Segments[0].End != nil {
		t.Fatal("txt segment must not carry timing")
	}
}

func TestParseSRT(t *testing.T) {
	data := []byte("1\n00:00:01,500 --> 00:00:04,000\nWelcome to the lecture.\n\n" +
		"2\n00:00:04,000 --> 00:00:08,250\nToday we cover integration.\nBy substitution.\n")

	transcript, err := transcripts.Parse("captions.srt", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}

	first := transcript.Segments[0]
	if math.Abs(*first.Start-1.5) > 1e-9 || math.Abs(*first.End-4.0) > 1e-9 {
		t.Fatalf("unexpected timing %f-%f", *first.Start, *first.End)
	}
	if first.Text != "Welcome to the lecture." {
		t.Fatalf("unexpected text %q", first.Text)
	}

	second := transcript.Segments[1]
	if second.Text != "Today we cover integration. By substitution." {
		t.Fatalf("multi-line cue not joined: %q", second.Text)
	}

	if !strings.Contains(transcript.Text, "Welcome to the lecture.") || !strings.Contains(transcript.Text, "integration.") {
		t.Fatalf("full text missing caption content: %q", transcript.Text)
	}
}

func TestParseSRTRejectsGarbage(t *testing.T) {
	if _, err := transcripts.Parse("captions.srt", []byte("not an srt file at all")); err == nil {
		t.Fatal("expected error for malformed srt")
	}
}

func TestParseVTT(t *testing.T) {
	data := []byte("WEBVTT\n\n00:01.000 --> 00:04.500\nFirst caption here.\n\n" +
		"cue-2\n01:00:00.000 --> 01:00:02.000 align:start\nSecond caption here.\n")

	transcript, err := transcripts.Parse("captions.vtt", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}

	first := transcript.Segments[0]
	if math.Abs(*first.Start-1.0) > 1e-9 || math.Abs(*first.End-4.5) > 1e-9 {
		t.Fatalf("unexpected timing %f-%f", *first.Start, *first.End)
	}

	second := transcript.Segments[1]
	if math.Abs(*second.Start-3600.0) > 1e-9 || math.Abs(*second.End-3602.0) > 1e-9 {
		t.Fatalf("hour timestamps not handled: %f-%f", *second.Start, *second.End)
	}
}

func TestParseVTTRequiresHeader(t *testing.T) {
	if _, err := transcripts.Parse("captions.vtt", []byte("00:01.000 --> 00:04.500\nText\n")); err == nil {
		t.Fatal("expected error when WEBVTT header is missing")
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	if _, err := transcripts.Parse("audio.mp3", []byte("data")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
