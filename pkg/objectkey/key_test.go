package objectkey

import (
	"errors"
	"testing"
)

func TestParseAndDerive(t *testing.T) {
	key, err := Parse("/videos/v1.mov")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if key.Base != "v1" {
		t.Errorf("Base = %q, want %q", key.Base, "v1")
	}
	if key.Ext != "mov" {
		t.Errorf("Ext = %q, want %q", key.Ext, "mov")
	}
	if got := key.FileName(); got != "v1.mov" {
		t.Errorf("FileName() = %q, want %q", got, "v1.mov")
	}
	if got := key.String(); got != "/videos/v1.mov" {
		t.Errorf("String() = %q, want %q", got, "/videos/v1.mov")
	}

	if got := AudioKey(key); got != "/audios/v1.mp3" {
		t.Errorf("AudioKey = %q, want %q", got, "/audios/v1.mp3")
	}
	if got := TranscriptKey(key); got != "/texts/v1.json" {
		t.Errorf("TranscriptKey = %q, want %q", got, "/texts/v1.json")
	}
}

func TestParsePreservesBaseAcrossRoots(t *testing.T) {
	cases := []struct {
		key        string
		audio      string
		transcript string
	}{
		{"/videos/v1.mov", "/audios/v1.mp3", "/texts/v1.json"},
		{"videos/lecture-02.mp4", "audios/lecture-02.mp3", "texts/lecture-02.json"},
		{"/videos/nested/deep.webm", "/audios/deep.mp3", "/texts/deep.json"},
	}

	for _, tc := range cases {
		key, err := Parse(tc.key)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tc.key, err)
			continue
		}
		if got := AudioKey(key); got != tc.audio {
			t.Errorf("AudioKey(%q) = %q, want %q", tc.key, got, tc.audio)
		}
		if got := TranscriptKey(key); got != tc.transcript {
			t.Errorf("TranscriptKey(%q) = %q, want %q", tc.key, got, tc.transcript)
		}
	}
}

func TestParseRejectsMalformedKeys(t *testing.T) {
	cases := []string{
		"",
		"/",
		"/videos/novalidextension",
		"/videos/.hidden",
		"/videos/trailingdot.",
		"videos/",
	}

	for _, key := range cases {
		_, err := Parse(key)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want MalformedKeyError", key)
			continue
		}

		var malformed *MalformedKeyError
		if !errors.As(err, &malformed) {
			t.Errorf("Parse(%q) error = %v, want MalformedKeyError", key, err)
		}
	}
}

func TestParseKeyWithoutRoot(t *testing.T) {
	key, err := Parse("v1.mov")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := key.String(); got != "v1.mov" {
		t.Errorf("String() = %q, want %q", got, "v1.mov")
	}
	if got := AudioKey(key); got != "audios/v1.mp3" {
		t.Errorf("AudioKey = %q, want %q", got, "audios/v1.mp3")
	}
}

func TestParseKeepsFullBaseWithDots(t *testing.T) {
	key, err := Parse("/videos/v1.final.mov")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if key.Base != "v1.final" {
		t.Errorf("Base = %q, want %q", key.Base, "v1.final")
	}
	if got := AudioKey(key); got != "/audios/v1.final.mp3" {
		t.Errorf("AudioKey = %q, want %q", got, "/audios/v1.final.mp3")
	}
}
