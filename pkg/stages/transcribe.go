package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/newm4n/pranoto.ai/pkg/database"
	"github.com/newm4n/pranoto.ai/pkg/objectkey"
	"github.com/newm4n/pranoto.ai/pkg/toolrunner"
	"github.com/newm4n/pranoto.ai/pkg/types"
)

// Transcribe reacts to audio.converted: it downloads the audio blob, runs
// the speech recognizer, uploads the transcript and persists the transcript
// text alongside the final status.
type Transcribe struct {
	store       ObjectStore
	videos      StatusStore
	cache       StatusCache
	runner      ToolRunner
	scratchRoot string
	whisperPath string
	modelSize   string
	timeout     time.Duration
}

// NewTranscribe creates the transcribe stage handler. modelSize selects the
// recognizer model; the smallest model is the operational default to bound
// processing latency.
func NewTranscribe(
	store ObjectStore,
	videos StatusStore,
	cache StatusCache,
	runner ToolRunner,
	scratchRoot string,
	whisperPath string,
	modelSize string,
	timeout time.Duration,
) *Transcribe {
	return &Transcribe{
		store:       store,
		videos:      videos,
		cache:       cache,
		runner:      runner,
		scratchRoot: scratchRoot,
		whisperPath: whisperPath,
		modelSize:   modelSize,
		timeout:     timeout,
	}
}

// transcript is the subset of the recognizer's JSON output the pipeline
// keeps.
type transcript struct {
	Text string `json:"text"`
}

// Handle processes one audio.converted delivery.
func (t *Transcribe) Handle(ctx context.Context, body []byte) error {
	var msg types.AudioConvertedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to parse message: %s", err)
	}

	log.Printf("\n[→] Transcribe: video %s (key: %s)\n", msg.ID, msg.AudioKey)

	key, err := objectkey.Parse(msg.AudioKey)
	if err != nil {
		return err
	}

	done, err := alreadyDone(ctx, t.videos, t.cache, msg.ID, types.StatusTranscribed)
	if err != nil {
		return err
	}
	if done {
		log.Printf("[↷] Skip: video %s already transcribed or failed\n", msg.ID)
		return nil
	}

	if err := setStatus(ctx, t.videos, t.cache, msg.ID, types.StatusTranscribing); err != nil {
		return err
	}

	scratch, err := newScratchDir(t.scratchRoot, "transcribe", msg.ID)
	if err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}
	defer removeScratchDir(scratch)

	audioPath := filepath.Join(scratch, key.FileName())
	log.Printf("    [↓] Downloading %s...\n", msg.AudioKey)
	if err := t.store.Download(ctx, msg.AudioKey, audioPath); err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}

	// The recognizer names its output after the input file: <base>.json in
	// the output directory. The derivation here must match the tool's.
	outputPath := filepath.Join(scratch, key.Base+"."+objectkey.TranscriptExt)
	log.Printf("    [*] Transcribing %s -> %s\n", audioPath, outputPath)
	args := []string{audioPath, "--model", t.modelSize, "--output_format", "json", "--output_dir", scratch}
	if err := t.runner.Run(ctx, t.whisperPath, args, t.timeout); err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}
	if err := toolrunner.EnsureOutput(outputPath); err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}

	transcriptKey := objectkey.TranscriptKey(key)
	log.Printf("    [↑] Uploading %s...\n", transcriptKey)
	if err := t.store.Upload(ctx, outputPath, transcriptKey); err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}

	text, err := readTranscriptText(outputPath)
	if err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, err)
	}

	// Transcript text and final status land in one write.
	status := types.StatusTranscribed
	if err := t.videos.UpdateFields(ctx, msg.ID, database.Fields{Status: &status, Text: &text}); err != nil {
		return fail(ctx, t.videos, t.cache, msg.ID, fmt.Errorf("failed to update status to %s: %w", status, err))
	}
	mirrorStatus(ctx, t.cache, msg.ID, status)

	log.Printf("[✓] Transcribe: video %s -> %s\n", msg.ID, transcriptKey)
	return nil
}

func readTranscriptText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}

	var tr transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("failed to parse transcript: %w", err)
	}

	return tr.Text, nil
}
