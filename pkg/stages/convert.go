package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/newm4n/pranoto.ai/pkg/objectkey"
	"github.com/newm4n/pranoto.ai/pkg/toolrunner"
	"github.com/newm4n/pranoto.ai/pkg/types"
)

// Convert reacts to video.uploaded: it downloads the original video, strips
// the audio track with the transcoder, uploads the audio blob and announces
// audio.converted.
type Convert struct {
	store       ObjectStore
	videos      StatusStore
	cache       StatusCache
	publisher   Publisher
	runner      ToolRunner
	scratchRoot string
	ffmpegPath  string
	timeout     time.Duration
}

// NewConvert creates the convert stage handler.
func NewConvert(
	store ObjectStore,
	videos StatusStore,
	cache StatusCache,
	publisher Publisher,
	runner ToolRunner,
	scratchRoot string,
	ffmpegPath string,
	timeout time.Duration,
) *Convert {
	return &Convert{
		store:       store,
		videos:      videos,
		cache:       cache,
		publisher:   publisher,
		runner:      runner,
		scratchRoot: scratchRoot,
		ffmpegPath:  ffmpegPath,
		timeout:     timeout,
	}
}

// Handle processes one video.uploaded delivery.
func (c *Convert) Handle(ctx context.Context, body []byte) error {
	var msg types.VideoUploadedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to parse message: %s", err)
	}

	log.Printf("\n[→] Convert: video %s (key: %s)\n", msg.ID, msg.SourceKey)

	// Reject unusable keys before touching status or storage.
	key, err := objectkey.Parse(msg.SourceKey)
	if err != nil {
		return err
	}

	done, err := alreadyDone(ctx, c.videos, c.cache, msg.ID, types.StatusConverted)
	if err != nil {
		return err
	}
	if done {
		log.Printf("[↷] Skip: video %s already converted or failed\n", msg.ID)
		return nil
	}

	if err := setStatus(ctx, c.videos, c.cache, msg.ID, types.StatusConverting); err != nil {
		return err
	}

	scratch, err := newScratchDir(c.scratchRoot, "convert", msg.ID)
	if err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}
	defer removeScratchDir(scratch)

	videoPath := filepath.Join(scratch, key.FileName())
	log.Printf("    [↓] Downloading %s...\n", msg.SourceKey)
	if err := c.store.Download(ctx, msg.SourceKey, videoPath); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}

	audioPath := filepath.Join(scratch, key.Base+"."+objectkey.AudioExt)
	log.Printf("    [*] Transcoding %s -> %s\n", videoPath, audioPath)
	args := []string{"-y", "-i", videoPath, "-b:a", "192K", "-vn", audioPath}
	if err := c.runner.Run(ctx, c.ffmpegPath, args, c.timeout); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}
	if err := toolrunner.EnsureOutput(audioPath); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}

	audioKey := objectkey.AudioKey(key)
	log.Printf("    [↑] Uploading %s...\n", audioKey)
	if err := c.store.Upload(ctx, audioPath, audioKey); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}

	// The status write must land before the event goes out, so observers of
	// audio.converted never see a status older than CONVERTING.
	if err := setStatus(ctx, c.videos, c.cache, msg.ID, types.StatusConverted); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}

	next := types.AudioConvertedMessage{ID: msg.ID, AudioKey: audioKey}
	if err := c.publisher.Publish(ctx, next); err != nil {
		return fail(ctx, c.videos, c.cache, msg.ID, err)
	}

	log.Printf("[✓] Convert: video %s -> %s\n", msg.ID, audioKey)
	return nil
}
