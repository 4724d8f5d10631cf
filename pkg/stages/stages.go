// Package stages implements the two pipeline stage handlers. Each handler
// consumes one event, performs one transformation (video → audio, audio →
// transcript), persists the status walk and publishes the follow-on event.
// Handlers are idempotent under broker redelivery: a video whose stored
// status is already at or past the stage's end state is skipped.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/newm4n/pranoto.ai/pkg/database"
	"github.com/newm4n/pranoto.ai/pkg/types"
)

// statusTTL bounds how long a cached status entry outlives its last write.
const statusTTL = 24 * time.Hour

// ObjectStore moves blobs between object storage and local scratch paths.
type ObjectStore interface {
	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, localPath, key string) error
}

// StatusStore persists video lifecycle state.
type StatusStore interface {
	GetVideo(ctx context.Context, id string) (*types.Video, error)
	UpdateStatus(ctx context.Context, id string, status types.Status) error
	UpdateFields(ctx context.Context, id string, fields database.Fields) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// StatusCache mirrors video status for cheap reads. Cache failures are never
// stage failures.
type StatusCache interface {
	GetStatus(ctx context.Context, id string) (types.Status, error)
	SetStatus(ctx context.Context, id string, status types.Status, ttl time.Duration) error
}

// Publisher sends the stage's follow-on event.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// ToolRunner invokes an external executable with a timeout.
type ToolRunner interface {
	Run(ctx context.Context, executable string, args []string, timeout time.Duration) error
}

// newScratchDir creates the private scratch directory for one stage
// invocation. The name embeds the stage and video id plus a random suffix so
// concurrent workers on the same node never collide.
func newScratchDir(root, stage, id string) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s-%s-%s", stage, id, uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, nil
}

// removeScratchDir deletes an invocation's scratch directory. Called via
// defer on every exit path; a failed removal is logged, never propagated.
func removeScratchDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[!] Warning: failed to remove scratch dir %s: %v\n", dir, err)
	}
}

// alreadyDone reports whether the video needs no work from a stage whose end
// state is done: either it already reached done (redelivered message) or it
// is FAILED (terminal). The cache is consulted first, then the store.
func alreadyDone(ctx context.Context, videos StatusStore, cache StatusCache, id string, done types.Status) (bool, error) {
	cached, err := cache.GetStatus(ctx, id)
	if err != nil {
		log.Printf("[!] Redis error (continuing): %v\n", err)
	} else if cached == types.StatusFailed || (cached != "" && cached.Rank() >= done.Rank()) {
		return true, nil
	}

	video, err := videos.GetVideo(ctx, id)
	if err != nil {
		return false, err
	}

	return video.Status == types.StatusFailed || video.Status.Rank() >= done.Rank(), nil
}

// setStatus writes the status to the store and mirrors it into the cache.
// The store write must succeed before the stage proceeds; the cache mirror
// is best effort.
func setStatus(ctx context.Context, videos StatusStore, cache StatusCache, id string, status types.Status) error {
	if err := videos.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update status to %s: %w", status, err)
	}
	mirrorStatus(ctx, cache, id, status)
	return nil
}

func mirrorStatus(ctx context.Context, cache StatusCache, id string, status types.Status) {
	if err := cache.SetStatus(ctx, id, status, statusTTL); err != nil {
		log.Printf("[!] Warning: failed to cache status for %s: %v\n", id, err)
	}
}

// fail records the failure reason and FAILED status, then hands the original
// error back for the consumer to reject the delivery. Worker shutdown is not
// a video failure: the status is left as-is so the requeued message finishes
// the stage after restart.
func fail(ctx context.Context, videos StatusStore, cache StatusCache, id string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		log.Printf("[!] Stage interrupted by shutdown for %s: %v\n", id, cause)
		return cause
	}
	if err := videos.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Printf("[!] Warning: failed to record failure for %s: %v\n", id, err)
	}
	mirrorStatus(ctx, cache, id, types.StatusFailed)
	return cause
}
