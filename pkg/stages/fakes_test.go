package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newm4n/pranoto.ai/pkg/database"
	"github.com/newm4n/pranoto.ai/pkg/types"
)

type fakeObjectStore struct {
	objects     map[string][]byte
	downloads   []string
	uploads     []string
	downloadErr error
	uploadErr   error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) Download(ctx context.Context, key, localPath string) error {
	s.downloads = append(s.downloads, key)
	if s.downloadErr != nil {
		return s.downloadErr
	}
	content, ok := s.objects[key]
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	return os.WriteFile(localPath, content, 0o644)
}

func (s *fakeObjectStore) Upload(ctx context.Context, localPath, key string) error {
	s.uploads = append(s.uploads, key)
	if s.uploadErr != nil {
		return s.uploadErr
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.objects[key] = content
	return nil
}

type fakeStatusStore struct {
	videos          map[string]*types.Video
	history         map[string][]types.Status
	reasons         map[string]string
	getErr          error
	failOnStatus    types.Status // UpdateStatus fails when writing this status
	updateFieldsErr error
}

func newFakeStatusStore(videos ...*types.Video) *fakeStatusStore {
	s := &fakeStatusStore{
		videos:  map[string]*types.Video{},
		history: map[string][]types.Status{},
		reasons: map[string]string{},
	}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeStatusStore) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	video, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	copied := *video
	return &copied, nil
}

func (s *fakeStatusStore) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	if s.failOnStatus != "" && status == s.failOnStatus {
		return fmt.Errorf("database down writing %s", status)
	}
	video, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	video.Status = status
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *fakeStatusStore) UpdateFields(ctx context.Context, id string, fields database.Fields) error {
	if s.updateFieldsErr != nil {
		return s.updateFieldsErr
	}
	video, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	if fields.Status != nil {
		video.Status = *fields.Status
		s.history[id] = append(s.history[id], *fields.Status)
	}
	if fields.Text != nil {
		video.Text = *fields.Text
	}
	if fields.URL != nil {
		video.URL = *fields.URL
	}
	return nil
}

func (s *fakeStatusStore) MarkFailed(ctx context.Context, id, reason string) error {
	video, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	video.Status = types.StatusFailed
	s.reasons[id] = reason
	s.history[id] = append(s.history[id], types.StatusFailed)
	return nil
}

type fakeCache struct {
	statuses map[string]types.Status
}

func newFakeCache() *fakeCache {
	return &fakeCache{statuses: map[string]types.Status{}}
}

func (c *fakeCache) GetStatus(ctx context.Context, id string) (types.Status, error) {
	return c.statuses[id], nil
}

func (c *fakeCache) SetStatus(ctx context.Context, id string, status types.Status, ttl time.Duration) error {
	c.statuses[id] = status
	return nil
}

type fakePublisher struct {
	published []any
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, message any) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, message)
	return nil
}

type fakeRunner struct {
	calls [][]string
	runFn func(executable string, args []string) error
}

func (r *fakeRunner) Run(ctx context.Context, executable string, args []string, timeout time.Duration) error {
	r.calls = append(r.calls, append([]string{executable}, args...))
	if r.runFn != nil {
		return r.runFn(executable, args)
	}
	return nil
}

// ffmpegFake mimics the transcoder: the output path is the final argument.
func ffmpegFake(content string) func(executable string, args []string) error {
	return func(executable string, args []string) error {
		out := args[len(args)-1]
		return os.WriteFile(out, []byte(content), 0o644)
	}
}

// whisperFake mimics the recognizer: it writes <base>.json into the
// directory given by --output_dir, deriving base from the input path.
func whisperFake(transcriptJSON string) func(executable string, args []string) error {
	return func(executable string, args []string) error {
		input := args[0]
		outputDir := args[len(args)-1]
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		return os.WriteFile(filepath.Join(outputDir, base+".json"), []byte(transcriptJSON), 0o644)
	}
}

// assertScratchEmpty fails the test when any scratch files survived the
// invocation.
func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("failed to read scratch root: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("scratch root not empty after invocation: %v", names)
	}
}

// assertMonotonic fails the test when the observed status sequence is not a
// forward walk, optionally ending at FAILED.
func assertMonotonic(t *testing.T, history []types.Status) {
	t.Helper()
	prev := -1
	for i, status := range history {
		if status == types.StatusFailed {
			if i != len(history)-1 {
				t.Errorf("FAILED is not the final status in %v", history)
			}
			return
		}
		if status.Rank() <= prev {
			t.Errorf("status sequence %v is not monotonic at %s", history, status)
			return
		}
		prev = status.Rank()
	}
}
