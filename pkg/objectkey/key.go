// Package objectkey parses object storage keys and derives the keys for the
// artifacts each pipeline stage produces. Keys follow the layout
// [/]<root>/<base>.<ext>; the root names the content kind (videos, audios,
// texts), the base name is preserved across every transform.
package objectkey

import (
	"fmt"
	"strings"
)

// Roots and extensions of the derived artifacts.
const (
	AudioRoot      = "audios"
	AudioExt       = "mp3"
	TranscriptRoot = "texts"
	TranscriptExt  = "json"
)

// MalformedKeyError reports a storage key whose final segment carries no
// usable base name and extension. Such keys are rejected before any I/O.
type MalformedKeyError struct {
	Key string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed object storage key: %q", e.Key)
}

// Key is a parsed object storage key.
type Key struct {
	rooted bool   // original key started with "/"
	root   string // first path segment
	Base   string // file name without extension
	Ext    string // extension without the dot
}

// Parse splits a storage key into root, base name and extension.
func Parse(key string) (Key, error) {
	rooted := strings.HasPrefix(key, "/")
	trimmed := strings.Trim(key, "/")
	if trimmed == "" {
		return Key{}, &MalformedKeyError{Key: key}
	}

	segments := strings.Split(trimmed, "/")
	file := segments[len(segments)-1]

	dot := strings.LastIndex(file, ".")
	if dot <= 0 || dot == len(file)-1 {
		return Key{}, &MalformedKeyError{Key: key}
	}

	root := ""
	if len(segments) > 1 {
		root = segments[0]
	}

	return Key{
		rooted: rooted,
		root:   root,
		Base:   file[:dot],
		Ext:    file[dot+1:],
	}, nil
}

// WithRoot returns the key string for the same base name under a different
// root and extension. A leading slash is preserved from the source key.
func (k Key) WithRoot(root, ext string) string {
	prefix := ""
	if k.rooted {
		prefix = "/"
	}
	return fmt.Sprintf("%s%s/%s.%s", prefix, root, k.Base, ext)
}

// String reassembles the key as parsed.
func (k Key) String() string {
	if k.root == "" {
		prefix := ""
		if k.rooted {
			prefix = "/"
		}
		return fmt.Sprintf("%s%s.%s", prefix, k.Base, k.Ext)
	}
	return k.WithRoot(k.root, k.Ext)
}

// FileName returns the final path segment, base name plus extension.
func (k Key) FileName() string {
	return k.Base + "." + k.Ext
}

// AudioKey derives the storage key of the audio extracted from a video key.
func AudioKey(src Key) string {
	return src.WithRoot(AudioRoot, AudioExt)
}

// TranscriptKey derives the storage key of the transcript produced from a
// video or audio key.
func TranscriptKey(src Key) string {
	return src.WithRoot(TranscriptRoot, TranscriptExt)
}
