package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// PublicPathPrefix is the stable address scheme under which the HTTP layer
// serves stored artifacts to the telephony provider.
const PublicPathPrefix = "/static/tts/"

// ArtifactStore writes synthesized audio to disk and hands back the public
// path the telephony layer fetches it from.
type ArtifactStore struct {
	dir string

	// lastStamp makes artifact names monotonic even when two turns for the
	// same call land within one clock tick.
	lastStamp atomic.Int64
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the on-disk directory backing the store.
func (s *ArtifactStore) Dir() string { return s.dir }

// Save durably writes one artifact and returns its public path.
func (s *ArtifactStore) Save(callSID string, audio []byte) (string, error) {
	name := fmt.Sprintf("tts_%s_%d.mp3", sanitizeSID(callSID), s.nextStamp())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("%w: write artifact: %v", ErrSynthesisFailed, err)
	}
	return PublicPathPrefix + name, nil
}

func (s *ArtifactStore) nextStamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := s.lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if s.lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

func sanitizeSID(sid string) string {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "anon"
	}
	var b strings.Builder
	for _, r := range sid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
