package ensemble

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// resultStore persists candidates under an optional directory, one
// zstd-compressed file per subsample index. An empty directory disables
// storage entirely.
type resultStore struct {
	dir   string
	codec CandidateCodec
}

func newResultStore(dir string, codec CandidateCodec) *resultStore {
	return &resultStore{dir: dir, codec: codec}
}

func (s *resultStore) enabled() bool {
	return s.dir != ""
}

func (s *resultStore) path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("subsample_result_%d.zst", index))
}

// prepare idempotently creates the storage directory.
func (s *resultStore) prepare() error {
	if !s.enabled() {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %w", ErrStorage, s.dir, err)
	}
	return nil
}

// dump encodes, compresses and writes one candidate under its subsample
// index, replacing any previous file.
func (s *resultStore) dump(c Candidate, index int) error {
	raw, err := s.codec.MarshalCandidate(c)
	if err != nil {
		return fmt.Errorf("%w: encode result %d: %w", ErrCorruptResult, index, err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("%w: result %d: create zstd writer: %w", ErrStorage, index, err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: compress result %d: %w", ErrStorage, index, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: compress result %d: %w", ErrStorage, index, err)
	}

	if err := os.WriteFile(s.path(index), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write result %d: %w", ErrStorage, index, err)
	}
	return nil
}

// load reads, decompresses and decodes the candidate stored under index.
// Truncated or invalid compressed frames surface as ErrCorruptResult.
func (s *resultStore) load(index int) (Candidate, error) {
	data, err := os.ReadFile(s.path(index))
	if err != nil {
		return nil, fmt.Errorf("%w: read result %d: %w", ErrStorage, index, err)
	}

	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: result %d: create zstd reader: %w", ErrCorruptResult, index, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: result %d: invalid or truncated zstd frame: %w", ErrCorruptResult, index, err)
	}

	c, err := s.codec.UnmarshalCandidate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode result %d: %w", ErrCorruptResult, index, err)
	}
	return c, nil
}

// remove deletes the stored files for the given indices. Cleanup is
// best-effort: failures are logged, never raised.
func (s *resultStore) remove(indices []int) {
	if !s.enabled() {
		return
	}
	for _, index := range indices {
		if err := os.Remove(s.path(index)); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path(index)).Msg("failed to delete stored result")
		}
	}
}
