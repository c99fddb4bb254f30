package fallback

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/pkg/clock"
)

// CSVStore appends undelivered records to one file per day:
// <dir>/unsent_<YYYY-MM-DD>.csv, using the same line format as ingestion.
type CSVStore struct {
	dir   string
	clock clock.Clock
	mu    sync.Mutex
}

// NewCSVStore returns a store writing under dir.
func NewCSVStore(dir string, clk clock.Clock) *CSVStore {
	return &CSVStore{dir: dir, clock: clk}
}

// Path returns the fallback file for day.
func (s *CSVStore) Path(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("unsent_%s.csv", day.Format(time.DateOnly)))
}

// Persist appends one line per record to today's file, creating the
// directory and file when missing.
func (s *CSVStore) Persist(records []domain.Record) (string, error) {
	path := s.Path(s.clock.Now())
	if len(records) == 0 {
		return path, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", domain.ErrFallbackWrite, s.dir, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", domain.ErrFallbackWrite, path, err)
	}

	w := bufio.NewWriter(f)
	for _, rec := range records {
		if _, err := w.WriteString(rec.Line() + "\n"); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("%w: write %s: %w", domain.ErrFallbackWrite, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("%w: flush %s: %w", domain.ErrFallbackWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", domain.ErrFallbackWrite, path, err)
	}
	return path, nil
}
