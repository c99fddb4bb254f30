package service

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/ports"
	"github.com/showads/data-connector/internal/pkg/metrics"
)

// Ingestion sources, used as metric labels.
const (
	SourceAPI    = "api"
	SourceUpload = "upload"
	SourceCLI    = "cli"
)

// maxLineBytes caps a single CSV line; longer lines are dropped as malformed.
const maxLineBytes = 64 * 1024

type ingestService struct {
	defaults domain.AgeLimits
	log      zerolog.Logger
}

// NewIngestService returns an IngestService whose age limits fall back to
// defaults (the environment-level configuration).
func NewIngestService(defaults domain.AgeLimits, log zerolog.Logger) ports.IngestService {
	return &ingestService{
		defaults: defaults,
		log:      log.With().Str("component", "ingest").Logger(),
	}
}

// Admit validates rec against the resolved limits and logs why it was skipped.
func (s *ingestService) Admit(rec domain.Record, filter domain.AgeFilter) bool {
	err := rec.Validate(s.defaults.Resolve(filter))
	if err == nil {
		return true
	}
	metrics.RecordsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
	s.log.Warn().Str("cookie", rec.Cookie()).Msgf("Skipping record %s: %s", rec.Cookie(), err)
	return false
}

// ParseCSV reads one record per non-empty line and keeps the admitted ones.
// A bad line is logged and skipped; it never ends the batch.
func (s *ingestService) ParseCSV(r io.Reader, filter domain.AgeFilter, source string) []domain.Record {
	var out []domain.Record

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			lineNo++
			if rec, ok := s.parseLine(raw, lineNo, source); ok && s.Admit(rec, filter) {
				out = append(out, rec)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Error().Err(err).Int("line", lineNo).Msg("csv read stopped early")
			}
			break
		}
	}

	s.log.Info().Str("source", source).Int("lines", lineNo).Int("admitted", len(out)).Msg("csv parsed")
	return out
}

// parseLine decodes one raw line. Blank lines report false without a warning.
func (s *ingestService) parseLine(raw string, lineNo int, source string) (domain.Record, bool) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(line) == "" {
		return domain.Record{}, false
	}

	metrics.RecordsReceivedTotal.WithLabelValues(source).Inc()
	if len(line) > maxLineBytes {
		metrics.RecordsRejectedTotal.WithLabelValues("malformed").Inc()
		s.log.Warn().Int("line", lineNo).Int("bytes", len(line)).
			Msgf("Error while parsing data: line longer than %d bytes", maxLineBytes)
		return domain.Record{}, false
	}

	rec, err := domain.ParseLine(line)
	if err != nil {
		metrics.RecordsRejectedTotal.WithLabelValues("malformed").Inc()
		s.log.Warn().Err(err).Int("line", lineNo).Msgf("Error while parsing data: %q", line)
		return domain.Record{}, false
	}
	s.log.Debug().Str("cookie", rec.Cookie()).Msg("record loaded")
	return rec, true
}

// IsCSVFilename reports whether name has a .csv extension, ignoring case.
func IsCSVFilename(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return strings.EqualFold(name[i+1:], "csv")
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, domain.ErrInvalidCookie):
		return "invalid_cookie"
	case errors.Is(err, domain.ErrAgeFiltered):
		return "age"
	case errors.Is(err, domain.ErrBannerOutOfRange):
		return "banner_id"
	default:
		return "other"
	}
}
