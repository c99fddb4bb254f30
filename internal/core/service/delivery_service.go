package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/ports"
	"github.com/showads/data-connector/internal/pkg/clock"
	"github.com/showads/data-connector/internal/pkg/metrics"
)

// MaxSendAttempts bounds the POSTs made for one chunk, 401s included.
const MaxSendAttempts = 3

const (
	PathBannerShow     = "/banners/show"
	PathBannerShowBulk = "/banners/show/bulk"
)

// route describes one banner endpoint and the payload shape it expects.
type route struct {
	name    string
	path    string
	payload func(chunk []domain.Record) any
}

var (
	singleRoute = route{
		name: domain.RouteSingle,
		path: PathBannerShow,
		payload: func(chunk []domain.Record) any {
			return chunk[0].Transform()
		},
	}
	bulkRoute = route{
		name: domain.RouteBulk,
		path: PathBannerShowBulk,
		payload: func(chunk []domain.Record) any {
			views := make([]domain.BannerView, len(chunk))
			for i, rec := range chunk {
				views[i] = rec.Transform()
			}
			return domain.BulkBannerView{Data: views}
		},
	}
)

type deliveryService struct {
	creds    *CredentialStore
	client   ports.ShowAdsClient
	fallback ports.FallbackStore
	journal  ports.DeliveryJournal // optional
	clock    clock.Clock
	log      zerolog.Logger
}

// NewDeliveryService returns a DeliveryService. journal may be nil.
func NewDeliveryService(
	creds *CredentialStore,
	client ports.ShowAdsClient,
	fallback ports.FallbackStore,
	journal ports.DeliveryJournal,
	clk clock.Clock,
	log zerolog.Logger,
) ports.DeliveryService {
	return &deliveryService{
		creds:    creds,
		client:   client,
		fallback: fallback,
		journal:  journal,
		clock:    clk,
		log:      log.With().Str("component", "delivery").Logger(),
	}
}

// SendRecord delivers a single record through the single-record endpoint.
func (s *deliveryService) SendRecord(ctx context.Context, rec domain.Record) (int, error) {
	return s.sendChunk(ctx, singleRoute, uuid.NewString(), 0, []domain.Record{rec})
}

// SendAll delivers records through the bulk endpoint in contiguous chunks of
// at most domain.MaxChunkSize.
func (s *deliveryService) SendAll(ctx context.Context, records []domain.Record) (int, error) {
	batchID := uuid.NewString()
	total := 0
	for i, start := 0, 0; start < len(records); i, start = i+1, start+domain.MaxChunkSize {
		end := min(start+domain.MaxChunkSize, len(records))
		sent, err := s.sendChunk(ctx, bulkRoute, batchID, i, records[start:end])
		if err != nil {
			return total, err
		}
		total += sent
	}

	s.log.Info().
		Str("batch_id", batchID).
		Int("records", len(records)).
		Int("sent", total).
		Msg("batch delivered")
	return total, nil
}

// sendChunk makes up to MaxSendAttempts POSTs for chunk and stores the chunk
// in the fallback store when none of them succeeds.
func (s *deliveryService) sendChunk(ctx context.Context, r route, batchID string, index int, chunk []domain.Record) (int, error) {
	started := time.Now()
	defer func() {
		metrics.ChunkDeliveryDuration.WithLabelValues(r.name).Observe(time.Since(started).Seconds())
	}()

	log := s.log.With().
		Str("batch_id", batchID).
		Str("route", r.name).
		Int("chunk", index).
		Int("size", len(chunk)).
		Logger()

	s.creds.EnsureToken(ctx)

	payload := r.payload(chunk)
	sent := 0
	attempts := 0
	for attempts < MaxSendAttempts {
		attempts++
		token := s.creds.Token()

		status, err := s.client.Post(ctx, r.path, token, payload)
		if err != nil {
			metrics.DeliveryAttemptsTotal.WithLabelValues(r.name, "transport_error").Inc()
			log.Error().Err(err).Int("attempt", attempts).Msg("send fail: transport error")
			continue
		}

		metrics.DeliveryAttemptsTotal.WithLabelValues(r.name, attemptOutcome(status)).Inc()
		if status == http.StatusOK {
			sent = len(chunk)
			log.Debug().Int("attempt", attempts).Msg("chunk delivered")
			break
		}
		if status == http.StatusUnauthorized {
			log.Warn().Int("attempt", attempts).Msg("send fail: unauthorized, refreshing token")
			s.creds.RefreshRejected(ctx, token)
			continue
		}
		log.Error().Int("attempt", attempts).Int("status", status).
			Msgf("send fail: %s", sendFailureReason(status))
	}

	outcome := domain.DeliveryOutcome{
		BatchID:    batchID,
		Route:      r.name,
		ChunkIndex: index,
		Size:       len(chunk),
		Delivered:  sent,
		Attempts:   attempts,
		At:         s.clock.Now().UTC(),
	}

	if sent == 0 {
		path, err := s.fallback.Persist(chunk)
		if err != nil {
			log.Error().Err(err).Msg("unable to store undelivered records")
			return 0, fmt.Errorf("send chunk %d: %w", index, err)
		}
		outcome.FallbackFile = path
		metrics.RecordsFallbackTotal.Add(float64(len(chunk)))
		log.Warn().Str("file", path).Msg("chunk undelivered, stored for resend")
	} else {
		metrics.RecordsDeliveredTotal.WithLabelValues(r.name).Add(float64(sent))
	}

	s.recordOutcome(ctx, log, outcome)
	return sent, nil
}

func (s *deliveryService) recordOutcome(ctx context.Context, log zerolog.Logger, outcome domain.DeliveryOutcome) {
	if s.journal == nil {
		return
	}
	// Journal failures never affect delivery.
	if err := s.journal.RecordOutcome(ctx, outcome); err != nil {
		log.Warn().Err(err).Msg("failed to journal delivery outcome")
	}
}

func attemptOutcome(status int) string {
	switch status {
	case http.StatusOK:
		return "ok"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusInternalServerError:
		return "server_error"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "other"
	}
}

func sendFailureReason(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusInternalServerError:
		return "destination server error"
	case http.StatusTooManyRequests:
		return "destination server is under heavy load"
	default:
		return fmt.Sprintf("return code %d", status)
	}
}
