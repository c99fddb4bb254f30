package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/api/middleware"
	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/ports"
	"github.com/showads/data-connector/internal/core/service"
	"github.com/showads/data-connector/internal/pkg/metrics"
)

// RecordHandler accepts customer records and hands them to the delivery pipeline.
type RecordHandler struct {
	ingest   ports.IngestService
	delivery ports.DeliveryService
	log      zerolog.Logger
}

func NewRecordHandler(ingest ports.IngestService, delivery ports.DeliveryService, log zerolog.Logger) *RecordHandler {
	return &RecordHandler{
		ingest:   ingest,
		delivery: delivery,
		log:      log.With().Str("component", "record_handler").Logger(),
	}
}

// Send handles POST /send_record.
//
// @Summary      Send a single customer record
// @Tags         records
// @Accept       json
// @Produce      json
// @Param        body  body      sendRecordRequest  true  "Customer record with optional age bounds"
// @Success      202   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /send_record [post]
func (h *RecordHandler) Send(c echo.Context) error {
	var req sendRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to process data")
	}
	if err := c.Validate(&req); err != nil {
		h.log.Warn().Err(err).Msg("/send_record: failed to transform received data to record")
		return echo.NewHTTPError(http.StatusBadRequest, "failed to process data: "+err.Error())
	}

	metrics.RecordsReceivedTotal.WithLabelValues(service.SourceAPI).Inc()
	rec := domain.NewRecord(*req.Name, *req.Age, *req.Cookie, *req.BannerID)
	filter := domain.AgeFilter{MinAge: req.MinAge, MaxAge: req.MaxAge}

	if !h.ingest.Admit(rec, filter) {
		return c.JSON(http.StatusAccepted, messageResponse{
			Message: fmt.Sprintf("Record %s did not pass the validation, ignored.", rec.Cookie()),
		})
	}

	h.log.Debug().Str("cookie", rec.Cookie()).Str("caller", caller(c)).Msg("/send_record: sending record to ShowAds")
	sent, err := h.delivery.SendRecord(c.Request().Context(), rec)
	if err != nil {
		return fmt.Errorf("send record %s: %w", rec.Cookie(), err)
	}

	msg := fmt.Sprintf("Record %s sent to ShowAds API.", rec.Cookie())
	if sent == 0 {
		msg = fmt.Sprintf("Record %s could not be delivered, stored for resend.", rec.Cookie())
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: msg})
}

// SendBulk handles POST /send_record/bulk.
//
// @Summary      Send a bulk of records using a CSV file
// @Tags         records
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file     true   "CSV file with name,age,cookie,banner_id lines"
// @Param        min_age  formData  integer  false  "Minimum age filter"
// @Param        max_age  formData  integer  false  "Maximum age filter"
// @Success      202      {object}  bulkResponse
// @Failure      400      {object}  errorResponse
// @Failure      415      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /send_record/bulk [post]
func (h *RecordHandler) SendBulk(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return echo.NewHTTPError(http.StatusBadRequest, "CSV file required.")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart payload")
	}
	if !service.IsCSVFilename(file.Filename) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Unsupported file format. Only CSV files are accepted.")
	}

	filter, err := formAgeFilter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	records := h.ingest.ParseCSV(src, filter, service.SourceUpload)
	h.log.Info().
		Str("file", file.Filename).
		Int64("size", file.Size).
		Int("records", len(records)).
		Str("caller", caller(c)).
		Msg("/send_record/bulk: sending records to ShowAds")

	sent, err := h.delivery.SendAll(c.Request().Context(), records)
	if err != nil {
		return fmt.Errorf("send bulk %s: %w", file.Filename, err)
	}
	return c.JSON(http.StatusAccepted, bulkResponse{Sent: sent})
}

// formAgeFilter reads the optional min_age and max_age form fields.
func formAgeFilter(c echo.Context) (domain.AgeFilter, error) {
	var f domain.AgeFilter
	var err error
	if f.MinAge, err = optionalInt(c.FormValue("min_age")); err != nil {
		return f, fmt.Errorf("min_age must be an integer")
	}
	if f.MaxAge, err = optionalInt(c.FormValue("max_age")); err != nil {
		return f, fmt.Errorf("max_age must be an integer")
	}
	return f, nil
}

func optionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// caller returns the JWT subject set by the ingest guard, if any.
func caller(c echo.Context) string {
	sub, _ := c.Get(middleware.SubjectKey).(string)
	return sub
}
