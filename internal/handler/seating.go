// Package handler exposes the seating API over HTTP.  Handlers decode the
// request, call the seating service and translate domain errors into
// status codes; they hold no business logic of their own.
package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-seating/internal/importer"
	"github.com/iliyamo/exam-seating/internal/middleware"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/seating"
	"github.com/iliyamo/exam-seating/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SeatingService is the use-case surface the handlers depend on.
type SeatingService interface {
	ListVenues(ctx context.Context, f repository.VenueFilter) ([]model.Venue, error)
	GetVenue(ctx context.Context, id uint64) (*model.Venue, error)
	ResolveRoster(ctx context.Context, examID uint64) ([]model.Student, error)
	AutoAllocate(ctx context.Context, in service.AutoAllocateInput) (*service.AutoResult, error)
	ManualAllocate(ctx context.Context, in service.ManualAllocateInput) (*service.ManualResult, error)
	AllocationsForExam(ctx context.Context, examID uint64) ([]model.AllocationView, error)
	AllAllocations(ctx context.Context) ([]model.AllocationView, error)
	ExportExam(ctx context.Context, examID uint64) (*bytes.Buffer, string, error)
}

// SeatingHandler serves venues, rosters and seat allocations.
type SeatingHandler struct {
	svc SeatingService
	log *zap.Logger
}

// NewSeatingHandler constructs a SeatingHandler.  It panics on a nil
// service.
func NewSeatingHandler(svc SeatingService, log *zap.Logger) *SeatingHandler {
	if svc == nil {
		panic("nil service passed to NewSeatingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SeatingHandler{svc: svc, log: log}
}

func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	return id, err == nil && id > 0
}

// ListVenues handles GET /v1/venues?exam_type=&available=&block=.
func (h *SeatingHandler) ListVenues(c echo.Context) error {
	var f repository.VenueFilter
	if raw := c.QueryParam("exam_type"); raw != "" {
		t, ok := model.NormalizeExamType(raw)
		if !ok {
			return badRequest(c, "invalid exam_type")
		}
		f.ExamType = t
	}
	if raw := c.QueryParam("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid available flag")
		}
		f.OnlyAvailable = b
	}
	f.Block = strings.TrimSpace(c.QueryParam("block"))

	venues, err := h.svc.ListVenues(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}

// GetVenue handles GET /v1/venues/:id.
func (h *SeatingHandler) GetVenue(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	v, err := h.svc.GetVenue(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Roster handles GET /v1/exams/:id/roster.
func (h *SeatingHandler) Roster(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid exam id")
	}
	students, err := h.svc.ResolveRoster(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exam_id": id, "items": students})
}

type autoAllocateRequest struct {
	ExamID    uint64   `json:"exam_id"`
	VenueIDs  []uint64 `json:"venue_ids"`
	KeepOrder bool     `json:"keep_order"`
}

// AutoAllocate handles POST /v1/exam-seating/auto-allocate.
func (h *SeatingHandler) AutoAllocate(c echo.Context) error {
	var req autoAllocateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ExamID == 0 {
		return badRequest(c, "exam_id is required")
	}
	res, err := h.svc.AutoAllocate(c.Request().Context(), service.AutoAllocateInput{
		ExamID:    req.ExamID,
		VenueIDs:  req.VenueIDs,
		KeepOrder: req.KeepOrder,
		Actor:     middleware.Actor(c),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ManualAllocate handles POST /v1/exam-seating/manual-allocate, a
// multipart form with exam_id and a CSV file.
func (h *SeatingHandler) ManualAllocate(c echo.Context) error {
	examID, ok := parseID(c.FormValue("exam_id"))
	if !ok {
		return badRequest(c, "exam_id is required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read file")
	}
	defer f.Close()

	res, err := h.svc.ManualAllocate(c.Request().Context(), service.ManualAllocateInput{
		ExamID: examID,
		File:   f,
		Actor:  middleware.Actor(c),
	})
	if errors.Is(err, seating.ErrEmptyValidBatch) && res != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error(), "errors": res.Errors, "log": res.Log})
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListAllocations handles GET /v1/exam-seating with an optional exam_id.
func (h *SeatingHandler) ListAllocations(c echo.Context) error {
	raw := c.QueryParam("exam_id")
	if raw == "" {
		rows, err := h.svc.AllAllocations(c.Request().Context())
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": rows})
	}
	id, ok := parseID(raw)
	if !ok {
		return badRequest(c, "invalid exam_id")
	}
	return h.examAllocations(c, id)
}

// ExamAllocations handles GET /v1/exams/:id/seating.
func (h *SeatingHandler) ExamAllocations(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid exam id")
	}
	return h.examAllocations(c, id)
}

func (h *SeatingHandler) examAllocations(c echo.Context, examID uint64) error {
	rows, err := h.svc.AllocationsForExam(c.Request().Context(), examID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exam_id": examID, "items": rows})
}

// Template handles GET /v1/exam-seating/template.
func (h *SeatingHandler) Template(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="seating_template.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", importer.Template())
}

// Export handles GET /v1/exams/:id/seating/export.
func (h *SeatingHandler) Export(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid exam id")
	}
	buf, filename, err := h.svc.ExportExam(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
