package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-seating/internal/lock"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/seating"
	"github.com/iliyamo/exam-seating/internal/service"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrExamNotFound),
		errors.Is(err, repository.ErrVenueNotFound),
		errors.Is(err, service.ErrNoAllocations):
		return http.StatusNotFound
	case errors.Is(err, seating.ErrNoStudentsFound),
		errors.Is(err, seating.ErrNoVenuesSelected),
		errors.Is(err, seating.ErrAllVenuesUnavailable),
		errors.Is(err, seating.ErrEmptyValidBatch),
		errors.Is(err, seating.ErrInvalidVenue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, lock.ErrBusy),
		errors.Is(err, repository.ErrSeatConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes the JSON error body for err.  Internal errors are logged
// and hidden from the client.
func (h *SeatingHandler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
