package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-seating/internal/handler"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/service"
)

const secret = "router-secret"

type stubService struct{}

func (stubService) ListVenues(context.Context, repository.VenueFilter) ([]model.Venue, error) {
	return []model.Venue{}, nil
}
func (stubService) GetVenue(_ context.Context, id uint64) (*model.Venue, error) {
	return &model.Venue{ID: id}, nil
}
func (stubService) ResolveRoster(context.Context, uint64) ([]model.Student, error) {
	return []model.Student{}, nil
}
func (stubService) AutoAllocate(_ context.Context, in service.AutoAllocateInput) (*service.AutoResult, error) {
	return &service.AutoResult{ExamID: in.ExamID}, nil
}
func (stubService) ManualAllocate(_ context.Context, in service.ManualAllocateInput) (*service.ManualResult, error) {
	return &service.ManualResult{ExamID: in.ExamID}, nil
}
func (stubService) AllocationsForExam(context.Context, uint64) ([]model.AllocationView, error) {
	return []model.AllocationView{}, nil
}
func (stubService) AllAllocations(context.Context) ([]model.AllocationView, error) {
	return []model.AllocationView{}, nil
}
func (stubService) ExportExam(context.Context, uint64) (*bytes.Buffer, string, error) {
	return bytes.NewBufferString("x"), "seating_exam_1.xlsx", nil
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newServer(limiter echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, Deps{
		Seating:      handler.NewSeatingHandler(stubService{}, nil),
		Ready:        func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTSecret:    secret,
		WriteLimiter: limiter,
	})
	return e
}

func call(e *echo.Echo, method, path, bearer, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestProbesArePublic(t *testing.T) {
	e := newServer(nil)
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "", ""))
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/readyz", "", ""))
}

func TestRoleMatrix(t *testing.T) {
	e := newServer(nil)
	auto := `{"exam_id":1}`

	require.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/venues", "", ""))

	teacher := token(t, "TEACHER")
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/venues", teacher, ""))
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/exam-seating", teacher, ""))
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/exam-seating/template", teacher, ""))
	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/exams/1/seating/export", teacher, ""))
	require.Equal(t, http.StatusForbidden, call(e, http.MethodPost, "/v1/exam-seating/auto-allocate", teacher, auto))

	coe := token(t, "COE")
	require.Equal(t, http.StatusOK, call(e, http.MethodPost, "/v1/exam-seating/auto-allocate", coe, auto))

	require.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/venues", token(t, "STUDENT"), ""))
}

func TestWriteLimiterOnlyOnWrites(t *testing.T) {
	hits := 0
	limiter := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits++
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
		}
	}
	e := newServer(limiter)
	admin := token(t, "ADMIN")

	require.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/exam-seating", admin, ""))
	require.Equal(t, 0, hits)
	require.Equal(t, http.StatusTooManyRequests, call(e, http.MethodPost, "/v1/exam-seating/auto-allocate", admin, `{"exam_id":1}`))
	require.Equal(t, http.StatusTooManyRequests, call(e, http.MethodPost, "/v1/exam-seating/manual-allocate", admin, ""))
	require.Equal(t, 2, hits)
}
