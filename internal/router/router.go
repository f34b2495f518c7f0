package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/exam-seating/internal/handler"
	"github.com/iliyamo/exam-seating/internal/middleware"
)

// ManualUploadLimit caps the size of a manual allocation upload.
const ManualUploadLimit = "8M"

// Deps carries everything the route table needs.  WriteLimiter guards the
// allocation endpoints and may be nil.
type Deps struct {
	Seating      *handler.SeatingHandler
	Ready        echo.HandlerFunc
	JWTSecret    string
	WriteLimiter echo.MiddlewareFunc
}

// RegisterRoutes mounts the probes and the seating API on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Ready != nil {
		e.GET("/readyz", d.Ready)
	}

	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))

	// Reads are open to every staff role.
	read := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleCOE, middleware.RoleTeacher)
	v1.GET("/venues", d.Seating.ListVenues, read)
	v1.GET("/venues/:id", d.Seating.GetVenue, read)
	v1.GET("/exams/:id/roster", d.Seating.Roster, read)
	v1.GET("/exams/:id/seating", d.Seating.ExamAllocations, read)
	v1.GET("/exams/:id/seating/export", d.Seating.Export, read)
	v1.GET("/exam-seating", d.Seating.ListAllocations, read)
	v1.GET("/exam-seating/template", d.Seating.Template, read)

	// Allocation runs replace an exam's seating and are rate limited.
	write := []echo.MiddlewareFunc{middleware.RequireRole(middleware.RoleAdmin, middleware.RoleCOE)}
	if d.WriteLimiter != nil {
		write = append(write, d.WriteLimiter)
	}
	v1.POST("/exam-seating/auto-allocate", d.Seating.AutoAllocate, write...)
	v1.POST("/exam-seating/manual-allocate", d.Seating.ManualAllocate,
		append(write, echomw.BodyLimit(ManualUploadLimit))...)
}
