// Package service orchestrates seating runs: it resolves the roster and
// venues, runs the allocation engine, replaces the stored allocations under
// the exam lock, and keeps the query cache and downstream consumers in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-seating/internal/importer"
	"github.com/iliyamo/exam-seating/internal/lock"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/queue"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/seating"
)

var (
	// ErrInvalidFile is returned when an upload is not readable CSV.
	ErrInvalidFile = errors.New("invalid csv file")
	// ErrNoAllocations is returned when an exam has nothing to export.
	ErrNoAllocations = errors.New("exam has no seat allocations")
)

// ReasonVenueUnavailable tags a venue that was selected but skipped.
const ReasonVenueUnavailable = "VenueUnavailable"

// ExamStore reads exams and their enrollment.
type ExamStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Exam, error)
	Roster(ctx context.Context, examID uint64) ([]model.Student, error)
}

// VenueStore reads venues.
type VenueStore interface {
	List(ctx context.Context, f repository.VenueFilter) ([]model.Venue, error)
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Venue, error)
}

// StudentStore resolves roll numbers.
type StudentStore interface {
	FindByRollNumbers(ctx context.Context, rolls []string) (map[string]model.Student, error)
}

// AllocationStore persists and lists seat allocations.
type AllocationStore interface {
	Replace(ctx context.Context, examID uint64, rows []model.SeatAllocation) error
	ListByExam(ctx context.Context, examID uint64) ([]model.AllocationView, error)
	ListAll(ctx context.Context) ([]model.AllocationView, error)
}

// AllocationCache caches allocation listings.  Lookups return the cache
// generation they ran under; a listing loaded after a miss is stored under
// that generation, which Invalidate retires.
type AllocationCache interface {
	Exam(ctx context.Context, examID uint64) ([]model.AllocationView, uint64, bool)
	SetExam(ctx context.Context, examID, gen uint64, rows []model.AllocationView)
	All(ctx context.Context) ([]model.AllocationView, uint64, bool)
	SetAll(ctx context.Context, gen uint64, rows []model.AllocationView)
	Invalidate(ctx context.Context, examID uint64) error
}

// EventPublisher announces finished seating runs.
type EventPublisher interface {
	PublishSeatingAllocated(ctx context.Context, ev queue.SeatingAllocatedEvent) error
}

// Deps bundles the collaborators of SeatingService.  Cache, Events, Locker
// and Logger are optional.
type Deps struct {
	Exams       ExamStore
	Venues      VenueStore
	Students    StudentStore
	Allocations AllocationStore
	Cache       AllocationCache
	Events      EventPublisher
	Locker      lock.Locker
	Logger      *zap.Logger
}

// SeatingService implements the seating use cases.
type SeatingService struct {
	exams       ExamStore
	venues      VenueStore
	students    StudentStore
	allocations AllocationStore
	cache       AllocationCache
	events      EventPublisher
	locker      lock.Locker
	log         *zap.Logger
	now         func() time.Time
}

// NewSeatingService wires a SeatingService, filling optional deps with
// no-op implementations.
func NewSeatingService(d Deps) *SeatingService {
	s := &SeatingService{
		exams:       d.Exams,
		venues:      d.Venues,
		students:    d.Students,
		allocations: d.Allocations,
		cache:       d.Cache,
		events:      d.Events,
		locker:      d.Locker,
		log:         d.Logger,
		now:         time.Now,
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// ListVenues returns venues matching the filter, ordered by name then id.
func (s *SeatingService) ListVenues(ctx context.Context, f repository.VenueFilter) ([]model.Venue, error) {
	vs, err := s.venues.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []model.Venue{}
	}
	return vs, nil
}

// GetVenue returns one venue or repository.ErrVenueNotFound.
func (s *SeatingService) GetVenue(ctx context.Context, id uint64) (*model.Venue, error) {
	return s.venues.GetByID(ctx, id)
}

// ResolveRoster returns the students enrolled for an exam ordered by roll
// number.  An empty roster is seating.ErrNoStudentsFound.
func (s *SeatingService) ResolveRoster(ctx context.Context, examID uint64) ([]model.Student, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	roster, err := s.exams.Roster(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, seating.ErrNoStudentsFound
	}
	return roster, nil
}

// AutoAllocateInput selects the exam and venues of an automatic run.
// Without VenueIDs every available venue suited to the exam type is used.
// Venues are walked by name unless KeepOrder is set, in which case the
// order of VenueIDs is kept.
type AutoAllocateInput struct {
	ExamID    uint64
	VenueIDs  []uint64
	KeepOrder bool
	Actor     string
}

// SkippedVenue is a selected venue left out of a run.
type SkippedVenue struct {
	VenueID uint64 `json:"venue_id"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

// AutoResult summarises an automatic run.
type AutoResult struct {
	RunID             string              `json:"run_id"`
	ExamID            uint64              `json:"exam_id"`
	Total             int                 `json:"total"`
	Placed            int                 `json:"placed"`
	Overflow          int                 `json:"overflow"`
	Capacity          int                 `json:"capacity"`
	AdjacentConflicts int                 `json:"adjacent_conflicts"`
	Venues            []seating.VenueFill `json:"venues"`
	SkippedVenues     []SkippedVenue      `json:"skipped_venues"`
}

// AutoAllocate seats the exam roster across venues and replaces any
// previous allocation of the exam.
func (s *SeatingService) AutoAllocate(ctx context.Context, in AutoAllocateInput) (*AutoResult, error) {
	unlock, err := s.locker.Lock(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exam, err := s.exams.GetByID(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}
	roster, err := s.exams.Roster(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, seating.ErrNoStudentsFound
	}

	venues, skipped, err := s.selectVenues(ctx, exam, in.VenueIDs)
	if err != nil {
		return nil, err
	}
	if !in.KeepOrder || len(in.VenueIDs) == 0 {
		venues = seating.OrderVenues(venues)
	}

	plan, err := seating.Auto(exam.ID, roster, venues)
	if err != nil {
		return nil, err
	}
	runID, err := s.commit(ctx, plan, "auto", in.Actor, 0)
	if err != nil {
		return nil, err
	}

	return &AutoResult{
		RunID:             runID,
		ExamID:            exam.ID,
		Total:             plan.Total(),
		Placed:            plan.Placed,
		Overflow:          plan.Overflow,
		Capacity:          plan.Capacity,
		AdjacentConflicts: plan.AdjacentConflicts,
		Venues:            plan.Venues,
		SkippedVenues:     skipped,
	}, nil
}

// selectVenues resolves the venues of an automatic run.  Explicit ids are
// deduplicated in order; unknown ids fail the run and unavailable venues
// are skipped.
func (s *SeatingService) selectVenues(ctx context.Context, exam *model.Exam, ids []uint64) ([]model.Venue, []SkippedVenue, error) {
	skipped := []SkippedVenue{}
	if len(ids) == 0 {
		vs, err := s.venues.List(ctx, repository.VenueFilter{ExamType: exam.ExamType, OnlyAvailable: true})
		if err != nil {
			return nil, nil, fmt.Errorf("list venues: %w", err)
		}
		if len(vs) == 0 {
			return nil, nil, seating.ErrNoVenuesSelected
		}
		return vs, skipped, nil
	}

	ordered := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	found, err := s.venues.GetByIDs(ctx, ordered)
	if err != nil {
		return nil, nil, fmt.Errorf("load venues: %w", err)
	}
	byID := make(map[uint64]model.Venue, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}

	var venues []model.Venue
	for _, id := range ordered {
		v, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: id %d", repository.ErrVenueNotFound, id)
		}
		if !v.IsAvailable {
			skipped = append(skipped, SkippedVenue{VenueID: v.ID, Name: v.Name, Reason: ReasonVenueUnavailable})
			continue
		}
		venues = append(venues, v)
	}
	if len(venues) == 0 {
		return nil, nil, seating.ErrAllVenuesUnavailable
	}
	return venues, skipped, nil
}

// ManualAllocateInput carries a CSV upload for one exam.
type ManualAllocateInput struct {
	ExamID uint64
	File   io.Reader
	Actor  string
}

// RowErrorView is the wire form of a rejected upload row.
type RowErrorView struct {
	Line       int    `json:"line"`
	RollNumber string `json:"roll_number"`
	Message    string `json:"message"`
}

// ManualResult summarises a manual run.  It is also returned alongside
// seating.ErrEmptyValidBatch so callers can show the row log.
type ManualResult struct {
	RunID    string              `json:"run_id,omitempty"`
	ExamID   uint64              `json:"exam_id"`
	Saved    int                 `json:"saved"`
	Overflow int                 `json:"overflow"`
	Venues   []seating.VenueFill `json:"venues"`
	Errors   []RowErrorView      `json:"errors"`
	Log      []importer.LogEntry `json:"log"`
}

// ManualAllocate replaces the allocations of an exam with the valid rows
// of a CSV upload.  Invalid rows are reported and skipped; an upload with
// no valid row changes nothing.
func (s *SeatingService) ManualAllocate(ctx context.Context, in ManualAllocateInput) (*ManualResult, error) {
	unlock, err := s.locker.Lock(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exam, err := s.exams.GetByID(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}
	rows, err := importer.Parse(in.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	students, err := s.students.FindByRollNumbers(ctx, importer.RollNumbers(rows))
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	available, err := s.venues.List(ctx, repository.VenueFilter{OnlyAvailable: true})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	dir := importer.Directory{Students: students, Venues: make(map[string]model.Venue, len(available))}
	for _, v := range available {
		dir.Venues[v.Name] = v
	}

	batch := importer.Validate(rows, dir)
	res := &ManualResult{
		ExamID: exam.ID,
		Venues: []seating.VenueFill{},
		Errors: make([]RowErrorView, 0, len(batch.Errors)),
		Log:    batch.Log,
	}
	if res.Log == nil {
		res.Log = []importer.LogEntry{}
	}
	for _, re := range batch.Errors {
		res.Errors = append(res.Errors, RowErrorView{Line: re.Line, RollNumber: re.RollNumber, Message: re.Err.Error()})
	}

	plan, err := seating.Manual(exam.ID, batch.Placements)
	if err != nil {
		return res, err
	}
	runID, err := s.commit(ctx, plan, "manual", in.Actor, len(batch.Errors))
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	res.Saved = plan.Total()
	res.Overflow = plan.Overflow
	res.Venues = plan.Venues
	return res, nil
}

// commit replaces the stored allocations with plan, then retires cached
// listings and announces the run.  Cache and broker failures are logged
// only; the replace has already succeeded.
func (s *SeatingService) commit(ctx context.Context, plan seating.Plan, mode, actor string, rowErrors int) (string, error) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("run_id", runID), zap.Uint64("exam_id", plan.ExamID), zap.String("mode", mode))

	if err := s.allocations.Replace(ctx, plan.ExamID, plan.Rows); err != nil {
		log.Error("replace allocations failed", zap.Error(err))
		return "", err
	}
	if err := s.cache.Invalidate(ctx, plan.ExamID); err != nil {
		log.Warn("invalidate allocation cache failed", zap.Error(err))
	}

	ev := queue.SeatingAllocatedEvent{
		RunID:             runID,
		ExamID:            plan.ExamID,
		Mode:              mode,
		Placed:            plan.Placed,
		Overflow:          plan.Overflow,
		Capacity:          plan.Capacity,
		AdjacentConflicts: plan.AdjacentConflicts,
		RowErrors:         rowErrors,
		Venues:            make([]queue.VenueFillEvent, 0, len(plan.Venues)),
		AllocatedBy:       actor,
		AllocatedAt:       s.now().UTC().Format(time.RFC3339),
	}
	for _, v := range plan.Venues {
		ev.Venues = append(ev.Venues, queue.VenueFillEvent{
			VenueID: v.VenueID, Name: v.Name, Capacity: v.Capacity, Used: v.Used, Overflow: v.Overflow,
		})
	}
	if err := s.events.PublishSeatingAllocated(ctx, ev); err != nil {
		log.Warn("publish seating event failed", zap.Error(err))
	}

	log.Info("seating allocated",
		zap.Int("placed", plan.Placed),
		zap.Int("overflow", plan.Overflow),
		zap.Int("capacity", plan.Capacity),
		zap.Int("adjacent_conflicts", plan.AdjacentConflicts),
		zap.Int("row_errors", rowErrors),
	)
	return runID, nil
}

// AllocationsForExam lists the allocations of one exam.
func (s *SeatingService) AllocationsForExam(ctx context.Context, examID uint64) ([]model.AllocationView, error) {
	rows, gen, ok := s.cache.Exam(ctx, examID)
	if ok {
		return rows, nil
	}
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	rows, err := s.allocations.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	s.cache.SetExam(ctx, examID, gen, rows)
	return rows, nil
}

// AllAllocations lists the allocations of every exam.
func (s *SeatingService) AllAllocations(ctx context.Context) ([]model.AllocationView, error) {
	rows, gen, ok := s.cache.All(ctx)
	if ok {
		return rows, nil
	}
	rows, err := s.allocations.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetAll(ctx, gen, rows)
	return rows, nil
}

type nopCache struct{}

func (nopCache) Exam(context.Context, uint64) ([]model.AllocationView, uint64, bool) {
	return nil, 0, false
}
func (nopCache) SetExam(context.Context, uint64, uint64, []model.AllocationView) {}
func (nopCache) All(context.Context) ([]model.AllocationView, uint64, bool) { return nil, 0, false }
func (nopCache) SetAll(context.Context, uint64, []model.AllocationView) {}
func (nopCache) Invalidate(context.Context, uint64) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishSeatingAllocated(context.Context, queue.SeatingAllocatedEvent) error {
	return nil
}
