package repository

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-seating/internal/model"
)

func newMock(t *testing.T) (*AllocationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAllocationRepo(db), mock
}

var (
	lockExamSQL   = regexp.QuoteMeta(`SELECT id FROM exams WHERE id = ? FOR UPDATE`)
	deleteSQL     = regexp.QuoteMeta(`DELETE FROM seat_allocations WHERE exam_id = ?`)
	insertSQL     = regexp.QuoteMeta(`INSERT INTO seat_allocations (exam_id, student_id, venue_id, seat_number) VALUES`)
	allocationSQL = regexp.QuoteMeta(`FROM seat_allocations sa`)
)

func TestAllocationRepo_Replace(t *testing.T) {
	repo, mock := newMock(t)
	rows := []model.SeatAllocation{
		{StudentID: 1, VenueID: 10, SeatNumber: "1"},
		{StudentID: 2, VenueID: 10, SeatNumber: "2"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(lockExamSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(deleteSQL).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(insertSQL).
		WithArgs(7, 1, 10, "1", 7, 2, 10, "2").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), 7, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_Replace_RollsBackOnConflict(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockExamSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(deleteSQL).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(insertSQL).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-10-1'"})
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), 7, []model.SeatAllocation{
		{StudentID: 1, VenueID: 10, SeatNumber: "1"},
		{StudentID: 2, VenueID: 10, SeatNumber: "1"},
	})

	require.ErrorIs(t, err, ErrSeatConflict)
	require.NoError(t, mock.ExpectationsWereMet(), "the delete must be rolled back, never committed")
}

func TestAllocationRepo_Replace_UnknownExam(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockExamSQL).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), 99, nil)

	require.ErrorIs(t, err, ErrExamNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_Replace_DriverErrorRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockExamSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(deleteSQL).WithArgs(7).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), 7, []model.SeatAllocation{{StudentID: 1, VenueID: 1, SeatNumber: "1"}})

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSeatConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_Replace_ChunksLargeInserts(t *testing.T) {
	repo, mock := newMock(t)
	rows := make([]model.SeatAllocation, insertChunk+3)
	for i := range rows {
		rows[i] = model.SeatAllocation{StudentID: uint64(i + 1), VenueID: 1, SeatNumber: strconv.Itoa(i + 1)}
	}

	mock.ExpectBegin()
	mock.ExpectQuery(lockExamSQL).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(deleteSQL).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(1, insertChunk))
	mock.ExpectExec(insertSQL).
		WithArgs(
			3, uint64(insertChunk+1), 1, strconv.Itoa(insertChunk+1),
			3, uint64(insertChunk+2), 1, strconv.Itoa(insertChunk+2),
			3, uint64(insertChunk+3), 1, strconv.Itoa(insertChunk+3),
		).
		WillReturnResult(sqlmock.NewResult(1, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), 3, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_ListByExam(t *testing.T) {
	repo, mock := newMock(t)
	cols := []string{"id", "exam_id", "student_id", "venue_id", "seat_number",
		"roll_number", "full_name", "department", "section", "name", "block"}

	mock.ExpectQuery(allocationSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows(cols).
		AddRow(1, 4, 11, 2, "1", "21CS001", "Asha", "CSE", "A", "Hall A", "Main").
		AddRow(2, 4, 12, 2, "OVF-1", "21EC001", "Ravi", "ECE", "B", "Hall A", "Main"))

	got, err := repo.ListByExam(context.Background(), 4)

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.AllocationView{
		ID: 1, ExamID: 4, StudentID: 11, VenueID: 2, SeatNumber: "1",
		RollNumber: "21CS001", StudentName: "Asha", Department: "CSE", Section: "A",
		VenueName: "Hall A", VenueBlock: "Main",
	}, got[0])
	require.True(t, got[1].IsOverflow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepo_ListAll_Empty(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(allocationSQL).WithArgs().WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.ListAll(context.Background())

	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}
