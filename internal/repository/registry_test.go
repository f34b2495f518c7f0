package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-seating/internal/model"
)

var venueCols = []string{"id", "name", "block", "capacity", "exam_type", "is_available"}

func TestVenueRepo_List_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewVenueRepo(db)

	want := regexp.QuoteMeta(`FROM venues WHERE (exam_type = 'ALL' OR exam_type = ?) AND is_available = 1 AND block = ? ORDER BY name, id`)
	mock.ExpectQuery(want).WithArgs("SEMESTER", "North").WillReturnRows(sqlmock.NewRows(venueCols).
		AddRow(2, "Hall A", "North", 40, "ALL", true).
		AddRow(1, "Hall B", "North", 30, "SEMESTER", true))

	got, err := repo.List(context.Background(), VenueFilter{ExamType: "semester", OnlyAvailable: true, Block: "North"})

	require.NoError(t, err)
	require.Equal(t, []model.Venue{
		{ID: 2, Name: "Hall A", Block: "North", Capacity: 40, ExamType: "ALL", IsAvailable: true},
		{ID: 1, Name: "Hall B", Block: "North", Capacity: 30, ExamType: "SEMESTER", IsAvailable: true},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepo_List_NoFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM venues ORDER BY name, id`)).WillReturnRows(sqlmock.NewRows(venueCols))

	got, err := NewVenueRepo(db).List(context.Background(), VenueFilter{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM venues WHERE id = ?`)).WithArgs(5).WillReturnRows(sqlmock.NewRows(venueCols))

	_, err = NewVenueRepo(db).GetByID(context.Background(), 5)
	require.ErrorIs(t, err, ErrVenueNotFound)
}

func TestVenueRepo_GetByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM venues WHERE id IN (?, ?)`)).WithArgs(3, 4).
		WillReturnRows(sqlmock.NewRows(venueCols).AddRow(3, "Lab 1", "East", 20, "LAB", false))

	got, err := NewVenueRepo(db).GetByIDs(context.Background(), []uint64{3, 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.False(t, got[0].IsAvailable)

	none, err := NewVenueRepo(db).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewExamRepo(db)
	date := time.Date(2026, 11, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM exams WHERE id = ?`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "exam_date", "exam_type"}).
			AddRow(1, "Data Structures", date, "SEMESTER"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM exams WHERE id = ?`)).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM exam_students es`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "roll_number", "department", "section", "full_name"}).
			AddRow(8, "21CS001", "CSE", "A", "Asha").
			AddRow(9, "21EC004", "ECE", "B", "Ravi"))

	exam, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, model.Exam{ID: 1, Title: "Data Structures", ExamDate: date, ExamType: "SEMESTER"}, *exam)

	_, err = repo.GetByID(context.Background(), 2)
	require.ErrorIs(t, err, ErrExamNotFound)

	roster, err := repo.Roster(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []model.Student{
		{ID: 8, RollNumber: "21CS001", Department: "CSE", Section: "A", FullName: "Asha"},
		{ID: 9, RollNumber: "21EC004", Department: "ECE", Section: "B", FullName: "Ravi"},
	}, roster)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepo_FindByRollNumbers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStudentRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM students WHERE roll_number IN (?, ?)`)).WithArgs("21CS001", "XX").
		WillReturnRows(sqlmock.NewRows([]string{"id", "roll_number", "department", "section", "full_name"}).
			AddRow(8, "21CS001", "CSE", "A", "Asha"))

	got, err := repo.FindByRollNumbers(context.Background(), []string{"21CS001", "XX"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(8), got["21CS001"].ID)

	empty, err := repo.FindByRollNumbers(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}
