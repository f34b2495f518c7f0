package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var exportHeader = []string{"Seat", "Roll Number", "Name", "Department", "Section"}

// ExportExam renders the allocations of an exam as an XLSX workbook with
// one sheet per venue, in the listing order.  It returns the workbook and
// a suggested file name.
func (s *SeatingService) ExportExam(ctx context.Context, examID uint64) (*bytes.Buffer, string, error) {
	rows, err := s.AllocationsForExam(ctx, examID)
	if err != nil {
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", ErrNoAllocations
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	sheets := map[uint64]string{}
	next := map[string]int{}
	used := map[string]bool{}
	for _, r := range rows {
		sheet, ok := sheets[r.VenueID]
		if !ok {
			sheet = sheetName(r.VenueName, r.VenueID, used)
			sheets[r.VenueID] = sheet
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, "", fmt.Errorf("new sheet: %w", err)
			}
			for i, h := range exportHeader {
				cell, _ := excelize.CoordinatesToCellName(i+1, 1)
				_ = f.SetCellValue(sheet, cell, h)
			}
			_ = f.SetCellStyle(sheet, "A1", "E1", headerStyle)
			_ = f.SetColWidth(sheet, "A", "A", 10)
			_ = f.SetColWidth(sheet, "B", "E", 18)
			next[sheet] = 2
		}
		line := next[sheet]
		values := []interface{}{r.SeatNumber, r.RollNumber, r.StudentName, r.Department, r.Section}
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, "", fmt.Errorf("write row: %w", err)
		}
		next[sheet] = line + 1
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.log.Error("write xlsx failed", zap.Uint64("exam_id", examID), zap.Error(err))
		return nil, "", err
	}
	return buf, fmt.Sprintf("seating_exam_%d.xlsx", examID), nil
}

// sheetName turns a venue name into a unique, valid worksheet name.
// Excel forbids []:*?/\ and caps names at 31 characters.
func sheetName(name string, venueID uint64, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" || strings.EqualFold(clean, "Sheet1") {
		clean = fmt.Sprintf("Venue %d", venueID)
	}
	if r := []rune(clean); len(r) > 31 {
		clean = string(r[:31])
	}
	if used[strings.ToLower(clean)] {
		suffix := fmt.Sprintf(" #%d", venueID)
		r := []rune(clean)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		clean = string(r) + suffix
	}
	used[strings.ToLower(clean)] = true
	return clean
}
