package student

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source spreadsheets come from several school systems and label the
// same column differently. Each field resolves against an explicit
// prioritized alias list; the first alias whose column holds a value
// for the row wins.
var (
	numberAliases    = []string{"numara", "number", "student_number", "no"}
	firstNameAliases = []string{"ad", "isim", "first_name", "name"}
	lastNameAliases  = []string{"soyad", "soyisim", "last_name", "surname"}
	emailAliases     = []string{"email", "eposta", "e-posta", "mail"}
	passwordAliases  = []string{"sifre", "password", "parola"}
)

type ImportRowError struct {
	Row    int    `json:"row"`
	Number string `json:"number,omitempty"`
	Error  string `json:"error"`
}

type ImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	Errors      []ImportRowError `json:"errors"`
}

// ImportExcel bulk-creates students from the first sheet of an Excel
// workbook. Row failures are reported per row and never abort the
// batch.
func (s *Service) ImportExcel(ctx context.Context, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if !anyAliasPresent(header, numberAliases) {
		return nil, errors.New("missing student number column")
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		report.TotalRows++

		number := pickField(header, row, numberAliases)
		firstName := pickField(header, row, firstNameAliases)
		lastName := pickField(header, row, lastNameAliases)
		email := strings.ToLower(pickField(header, row, emailAliases))
		password := pickField(header, row, passwordAliases)

		if number == "" || firstName == "" || lastName == "" {
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{
				Row:    rowNo,
				Number: number,
				Error:  "number, first name and last name are required",
			})
			continue
		}
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				report.FailedRows++
				report.Errors = append(report.Errors, ImportRowError{
					Row:    rowNo,
					Number: number,
					Error:  "invalid email address",
				})
				continue
			}
		}

		if _, err := s.Create(ctx, CreateStudentInput{
			Number:    number,
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Password:  password,
		}); err != nil {
			report.FailedRows++
			msg := err.Error()
			if errors.Is(err, ErrNumberExists) {
				msg = "student number already exists"
			}
			report.Errors = append(report.Errors, ImportRowError{
				Row:    rowNo,
				Number: number,
				Error:  msg,
			})
			continue
		}

		report.SuccessRows++
	}

	return report, nil
}

func (s *Service) ExportExcel(ctx context.Context, q string) ([]byte, error) {
	items, err := s.List(ctx, q, 1000, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"numara", "ad", "soyad", "email", "created_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		row := i + 2
		values := []any{
			it.Number,
			it.FirstName,
			it.LastName,
			it.Email,
			it.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// pickField returns the row's value for the first alias that resolves
// to a populated cell.
func pickField(header map[string]int, row []string, aliases []string) string {
	for _, alias := range aliases {
		idx, ok := header[alias]
		if !ok || idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			return v
		}
	}
	return ""
}

func anyAliasPresent(header map[string]int, aliases []string) bool {
	for _, alias := range aliases {
		if _, ok := header[alias]; ok {
			return true
		}
	}
	return false
}
