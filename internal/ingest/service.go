package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"testportal/internal/testpool"
)

// Rejection reasons reported per row. Row-level failures are expected
// operator-facing outcomes, not errors.
const (
	ReasonInvalidRow    = "invalid row structure"
	ReasonDuplicateCode = "duplicate code in batch"
	ReasonCodeExists    = "code already exists"
)

type TestStore interface {
	FindActiveByCode(ctx context.Context, code string) (*testpool.Definition, error)
	Insert(ctx context.Context, def *testpool.Definition) (*testpool.Definition, error)
}

type RowRejection struct {
	RowIndex int    `json:"row_index"`
	Code     string `json:"code,omitempty"`
	Reason   string `json:"reason"`
}

// Report is the complete partition of one ingestion batch. Every row of
// the document is accounted for: accepted, rejected with a reason, or
// silently skipped as a header/decorative row.
type Report struct {
	Accepted       []testpool.Definition `json:"accepted"`
	Rejected       []RowRejection        `json:"rejected"`
	TotalQuestions int                   `json:"total_questions"`
	TotalLinks     int                   `json:"total_links"`

	// acceptedRows holds the document row index of each accepted
	// definition, parallel to Accepted.
	acceptedRows []int
}

type Service struct {
	store TestStore
}

func NewService(store TestStore) *Service {
	return &Service{store: store}
}

// Preview parses and validates a document without inserting anything.
func (s *Service) Preview(ctx context.Context, r io.Reader) (*Report, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, doc)
}

// Import runs the same scan as Preview and then inserts the accepted
// definitions. An insert losing a uniqueness race is downgraded to the
// same per-row rejection as the pre-check; rows already inserted stay.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Report, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	report, err := s.scan(ctx, doc)
	if err != nil {
		return nil, err
	}

	inserted := make([]testpool.Definition, 0, len(report.Accepted))
	insertedRows := make([]int, 0, len(report.Accepted))
	for i := range report.Accepted {
		def := report.Accepted[i]
		stored, err := s.store.Insert(ctx, &def)
		if err != nil {
			if errors.Is(err, testpool.ErrCodeExists) {
				report.Rejected = append(report.Rejected, RowRejection{
					RowIndex: report.acceptedRows[i],
					Code:     def.Code,
					Reason:   ReasonCodeExists,
				})
				continue
			}
			return nil, fmt.Errorf("insert accepted test %q: %w", def.Code, err)
		}
		inserted = append(inserted, *stored)
		insertedRows = append(insertedRows, report.acceptedRows[i])
	}
	report.Accepted = inserted
	report.acceptedRows = insertedRows
	report.recount()
	return report, nil
}

// scan walks every table row in document order, classifying and
// extracting. Row indices are zero-based and global across tables so an
// operator can locate a rejection in the source file.
func (s *Service) scan(ctx context.Context, doc *Document) (*Report, error) {
	report := &Report{
		Accepted: make([]testpool.Definition, 0),
		Rejected: make([]RowRejection, 0),
	}
	seen := make(map[string]bool)
	rowIndex := -1

	for _, table := range doc.Tables {
		for _, row := range table.Rows {
			rowIndex++

			switch Classify(row.Cells) {
			case Header, Reject:
				continue
			case Candidate:
			}

			def := Extract(row.Cells)
			if def == nil {
				report.Rejected = append(report.Rejected, RowRejection{
					RowIndex: rowIndex,
					Reason:   ReasonInvalidRow,
				})
				continue
			}

			canonical := testpool.CanonicalCode(def.Code)
			if seen[canonical] {
				report.Rejected = append(report.Rejected, RowRejection{
					RowIndex: rowIndex,
					Code:     def.Code,
					Reason:   ReasonDuplicateCode,
				})
				continue
			}

			if _, err := s.store.FindActiveByCode(ctx, def.Code); err == nil {
				seen[canonical] = true
				report.Rejected = append(report.Rejected, RowRejection{
					RowIndex: rowIndex,
					Code:     def.Code,
					Reason:   ReasonCodeExists,
				})
				continue
			} else if !errors.Is(err, testpool.ErrTestNotFound) {
				return nil, fmt.Errorf("check existing test code %q: %w", def.Code, err)
			}

			seen[canonical] = true
			report.Accepted = append(report.Accepted, *def)
			report.acceptedRows = append(report.acceptedRows, rowIndex)
		}
	}

	report.recount()
	return report, nil
}

func (r *Report) recount() {
	r.TotalQuestions = 0
	r.TotalLinks = 0
	for _, def := range r.Accepted {
		r.TotalQuestions += def.QuestionCount
		r.TotalLinks += len(def.ReferenceLinks)
	}
}
