package testpool

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxQuestions is the hard domain bound on questions per test. The
// persisted layout reserves exactly this many answer/link slots, so
// widening it requires a schema migration.
const MaxQuestions = 25

const MinQuestions = 1

var (
	ErrTestNotFound = errors.New("test not found")
	ErrCodeExists   = errors.New("test code already exists")
	ErrInvalidTest  = errors.New("invalid test definition")
)

type AnswerKeyEntry struct {
	Number int    `json:"number"`
	Option string `json:"option"`
}

// Definition is a test recovered from ingestion or manual authoring.
// Code is unique (case-insensitive) across active definitions; the
// display form is preserved as authored.
type Definition struct {
	ID             int64            `json:"id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	QuestionCount  int              `json:"question_count"`
	AnswerKey      []AnswerKeyEntry `json:"answer_key"`
	ReferenceLinks map[int]string   `json:"reference_links,omitempty"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at,omitempty"`
}

// CanonicalCode collapses internal whitespace, trims, and upper-cases a
// test code for comparison. Display forms keep their original casing.
func CanonicalCode(code string) string {
	return strings.ToUpper(NormalizeCell(code))
}

// NormalizeCell collapses consecutive whitespace to single spaces and
// trims the edges.
func NormalizeCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func validOption(opt string) bool {
	switch opt {
	case "A", "B", "C", "D", "E":
		return true
	}
	return false
}

func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidTest)
	}
	if CanonicalCode(d.Code) == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidTest)
	}
	if d.QuestionCount < MinQuestions || d.QuestionCount > MaxQuestions {
		return fmt.Errorf("%w: question count %d out of range 1..%d", ErrInvalidTest, d.QuestionCount, MaxQuestions)
	}
	if len(d.AnswerKey) != d.QuestionCount {
		return fmt.Errorf("%w: answer key has %d entries, expected %d", ErrInvalidTest, len(d.AnswerKey), d.QuestionCount)
	}
	seen := make(map[int]bool, len(d.AnswerKey))
	for _, e := range d.AnswerKey {
		if e.Number < 1 || e.Number > d.QuestionCount {
			return fmt.Errorf("%w: question number %d out of range 1..%d", ErrInvalidTest, e.Number, d.QuestionCount)
		}
		if seen[e.Number] {
			return fmt.Errorf("%w: duplicate question number %d", ErrInvalidTest, e.Number)
		}
		seen[e.Number] = true
		if !validOption(e.Option) {
			return fmt.Errorf("%w: question %d has invalid option %q", ErrInvalidTest, e.Number, e.Option)
		}
	}
	for n := range d.ReferenceLinks {
		if n < 1 || n > d.QuestionCount {
			return fmt.Errorf("%w: reference link for question %d outside 1..%d", ErrInvalidTest, n, d.QuestionCount)
		}
	}
	return nil
}

// CorrectOption returns the keyed option for a question number, or ""
// when the key has no entry for it.
func (d *Definition) CorrectOption(number int) string {
	for _, e := range d.AnswerKey {
		if e.Number == number {
			return e.Option
		}
	}
	return ""
}
