package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"testportal/internal/testpool"
)

type RowClass int

const (
	// Reject marks rows that are neither headers nor test candidates.
	// Decorative and summary rows are expected in hand-authored
	// documents, so rejection is silent.
	Reject RowClass = iota
	// Header marks column-header rows identified by the literal
	// sentinels the source documents use.
	Header
	// Candidate marks rows that plausibly encode a test definition and
	// are handed to the extractor.
	Candidate
)

// Source documents label their header row with these exact values.
const (
	headerCodeSentinel = "KOD"
	headerNameSentinel = "TEST"
)

const minCodeLength = 6

var testNamePattern = regexp.MustCompile(`Test-\d+`)

// Classify decides what a table row encodes. Pure function over the
// cell contents; fewer than 3 cells can never carry a code, a name, and
// at least one answer.
func Classify(cells []Cell) RowClass {
	if len(cells) < 3 {
		return Reject
	}

	codeCell := cells[0].Text
	nameCell := cells[1].Text

	if codeCell == headerCodeSentinel || nameCell == headerNameSentinel {
		return Header
	}

	code := testpool.NormalizeCell(codeCell)
	if utf8.RuneCountInString(code) < minCodeLength {
		return Reject
	}
	if nameCell == "" {
		return Reject
	}
	if strings.Contains(nameCell, "Test") || strings.Contains(nameCell, "TEST") || testNamePattern.MatchString(nameCell) {
		return Candidate
	}
	return Reject
}
