package ingest

import (
	"strings"

	"testportal/internal/testpool"
)

// A row needs at least this many graded questions to count as a test.
// Decorative and summary rows frequently contain 1-4 stray letter-like
// cells; the threshold keeps them out of the pool.
const minExtractedQuestions = 5

// Extract builds a test definition from a candidate row, or returns nil
// when the row turns out not to hold one. Single malformed cells never
// abort the row; they are skipped without consuming a question number.
func Extract(cells []Cell) *testpool.Definition {
	if len(cells) < 3 {
		return nil
	}

	code := testpool.NormalizeCell(cells[0].Text)
	if code == "" {
		return nil
	}

	answerKey := make([]testpool.AnswerKeyEntry, 0, len(cells)-2)
	links := make(map[int]string)
	number := 1

	for _, cell := range cells[2:] {
		text := strings.TrimSpace(cell.Text)
		if text == "" {
			continue
		}
		option := leadingOption(text)
		if option == "" {
			continue
		}
		answerKey = append(answerKey, testpool.AnswerKeyEntry{Number: number, Option: option})
		if cell.Href != "" {
			links[number] = cell.Href
		}
		number++
	}

	if len(answerKey) < minExtractedQuestions {
		return nil
	}
	if len(answerKey) > testpool.MaxQuestions {
		answerKey = answerKey[:testpool.MaxQuestions]
		for n := range links {
			if n > testpool.MaxQuestions {
				delete(links, n)
			}
		}
	}

	def := &testpool.Definition{
		Code:           code,
		Name:           code,
		QuestionCount:  len(answerKey),
		AnswerKey:      answerKey,
		ReferenceLinks: links,
		Active:         true,
	}
	if err := def.Validate(); err != nil {
		return nil
	}
	return def
}

// leadingOption returns the upper-cased answer letter when the text
// begins with one of A-E in either case, "" otherwise.
func leadingOption(text string) string {
	switch text[0] {
	case 'A', 'B', 'C', 'D', 'E':
		return string(text[0])
	case 'a', 'b', 'c', 'd', 'e':
		return strings.ToUpper(string(text[0]))
	}
	return ""
}
