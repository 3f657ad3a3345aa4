package assignment

import (
	"errors"
	"reflect"
	"testing"

	"testportal/internal/testpool"
)

func fiveQuestionDef() *testpool.Definition {
	return &testpool.Definition{
		ID:            1,
		Code:          "MAT2024-001X",
		Name:          "MAT2024-001X",
		QuestionCount: 5,
		AnswerKey: []testpool.AnswerKeyEntry{
			{Number: 1, Option: "A"},
			{Number: 2, Option: "B"},
			{Number: 3, Option: "C"},
			{Number: 4, Option: "D"},
			{Number: 5, Option: "E"},
		},
		Active: true,
	}
}

func TestScoreMixedAnswers(t *testing.T) {
	res, err := Score(fiveQuestionDef(), map[int]string{1: "a", 2: "X", 4: "D"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Correct != 2 || res.Incorrect != 1 || res.Blank != 2 {
		t.Fatalf("unexpected tallies: correct=%d incorrect=%d blank=%d", res.Correct, res.Incorrect, res.Blank)
	}
	if res.Percentage != 40.00 {
		t.Fatalf("expected 40.00, got %v", res.Percentage)
	}
	if len(res.Detail) != 5 {
		t.Fatalf("expected 5 verdicts, got %d", len(res.Detail))
	}
	if res.Detail[0].Verdict != VerdictCorrect || res.Detail[0].Submitted != "A" {
		t.Fatalf("lowercase match should count correct and be reported upper-cased: %+v", res.Detail[0])
	}
	if res.Detail[1].Verdict != VerdictIncorrect {
		t.Fatalf("expected q2 incorrect, got %+v", res.Detail[1])
	}
	if res.Detail[2].Verdict != VerdictBlank || res.Detail[2].Submitted != "" {
		t.Fatalf("expected q3 blank, got %+v", res.Detail[2])
	}
}

func TestScoreNoAnswers(t *testing.T) {
	res, err := Score(fiveQuestionDef(), map[int]string{})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Correct != 0 || res.Blank != 5 || res.Percentage != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestScoreFullCorrect(t *testing.T) {
	res, err := Score(fiveQuestionDef(), map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Correct != 5 || res.Percentage != 100.00 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestScoreTalliesSumToTotal(t *testing.T) {
	answers := []map[int]string{
		{},
		{1: "A"},
		{1: "E", 2: "B", 5: "b"},
		{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"},
	}
	for _, a := range answers {
		res, err := Score(fiveQuestionDef(), a)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		if res.Correct+res.Incorrect+res.Blank != res.Total {
			t.Fatalf("tallies do not sum to total: %+v", res)
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	answers := map[int]string{1: "a", 3: "c", 4: "B"}
	first, err := Score(fiveQuestionDef(), answers)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	second, err := Score(fiveQuestionDef(), answers)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-running with identical inputs should be identical:\nfirst=%+v\nsecond=%+v", first, second)
	}
}

func TestScoreWhitespaceAnswerIsBlank(t *testing.T) {
	res, err := Score(fiveQuestionDef(), map[int]string{1: "   "})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Blank != 5 {
		t.Fatalf("whitespace-only answer should count blank, got %+v", res)
	}
}

func TestScoreRoundsToTwoDecimals(t *testing.T) {
	def := &testpool.Definition{
		Code:          "FIZ2024-002Y",
		QuestionCount: 3,
		AnswerKey: []testpool.AnswerKeyEntry{
			{Number: 1, Option: "A"},
			{Number: 2, Option: "B"},
			{Number: 3, Option: "C"},
		},
		Active: true,
	}

	res, err := Score(def, map[int]string{1: "A"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Percentage != 33.33 {
		t.Fatalf("expected 33.33, got %v", res.Percentage)
	}

	res, err = Score(def, map[int]string{1: "A", 2: "B"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Percentage != 66.67 {
		t.Fatalf("expected 66.67, got %v", res.Percentage)
	}
}

func TestScoreFailsFastOnBadDefinitions(t *testing.T) {
	inactive := fiveQuestionDef()
	inactive.Active = false

	empty := fiveQuestionDef()
	empty.QuestionCount = 0

	tests := []struct {
		name string
		def  *testpool.Definition
	}{
		{name: "nil definition", def: nil},
		{name: "inactive definition", def: inactive},
		{name: "zero question count", def: empty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Score(tc.def, nil); !errors.Is(err, ErrDefinitionInvalid) {
				t.Fatalf("expected ErrDefinitionInvalid, got %v", err)
			}
		})
	}
}
