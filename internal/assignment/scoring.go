package assignment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"testportal/internal/testpool"
)

// ErrDefinitionInvalid marks evaluator input that must not be scored.
// A silent zero would be indistinguishable from a legitimately failed
// student, so these fail fast instead.
var ErrDefinitionInvalid = errors.New("test definition not scorable")

const (
	VerdictCorrect   = "correct"
	VerdictIncorrect = "incorrect"
	VerdictBlank     = "blank"
)

type QuestionVerdict struct {
	Number    int    `json:"number"`
	Verdict   string `json:"verdict"`
	Submitted string `json:"submitted,omitempty"`
	Expected  string `json:"expected"`
}

// ScoreResult is a value object: recomputing it from the same
// definition and answers always yields an identical result.
type ScoreResult struct {
	Correct    int               `json:"correct"`
	Incorrect  int               `json:"incorrect"`
	Blank      int               `json:"blank"`
	Total      int               `json:"total"`
	Percentage float64           `json:"percentage"`
	Detail     []QuestionVerdict `json:"detail"`
}

// Score evaluates a student's sparse answers against a definition's
// answer key. Pure function; safe to re-run after key corrections.
func Score(def *testpool.Definition, answers map[int]string) (*ScoreResult, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrDefinitionInvalid)
	}
	if !def.Active {
		return nil, fmt.Errorf("%w: definition %q is inactive", ErrDefinitionInvalid, def.Code)
	}
	if def.QuestionCount <= 0 {
		return nil, fmt.Errorf("%w: definition %q has no questions", ErrDefinitionInvalid, def.Code)
	}

	result := &ScoreResult{
		Total:  def.QuestionCount,
		Detail: make([]QuestionVerdict, 0, def.QuestionCount),
	}

	for number := 1; number <= def.QuestionCount; number++ {
		expected := def.CorrectOption(number)
		submitted := strings.TrimSpace(answers[number])

		verdict := QuestionVerdict{Number: number, Expected: expected}
		switch {
		case submitted == "":
			verdict.Verdict = VerdictBlank
			result.Blank++
		case strings.EqualFold(submitted, expected):
			verdict.Verdict = VerdictCorrect
			verdict.Submitted = strings.ToUpper(submitted)
			result.Correct++
		default:
			verdict.Verdict = VerdictIncorrect
			verdict.Submitted = strings.ToUpper(submitted)
			result.Incorrect++
		}
		result.Detail = append(result.Detail, verdict)
	}

	result.Percentage = roundPercentage(result.Correct, result.Total)
	return result, nil
}

// roundPercentage rounds correct/total*100 to two decimal places.
func roundPercentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}
