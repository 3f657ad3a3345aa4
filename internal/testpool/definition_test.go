package testpool

import (
	"errors"
	"testing"
)

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"MAT2024-001", "MAT2024-001"},
		{"  MAT2024  001  ", "MAT2024 001"},
		{"a\t\nb   c", "a b c"},
	}
	for _, tc := range tests {
		if got := NormalizeCell(tc.in); got != tc.want {
			t.Errorf("NormalizeCell(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalCode(t *testing.T) {
	if got := CanonicalCode("  mat2024-001x  "); got != "MAT2024-001X" {
		t.Fatalf("expected MAT2024-001X, got %q", got)
	}
	if got := CanonicalCode("MAT2024-001X"); got != CanonicalCode("mat2024-001x") {
		t.Fatalf("canonical form should be case-insensitive")
	}
}

func TestDefinitionValidate(t *testing.T) {
	valid := func() *Definition {
		return &Definition{
			Code:          "MAT2024-001X",
			Name:          "MAT2024-001X",
			QuestionCount: 3,
			AnswerKey: []AnswerKeyEntry{
				{Number: 1, Option: "A"},
				{Number: 2, Option: "B"},
				{Number: 3, Option: "C"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr bool
	}{
		{name: "valid", mutate: func(d *Definition) {}, wantErr: false},
		{name: "empty code", mutate: func(d *Definition) { d.Code = "   " }, wantErr: true},
		{name: "zero questions", mutate: func(d *Definition) { d.QuestionCount = 0; d.AnswerKey = nil }, wantErr: true},
		{name: "too many questions", mutate: func(d *Definition) { d.QuestionCount = MaxQuestions + 1 }, wantErr: true},
		{name: "key shorter than count", mutate: func(d *Definition) { d.QuestionCount = 4 }, wantErr: true},
		{name: "question number out of range", mutate: func(d *Definition) { d.AnswerKey[2].Number = 4 }, wantErr: true},
		{name: "duplicate question number", mutate: func(d *Definition) { d.AnswerKey[2].Number = 1 }, wantErr: true},
		{name: "invalid option", mutate: func(d *Definition) { d.AnswerKey[0].Option = "F" }, wantErr: true},
		{name: "lowercase option rejected", mutate: func(d *Definition) { d.AnswerKey[0].Option = "a" }, wantErr: true},
		{name: "link outside range", mutate: func(d *Definition) { d.ReferenceLinks = map[int]string{9: "https://example.test/v"} }, wantErr: true},
		{name: "link in range", mutate: func(d *Definition) { d.ReferenceLinks = map[int]string{2: "https://example.test/v"} }, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := valid()
			tc.mutate(d)
			err := d.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTest) {
					t.Fatalf("expected ErrInvalidTest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
		})
	}
}

func TestCorrectOption(t *testing.T) {
	d := &Definition{
		QuestionCount: 2,
		AnswerKey: []AnswerKeyEntry{
			{Number: 1, Option: "A"},
			{Number: 2, Option: "E"},
		},
	}
	if got := d.CorrectOption(2); got != "E" {
		t.Fatalf("expected E, got %q", got)
	}
	if got := d.CorrectOption(7); got != "" {
		t.Fatalf("expected empty for missing number, got %q", got)
	}
}
