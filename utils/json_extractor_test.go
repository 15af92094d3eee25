package utils

import (
	"errors"
	"testing"
)

func TestExtractJSONVariants(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose before and after",
			input: `Sure! Here is the result: {"milestone_goals":[]} Hope that helps.`,
			want:  `{"milestone_goals":[]}`,
		},
		{
			name:  "braces inside string literals",
			input: `noise {"text":"a { tricky } value","n":2} trailing`,
			want:  `{"text":"a { tricky } value","n":2}`,
		},
		{
			name:  "array payload",
			input: "the goals are [\"startup_founding\", \"top_10_university_acceptance\"] ok",
			want:  `["startup_founding", "top_10_university_acceptance"]`,
		},
		{
			name:  "nested objects",
			input: `{"outer":{"inner":[1,2,3]}}`,
			want:  `{"outer":{"inner":[1,2,3]}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.input)
			if err != nil {
				t.Fatalf("ExtractJSON returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"no json here at all",
		"{ broken",
		"{\"unterminated\": \"stri",
		"}{",
	}

	for _, input := range inputs {
		if _, err := ExtractJSON(input); !errors.Is(err, ErrNoJSONFound) {
			t.Errorf("ExtractJSON(%q): expected ErrNoJSONFound, got %v", input, err)
		}
	}
}

func TestExtractJSONTo(t *testing.T) {
	var target struct {
		Goals []string `json:"goals"`
	}

	input := "```json\n{\"goals\":[\"startup_founding\"]}\n```"
	if err := ExtractJSONTo(input, &target); err != nil {
		t.Fatalf("ExtractJSONTo: %v", err)
	}
	if len(target.Goals) != 1 || target.Goals[0] != "startup_founding" {
		t.Errorf("unexpected decode result: %+v", target)
	}

	if err := ExtractJSONTo("not json", &target); err == nil {
		t.Error("expected error for non-JSON input")
	}
}
