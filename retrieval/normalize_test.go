package retrieval

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase_and_punctuation", input: "What are the Tuition Fees?!", want: "what are the tuition fees"},
		{name: "whitespace_collapse", input: "  hello \t  world  ", want: "hello world"},
		{name: "diacritics_folded", input: "Café au Lait", want: "cafe au lait"},
		{name: "digits_kept", input: "Semester 1: Calculus", want: "semester 1 calculus"},
		{name: "empty", input: "", want: ""},
		{name: "only_punctuation", input: "?!...---", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"What are the Tuition Fees?",
		"  Café   au  LAIT!! ",
		"semester 1 calculus",
		"",
		"häßlich süß Übung",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TokenSet
	}{
		{name: "plural_s_dropped", input: "tuition fees", want: TokenSet{"tuition", "fee"}},
		{name: "ies_to_y", input: "universities", want: TokenSet{"university"}},
		{name: "double_s_kept", input: "press class", want: TokenSet{"press", "class"}},
		{name: "empty_input", input: "   ", want: TokenSet{}},
		{name: "mixed", input: "Programs & Majors!", want: TokenSet{"program", "major"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
