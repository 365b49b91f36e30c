package retrieval

import (
	"strings"
	"testing"

	"campus-agent/knowledge"
)

func extractorCorpus() *knowledge.Corpus {
	return &knowledge.Corpus{
		FAQs: []knowledge.FAQ{
			{Question: "How does the double degree program work?", Answer: "You study at both institutions."},
		},
		Topics: []knowledge.Topic{
			{
				Name: "About SGU",
				Attributes: map[string]any{
					"description": "An international university.",
					"vision":      "Academic excellence.",
					"mission":     []any{"Teach well", "Research well"},
					"double degree partners": []any{
						map[string]any{"university": "FH Südwestfalen", "country": "Germany"},
					},
				},
			},
			{
				Name: "Data Science",
				Attributes: map[string]any{
					"faculty":     "Engineering",
					"description": "A program about data.",
					"curriculum": map[string]any{
						"semester 2": map[string]any{"courses": []any{"Statistics"}},
						"semester 1": map[string]any{"courses": []any{"Calculus", "Programming"}},
					},
					"international academic experience": map[string]any{
						"joint degree program": map[string]any{
							"partner_university": "Hochschule Albstadt-Sigmaringen",
						},
					},
				},
			},
		},
	}
}

func TestPartnerExtractor(t *testing.T) {
	corpus := extractorCorpus()

	answer, ok := PartnerExtractor("Which partner universities offer a double degree?", corpus)
	if !ok {
		t.Fatal("expected partner extractor to fire")
	}
	for _, want := range []string{"FH Südwestfalen", "Hochschule Albstadt-Sigmaringen", "double degree"} {
		if !strings.Contains(answer, want) {
			t.Errorf("answer missing %q:\n%s", want, answer)
		}
	}

	if _, ok := PartnerExtractor("what are the tuition fees", corpus); ok {
		t.Error("partner extractor should not fire without a partner cue")
	}
}

func TestCurriculumExtractor(t *testing.T) {
	corpus := extractorCorpus()

	answer, ok := CurriculumExtractor("what courses are in the data science curriculum", corpus)
	if !ok {
		t.Fatal("expected curriculum extractor to fire")
	}
	if !strings.Contains(answer, "Data Science - Complete Curriculum") {
		t.Errorf("answer missing title:\n%s", answer)
	}
	// Semester ordering is numeric, not lexical.
	if strings.Index(answer, "Semester 1") > strings.Index(answer, "Semester 2") {
		t.Errorf("semesters out of order:\n%s", answer)
	}
	if !strings.Contains(answer, "Calculus") || !strings.Contains(answer, "Statistics") {
		t.Errorf("answer missing courses:\n%s", answer)
	}
}

func TestCurriculumExtractorNeedsProgram(t *testing.T) {
	corpus := extractorCorpus()

	// No program named: routing should ask for clarification instead.
	if _, ok := CurriculumExtractor("tell me about the curriculum", corpus); ok {
		t.Error("curriculum extractor should not guess a program")
	}
}

func TestProgramListExtractor(t *testing.T) {
	corpus := extractorCorpus()

	answer, ok := ProgramListExtractor("list programs please", corpus)
	if !ok {
		t.Fatal("expected program list extractor to fire")
	}
	if !strings.Contains(answer, "Data Science") {
		t.Errorf("answer missing program name:\n%s", answer)
	}
	if strings.Contains(answer, "About SGU") {
		t.Errorf("overview topic should not be listed as a program:\n%s", answer)
	}
	if !strings.Contains(answer, "Total: 1 programs") {
		t.Errorf("answer missing total:\n%s", answer)
	}
}

func TestOverviewExtractor(t *testing.T) {
	corpus := extractorCorpus()

	answer, ok := OverviewExtractor("what is SGU?", corpus)
	if !ok {
		t.Fatal("expected overview extractor to fire")
	}
	for _, want := range []string{"An international university.", "Vision", "Teach well"} {
		if !strings.Contains(answer, want) {
			t.Errorf("answer missing %q:\n%s", want, answer)
		}
	}

	if _, ok := OverviewExtractor("how much is parking", corpus); ok {
		t.Error("overview extractor should not fire without a cue")
	}
}
