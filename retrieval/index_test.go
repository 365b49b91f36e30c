package retrieval

import (
	"testing"

	"go.uber.org/zap"

	"campus-agent/config"
	"campus-agent/knowledge"
)

func testConfig() *config.Config {
	return &config.Config{
		SignificanceFloor:  0.3,
		RelevanceThreshold: 0.35,
		MaxHints:           3,
		DomainCueTerms:     []string{"tuition", "sgu"},
		RetrievalCacheSize: 16,
	}
}

func testCorpus() *knowledge.Corpus {
	return &knowledge.Corpus{
		FAQs: []knowledge.FAQ{
			{Question: "What are the tuition fees?", Answer: "Tuition varies by program."},
			{Question: "How do I apply for admission?", Answer: "Apply online through the portal."},
		},
		Topics: []knowledge.Topic{
			{
				Name: "Data Science",
				Attributes: map[string]any{
					"faculty":     "Engineering",
					"description": "machine learning and statistics program",
				},
			},
		},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	index, err := NewIndex(testCorpus(), testConfig(), logger)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return index
}

func TestSearchExactFAQMatch(t *testing.T) {
	index := newTestIndex(t)

	result := index.Search("What are the tuition fees?")
	if result.Best == nil {
		t.Fatal("expected a best candidate")
	}
	if result.Best.Kind != KindFAQ {
		t.Errorf("best kind = %v, want KindFAQ", result.Best.Kind)
	}
	if result.Best.Score != 1.0 {
		t.Errorf("best score = %v, want 1.0", result.Best.Score)
	}
	if !result.DomainRelevant {
		t.Error("exact FAQ match should be domain relevant")
	}
	if len(result.FAQHints) == 0 {
		t.Error("expected FAQ hints for an exact match")
	}
}

func TestSearchCompactTopicName(t *testing.T) {
	index := newTestIndex(t)

	result := index.Search("datascience")
	if result.Best == nil {
		t.Fatal("expected a best candidate")
	}
	if result.Best.Kind != KindTopic {
		t.Errorf("best kind = %v, want KindTopic", result.Best.Kind)
	}
	if result.Best.Score < 0.9 {
		t.Errorf("compact name match score = %v, want >= 0.9", result.Best.Score)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	index := newTestIndex(t)

	for _, query := range []string{"", "   ", "\t\n", "?!"} {
		result := index.Search(query)
		if result.Best != nil {
			t.Errorf("Search(%q).Best = %v, want nil", query, result.Best)
		}
		if result.DomainRelevant {
			t.Errorf("Search(%q) should not be domain relevant", query)
		}
		if len(result.FAQHints) != 0 || len(result.TopicHints) != 0 {
			t.Errorf("Search(%q) should return no hints", query)
		}
	}
}

func TestSearchOffDomainQuery(t *testing.T) {
	index := newTestIndex(t)

	result := index.Search("what's the capital of France")
	if result.DomainRelevant {
		t.Error("capital-of-France query should not be domain relevant")
	}
	if len(result.FAQHints) != 0 || len(result.TopicHints) != 0 {
		t.Errorf("expected no hints, got %d FAQ and %d topic hints",
			len(result.FAQHints), len(result.TopicHints))
	}
}

func TestSearchDomainCueWithoutMatch(t *testing.T) {
	index := newTestIndex(t)

	// The cue makes the query in-domain even though no record scores well.
	result := index.Search("sgu parking rules during holidays")
	if !result.DomainRelevant {
		t.Error("query containing a domain cue should be domain relevant")
	}
}

func TestSearchHintsSortedAndBounded(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := testConfig()
	cfg.MaxHints = 2
	cfg.SignificanceFloor = 0.05

	corpus := &knowledge.Corpus{
		FAQs: []knowledge.FAQ{
			{Question: "scholarship deadlines", Answer: "a"},
			{Question: "scholarship amounts for students", Answer: "b"},
			{Question: "scholarship application process details here", Answer: "c"},
		},
	}
	index, err := NewIndex(corpus, cfg, logger)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	result := index.Search("scholarship information")
	if len(result.FAQHints) != 2 {
		t.Fatalf("expected hints truncated to 2, got %d", len(result.FAQHints))
	}
	if result.FAQHints[0].Score < result.FAQHints[1].Score {
		t.Error("hints not sorted by descending score")
	}
}

func TestSearchCachedResultStable(t *testing.T) {
	index := newTestIndex(t)

	first := index.Search("What are the tuition fees?")
	second := index.Search("what are the tuition fees")
	if second.Best == nil || first.Best == nil {
		t.Fatal("expected best candidates")
	}
	if first.Best.FAQ != second.Best.FAQ || first.Best.Score != second.Best.Score {
		t.Error("cache should return the same result for the same canonical query")
	}
}
