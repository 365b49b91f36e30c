package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	apperrors "campus-agent/errors"
)

const (
	faqsFile   = "faqs.json"
	topicsFile = "topics.json"
)

// Load reads the corpus from a directory containing faqs.json (an array of
// {q, a} pairs) and topics.json (an object mapping topic names to nested
// attribute objects). Topics are sorted by name so iteration order is stable
// across runs.
func Load(dir string) (*Corpus, error) {
	faqBytes, err := os.ReadFile(filepath.Join(dir, faqsFile))
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrCorpusLoad, "read %s: %v", faqsFile, err)
	}

	var faqs []FAQ
	if err := json.Unmarshal(faqBytes, &faqs); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrCorpusLoad, "decode %s: %v", faqsFile, err)
	}

	topicBytes, err := os.ReadFile(filepath.Join(dir, topicsFile))
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrCorpusLoad, "read %s: %v", topicsFile, err)
	}

	var rawTopics map[string]map[string]any
	if err := json.Unmarshal(topicBytes, &rawTopics); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrCorpusLoad, "decode %s: %v", topicsFile, err)
	}

	topics := make([]Topic, 0, len(rawTopics))
	for name, attrs := range rawTopics {
		topics = append(topics, Topic{Name: name, Attributes: attrs})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	return &Corpus{FAQs: faqs, Topics: topics}, nil
}
