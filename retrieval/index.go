package retrieval

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"campus-agent/config"
	"campus-agent/knowledge"
)

// Kind identifies which record variant a candidate refers to.
type Kind int

const (
	KindFAQ Kind = iota
	KindTopic
)

// Candidate is a scored corpus record for one query. Exactly one of FAQ or
// Topic is set, matching Kind.
type Candidate struct {
	Kind  Kind
	FAQ   *knowledge.FAQ
	Topic *knowledge.Topic
	Score float64
}

// Result is the outcome of one retrieval pass: the single best-scoring
// record, bounded hint lists per record kind, and whether the query looks
// in-domain at all. DomainRelevant is deliberately independent of Best: a
// query can be clearly in-domain without any record clearing the answer bar.
type Result struct {
	Best           *Candidate
	FAQHints       []Candidate
	TopicHints     []Candidate
	DomainRelevant bool
}

type faqEntry struct {
	ref       *knowledge.FAQ
	canonical string
	tokens    TokenSet
}

type topicEntry struct {
	ref         *knowledge.Topic
	canonical   string
	tokens      TokenSet
	compactName string
}

// Index scores queries against every corpus record. Canonical strings and
// token sets for the corpus are computed once at construction; per-query
// results are cached in a bounded LRU keyed by the canonical query.
type Index struct {
	cfg    *config.Config
	faqs   []faqEntry
	topics []topicEntry
	cues   []string
	cache  *lru.Cache
	logger *zap.Logger
}

func NewIndex(corpus *knowledge.Corpus, cfg *config.Config, logger *zap.Logger) (*Index, error) {
	cacheSize := cfg.RetrievalCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}

	ix.faqs = make([]faqEntry, 0, len(corpus.FAQs))
	for i := range corpus.FAQs {
		faq := &corpus.FAQs[i]
		ix.faqs = append(ix.faqs, faqEntry{
			ref:       faq,
			canonical: Normalize(faq.Question),
			tokens:    Tokenize(faq.Question),
		})
	}

	ix.topics = make([]topicEntry, 0, len(corpus.Topics))
	for i := range corpus.Topics {
		topic := &corpus.Topics[i]
		blob := topic.Flatten()
		ix.topics = append(ix.topics, topicEntry{
			ref:         topic,
			canonical:   Normalize(blob),
			tokens:      Tokenize(blob),
			compactName: strings.ReplaceAll(Normalize(topic.Name), " ", ""),
		})
	}

	for _, cue := range cfg.DomainCueTerms {
		if c := Normalize(cue); c != "" {
			ix.cues = append(ix.cues, c)
		}
	}

	return ix, nil
}

// Search scores the query against every corpus record and returns ranked
// candidates split by kind plus the domain-relevance signal. An empty or
// whitespace-only query yields a zero Result without error.
func (ix *Index) Search(query string) Result {
	canonical := Normalize(query)
	if canonical == "" {
		return Result{}
	}

	if cached, ok := ix.cache.Get(canonical); ok {
		return cached.(Result)
	}

	tokens := Tokenize(query)
	compact := strings.ReplaceAll(canonical, " ", "")

	var best *Candidate
	var faqHints, topicHints []Candidate
	maxScore := 0.0

	consider := func(cand Candidate) {
		if cand.Score > maxScore {
			maxScore = cand.Score
		}
		if best == nil || cand.Score > best.Score {
			c := cand
			best = &c
		}
		if cand.Score >= ix.cfg.SignificanceFloor {
			switch cand.Kind {
			case KindFAQ:
				faqHints = append(faqHints, cand)
			case KindTopic:
				topicHints = append(topicHints, cand)
			}
		}
	}

	for _, entry := range ix.faqs {
		score := scoreCanonical(canonical, tokens, entry.canonical, entry.tokens)
		consider(Candidate{Kind: KindFAQ, FAQ: entry.ref, Score: score})
	}

	for _, entry := range ix.topics {
		score := scoreCanonical(canonical, tokens, entry.canonical, entry.tokens)
		// Spacing/hyphenation tolerance for topic names: "datascience"
		// should still hit "Data Science".
		if entry.compactName != "" &&
			(strings.Contains(compact, entry.compactName) || strings.Contains(entry.compactName, compact)) {
			if score < 0.9 {
				score = 0.9
			}
		}
		consider(Candidate{Kind: KindTopic, Topic: entry.ref, Score: score})
	}

	sortCandidates(faqHints)
	sortCandidates(topicHints)
	faqHints = truncate(faqHints, ix.cfg.MaxHints)
	topicHints = truncate(topicHints, ix.cfg.MaxHints)

	if best != nil && best.Score <= 0 {
		best = nil
	}

	result := Result{
		Best:           best,
		FAQHints:       faqHints,
		TopicHints:     topicHints,
		DomainRelevant: ix.domainRelevant(canonical, maxScore),
	}

	ix.cache.Add(canonical, result)
	if ix.logger != nil {
		ix.logger.Debug("Retrieval pass complete",
			zap.Float64("max_score", maxScore),
			zap.Int("faq_hints", len(faqHints)),
			zap.Int("topic_hints", len(topicHints)),
			zap.Bool("domain_relevant", result.DomainRelevant))
	}
	return result
}

// domainRelevant is a two-path signal: a high-precision cue substring in the
// canonical query, or any record similarity reaching the relevance
// threshold.
func (ix *Index) domainRelevant(canonical string, maxScore float64) bool {
	for _, cue := range ix.cues {
		if strings.Contains(canonical, cue) {
			return true
		}
	}
	return maxScore >= ix.cfg.RelevanceThreshold
}

func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
}

func truncate(cands []Candidate, n int) []Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}
