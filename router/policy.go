package router

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"campus-agent/config"
	apperrors "campus-agent/errors"
	"campus-agent/knowledge"
	"campus-agent/retrieval"
)

// DecisionKind enumerates the routing outcomes. Policy violations are
// first-class decisions, never errors.
type DecisionKind int

const (
	DecisionDirectAnswer DecisionKind = iota
	DecisionClarification
	DecisionOffTopic
	DecisionLinkRefusal
	DecisionDelegate
)

// Tier labels a direct answer's confidence band.
type Tier string

const (
	TierStrong Tier = "strong"
	TierNormal Tier = "normal"
	TierWeak   Tier = "weak"
)

// Decision is the routing outcome for one query.
type Decision struct {
	Kind            DecisionKind
	Answer          string // direct answer or refusal/clarification text
	Source          string // knowledge-base, faq or topic for direct answers
	MatchedQuestion string
	Confidence      int // 0-100
	Tier            Tier
	Hints           []string // grounding bullets for delegation
}

const (
	offTopicText = "I can only assist with Swiss German University (SGU) related questions. " +
		"Please ask about SGU admissions, programs, campus facilities, schedules, fees, or other SGU services."
	linkRefusalText = "I can't open or discuss external links. " +
		"Please describe your question in your own words and I'll help with anything SGU related."
	clarificationText = "That sounds like an SGU topic, but I couldn't find a matching entry in my knowledge base. " +
		"Could you be more specific? For example, which program or service are you asking about?"
	normalCaveat = "\n\n_This is the closest match I found; let me know if you were asking about something else._"
	weakFollowUp = "\n\nI'm not fully sure this answers your question. Could you rephrase it or name the specific program?"
)

var urlRe = regexp.MustCompile(`https?://\S+`)

// Policy is the state-free decision procedure that selects a response
// strategy from retrieval results and fixed confidence thresholds.
type Policy struct {
	cfg        *config.Config
	corpus     *knowledge.Corpus
	extractors []retrieval.Extractor
	logger     *zap.Logger
}

// NewPolicy validates the tier configuration and builds the policy. The
// strong/normal/weak thresholds must be monotonic.
func NewPolicy(cfg *config.Config, corpus *knowledge.Corpus, logger *zap.Logger) (*Policy, error) {
	if cfg.StrongThreshold < cfg.NormalThreshold || cfg.NormalThreshold < cfg.WeakThreshold {
		return nil, apperrors.WrapErrorf(apperrors.ErrInvalidInput,
			"direct-answer thresholds must satisfy strong >= normal >= weak, got %d/%d/%d",
			cfg.StrongThreshold, cfg.NormalThreshold, cfg.WeakThreshold)
	}
	return &Policy{
		cfg:        cfg,
		corpus:     corpus,
		extractors: retrieval.DefaultExtractors(),
		logger:     logger,
	}, nil
}

// Route selects a response strategy for the query. The link check runs
// before anything else; specialized extractors run before the generic
// confidence tiers.
func (p *Policy) Route(query string, res retrieval.Result) Decision {
	if p.containsDisallowedLink(query) {
		p.logger.Info("Refusing query containing disallowed link")
		return Decision{Kind: DecisionLinkRefusal, Answer: linkRefusalText}
	}

	for _, extract := range p.extractors {
		if answer, ok := extract(query, p.corpus); ok {
			return Decision{
				Kind:       DecisionDirectAnswer,
				Answer:     answer,
				Source:     "knowledge-base",
				Confidence: 90,
				Tier:       TierStrong,
			}
		}
	}

	if res.Best != nil {
		confidence := int(res.Best.Score*100 + 0.5)
		switch {
		case confidence >= p.cfg.StrongThreshold:
			return p.directAnswer(res.Best, confidence, TierStrong, "")
		case confidence >= p.cfg.NormalThreshold:
			return p.directAnswer(res.Best, confidence, TierNormal, normalCaveat)
		case confidence >= p.cfg.WeakThreshold:
			return p.directAnswer(res.Best, confidence, TierWeak, weakFollowUp)
		}
	}

	hints := p.buildHints(res)
	if len(hints) > 0 {
		return Decision{Kind: DecisionDelegate, Hints: hints}
	}

	if res.DomainRelevant {
		return Decision{Kind: DecisionClarification, Answer: clarificationText}
	}
	return Decision{Kind: DecisionOffTopic, Answer: offTopicText}
}

// containsDisallowedLink reports whether the query carries an absolute URL
// whose hostname falls outside the allow-list. Malformed URLs are treated
// as disallowed.
func (p *Policy) containsDisallowedLink(query string) bool {
	for _, raw := range urlRe.FindAllString(query, -1) {
		parsed, err := url.Parse(strings.TrimRight(raw, ".,;:!?)"))
		if err != nil || parsed.Hostname() == "" {
			return true
		}
		host := strings.ToLower(parsed.Hostname())
		allowed := false
		for _, domain := range p.cfg.AllowedLinkDomains {
			if strings.HasSuffix(host, domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	return false
}

func (p *Policy) directAnswer(best *retrieval.Candidate, confidence int, tier Tier, suffix string) Decision {
	dec := Decision{
		Kind:       DecisionDirectAnswer,
		Confidence: confidence,
		Tier:       tier,
	}
	switch best.Kind {
	case retrieval.KindFAQ:
		dec.Source = "faq"
		dec.MatchedQuestion = best.FAQ.Question
		dec.Answer = best.FAQ.Answer + suffix
	case retrieval.KindTopic:
		dec.Source = "topic"
		dec.Answer = formatTopic(best.Topic) + suffix
	}
	return dec
}

// formatTopic renders a topic record as a direct answer: faculty,
// description, a few lecturers and career prospects when present.
func formatTopic(topic *knowledge.Topic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n", topic.Name)
	if faculty := topic.Faculty(); faculty != "" {
		fmt.Fprintf(&sb, "Faculty: %s\n\n", faculty)
	}
	if desc := topic.Description(); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n\n")
	}
	if lecturers := topic.ListAttr("lecturers"); len(lecturers) > 0 {
		sb.WriteString("**Lecturers:**\n")
		for i, l := range lecturers {
			if i == 3 {
				break
			}
			sb.WriteString("- ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if prospects := topic.ListAttr("career_prospects"); len(prospects) > 0 {
		sb.WriteString("**Career Prospects:**\n")
		for _, c := range prospects {
			sb.WriteString("- ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// buildHints packages retrieval candidates as grounding bullets for the
// generation step.
func (p *Policy) buildHints(res retrieval.Result) []string {
	var hints []string
	for _, cand := range res.FAQHints {
		hints = append(hints, fmt.Sprintf("Q: %s\nA: %s", cand.FAQ.Question, cand.FAQ.Answer))
	}
	for _, cand := range res.TopicHints {
		excerpt := cand.Topic.Description()
		if excerpt == "" {
			excerpt = "see knowledge base entry"
		}
		if runes := []rune(excerpt); len(runes) > 200 {
			excerpt = string(runes[:200]) + "..."
		}
		label := cand.Topic.Name
		if faculty := cand.Topic.Faculty(); faculty != "" {
			label = fmt.Sprintf("%s (%s)", label, faculty)
		}
		hints = append(hints, fmt.Sprintf("Topic: %s - %s", label, excerpt))
	}
	return hints
}
