package retrieval

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"campus-agent/knowledge"
)

// Extractor is a pure function that tries to answer a specialized query
// shape directly from the corpus. Extractors are tried in priority order
// before generic retrieval; the first hit wins.
type Extractor func(query string, corpus *knowledge.Corpus) (string, bool)

// DefaultExtractors returns the extractor chain in priority order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		PartnerExtractor,
		CurriculumExtractor,
		ProgramListExtractor,
		OverviewExtractor,
	}
}

func queryHasAny(query string, cues ...string) bool {
	canonical := Normalize(query)
	for _, cue := range cues {
		if strings.Contains(canonical, cue) {
			return true
		}
	}
	return false
}

// PartnerExtractor answers double-degree and partner-university queries with
// a digest of every partner institution named anywhere in the corpus.
func PartnerExtractor(query string, corpus *knowledge.Corpus) (string, bool) {
	if !queryHasAny(query, "double degree", "partner university", "partner universitie", "joint degree") {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("**Double Degree Programs**\n\n")

	if overview := corpus.Overview(); overview != nil && overview.Description() != "" {
		sb.WriteString(overview.Description())
		sb.WriteString("\n\n")
	}

	partners := collectPartners(corpus)
	if len(partners) > 0 {
		sb.WriteString("**Partner Universities:**\n")
		for _, p := range partners {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	matched := false
	for _, faq := range corpus.FAQs {
		q := Normalize(faq.Question)
		if strings.Contains(q, "double degree") || strings.Contains(q, "partner university") {
			if !matched {
				sb.WriteString("**Frequently Asked Questions:**\n\n")
				matched = true
			}
			fmt.Fprintf(&sb, "**%s**\n%s\n\n", faq.Question, faq.Answer)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), true
}

// collectPartners walks every topic's attributes and gathers partner
// institution names, deduplicated and sorted. Partner names appear either
// directly under partner-ish keys or as the name/university field of nested
// partner objects.
func collectPartners(corpus *knowledge.Corpus) []string {
	seen := make(map[string]struct{})
	for _, topic := range corpus.Topics {
		walkPartners(topic.Attributes, false, seen)
	}
	partners := make([]string, 0, len(seen))
	for p := range seen {
		partners = append(partners, p)
	}
	sort.Strings(partners)
	return partners
}

func walkPartners(v any, underPartnerKey bool, seen map[string]struct{}) {
	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			keyLower := strings.ToLower(key)
			if keyLower == "university" || keyLower == "partner_university" {
				if s, ok := child.(string); ok && strings.TrimSpace(s) != "" {
					seen[strings.TrimSpace(s)] = struct{}{}
					continue
				}
			}
			if underPartnerKey && keyLower == "name" {
				if s, ok := child.(string); ok && strings.TrimSpace(s) != "" {
					seen[strings.TrimSpace(s)] = struct{}{}
					continue
				}
			}
			walkPartners(child, underPartnerKey || strings.Contains(keyLower, "partner"), seen)
		}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				if underPartnerKey && strings.TrimSpace(s) != "" {
					seen[strings.TrimSpace(s)] = struct{}{}
				}
				continue
			}
			walkPartners(item, underPartnerKey, seen)
		}
	}
}

var semesterNumRe = regexp.MustCompile(`\d+`)

// CurriculumExtractor answers curriculum queries for a specific program,
// resolved by lexical similarity against topic names rather than a
// hard-coded alias table.
func CurriculumExtractor(query string, corpus *knowledge.Corpus) (string, bool) {
	if !queryHasAny(query, "curriculum", "course", "syllabu") {
		return "", false
	}

	var target *knowledge.Topic
	bestScore := 0.0
	for i := range corpus.Topics {
		topic := &corpus.Topics[i]
		if topic.MapAttr("curriculum") == nil {
			continue
		}
		score := ScoreStrings(query, topic.Name)
		if score > bestScore {
			bestScore = score
			target = topic
		}
	}
	// A generic "tell me about the curriculum" names no program; let the
	// routing policy ask which one instead of guessing.
	if target == nil || bestScore < 0.2 {
		return "", false
	}

	curriculum := target.MapAttr("curriculum")
	semesters := make([]string, 0, len(curriculum))
	for name := range curriculum {
		semesters = append(semesters, name)
	}
	sort.Slice(semesters, func(i, j int) bool {
		return semesterNumber(semesters[i]) < semesterNumber(semesters[j])
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s - Complete Curriculum**\n\n", target.Name)
	for _, semester := range semesters {
		fmt.Fprintf(&sb, "**%s**\n", titleCase(semester))
		courses := listUnder(curriculum[semester], "courses")
		if len(courses) == 0 {
			sb.WriteString("- Curriculum details available\n")
		}
		for _, course := range courses {
			sb.WriteString("- ")
			sb.WriteString(course)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n"), true
}

func semesterNumber(name string) int {
	match := semesterNumRe.FindString(name)
	if match == "" {
		return 0
	}
	n := 0
	for _, r := range match {
		n = n*10 + int(r-'0')
	}
	return n
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func listUnder(v any, key string) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			items = append(items, strings.TrimSpace(s))
		}
	}
	return items
}

// ProgramListExtractor answers "list all programs / majors" queries.
func ProgramListExtractor(query string, corpus *knowledge.Corpus) (string, bool) {
	if !queryHasAny(query, "all program", "list program", "major", "study program", "available program") {
		return "", false
	}

	programs := corpus.Programs()
	if len(programs) == 0 {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("**All Study Programs**\n\n")
	for _, program := range programs {
		fmt.Fprintf(&sb, "**%s**\n", program.Name)
		if faculty := program.Faculty(); faculty != "" {
			fmt.Fprintf(&sb, "Faculty: %s\n", faculty)
		}
		if desc := program.Description(); desc != "" {
			sb.WriteString(desc)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "**Total: %d programs**\n\n", len(programs))
	sb.WriteString("Ask about a specific program for curriculum, lecturers, or career prospects.")

	return sb.String(), true
}

// OverviewExtractor answers general "about the university" queries from the
// overview topic's description, vision and mission.
func OverviewExtractor(query string, corpus *knowledge.Corpus) (string, bool) {
	overview := corpus.Overview()
	if overview == nil {
		return "", false
	}
	cues := []string{"about " + Normalize(overview.Name), Normalize(overview.Name)}
	nameWithoutAbout := strings.TrimSpace(strings.TrimPrefix(Normalize(overview.Name), "about"))
	if nameWithoutAbout != "" {
		cues = append(cues, "about "+nameWithoutAbout, "what is "+nameWithoutAbout)
	}
	if !queryHasAny(query, cues...) {
		return "", false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n", overview.Name)
	if desc := overview.Description(); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n\n")
	}
	if vision := overview.StringAttr("vision"); vision != "" {
		fmt.Fprintf(&sb, "**Vision:** %s\n\n", vision)
	}
	if mission := overview.ListAttr("mission"); len(mission) > 0 {
		sb.WriteString("**Mission:**\n")
		for _, m := range mission {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n"), true
}
