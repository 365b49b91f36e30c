package knowledge

import (
	"sort"
	"strings"
)

// FAQ is a flat question/answer pair. Identity is the question text.
type FAQ struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// Topic is a hierarchical knowledge record: a name plus arbitrarily nested
// attributes (description, curriculum by semester, lecturer lists, partner
// lists and so on). Attributes are read-only after load.
type Topic struct {
	Name       string
	Attributes map[string]any
}

// StringAttr returns a top-level attribute as a string, or "" if absent
// or not a string.
func (t *Topic) StringAttr(key string) string {
	if s, ok := t.Attributes[key].(string); ok {
		return s
	}
	return ""
}

// ListAttr returns a top-level attribute as a list of strings. Non-string
// elements are flattened to text.
func (t *Topic) ListAttr(key string) []string {
	raw, ok := t.Attributes[key].([]any)
	if !ok {
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, v := range raw {
		if s := strings.TrimSpace(FlattenValue(v)); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// MapAttr returns a top-level attribute as a nested object, or nil.
func (t *Topic) MapAttr(key string) map[string]any {
	if m, ok := t.Attributes[key].(map[string]any); ok {
		return m
	}
	return nil
}

// Faculty returns the topic's faculty attribute, if any.
func (t *Topic) Faculty() string { return t.StringAttr("faculty") }

// Description returns the topic's description attribute, if any.
func (t *Topic) Description() string { return t.StringAttr("description") }

// IsOverview reports whether this topic is the general institution overview
// rather than a study program.
func (t *Topic) IsOverview() bool {
	return strings.HasPrefix(strings.ToLower(t.Name), "about")
}

// Flatten collapses the topic's name and all nested textual attributes into
// one searchable blob.
func (t *Topic) Flatten() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteString(" ")
	sb.WriteString(FlattenValue(t.Attributes))
	return sb.String()
}

// FlattenValue recursively collapses a decoded JSON value (string, list or
// object) into space-joined text. Map keys are included so attribute names
// like "double degree partners" are themselves searchable.
func FlattenValue(v any) string {
	switch val := v.(type) {
	case string:
		return val + " "
	case []any:
		var sb strings.Builder
		for _, item := range val {
			sb.WriteString(FlattenValue(item))
		}
		return sb.String()
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			sb.WriteString(k)
			sb.WriteString(" ")
			sb.WriteString(FlattenValue(val[k]))
		}
		return sb.String()
	default:
		return ""
	}
}

// Corpus is the immutable in-memory knowledge collection. It is loaded once
// at startup and never mutated afterwards.
type Corpus struct {
	FAQs   []FAQ
	Topics []Topic
}

// Programs returns every topic that describes a study program, in name order.
func (c *Corpus) Programs() []Topic {
	programs := make([]Topic, 0, len(c.Topics))
	for _, t := range c.Topics {
		if !t.IsOverview() {
			programs = append(programs, t)
		}
	}
	return programs
}

// Overview returns the institution overview topic, or nil if the corpus has
// none.
func (c *Corpus) Overview() *Topic {
	for i := range c.Topics {
		if c.Topics[i].IsOverview() {
			return &c.Topics[i]
		}
	}
	return nil
}

// FindTopic locates a topic by exact name first, then by case-insensitive
// partial match in either direction.
func (c *Corpus) FindTopic(name string) *Topic {
	for i := range c.Topics {
		if c.Topics[i].Name == name {
			return &c.Topics[i]
		}
	}
	lower := strings.ToLower(name)
	for i := range c.Topics {
		topicLower := strings.ToLower(c.Topics[i].Name)
		if strings.Contains(topicLower, lower) || strings.Contains(lower, topicLower) {
			return &c.Topics[i]
		}
	}
	return nil
}
