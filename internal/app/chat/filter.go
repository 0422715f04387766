package chat

import (
	"regexp"
	"unicode/utf8"
)

// FilterRule rejects a message (and gets the sender muted) when its pattern
// matches at least Threshold times in a single message.
type FilterRule struct {
	Pattern   *regexp.Regexp
	Threshold int
}

// Substitution rewrites all matches of Pattern to Replace before further
// checks, e.g. collapsing self-referential canvas links.
type Substitution struct {
	Pattern *regexp.Regexp
	Replace string
}

// FilterResult is the outcome of running a message through the chain.
type FilterResult struct {
	// Rejected means the message must not be sent.
	Rejected bool

	// AutoMuteMinutes is non-zero when the rejection should also mute the
	// sender (spam rule hits). Length rejections carry no mute.
	AutoMuteMinutes int

	// Text is the sanitized message for accepted input.
	Text string
}

// FilterChain runs spam detection, substitutions, and the length check, in
// that order. It is pure: the caller performs any mute it instructs.
type FilterChain struct {
	filters     []FilterRule
	substitutes []Substitution
	maxLength   int
}

// NewFilterChain builds a chain from the given rule sets.
func NewFilterChain(filters []FilterRule, substitutes []Substitution, maxLength int) *FilterChain {
	return &FilterChain{
		filters:     filters,
		substitutes: substitutes,
		maxLength:   maxLength,
	}
}

// DefaultFilterRules returns the stock spam rules: admin impersonation
// (including the lowercase-L homoglyph spelling) and profanity spam.
func DefaultFilterRules() []FilterRule {
	return []FilterRule{
		{Pattern: regexp.MustCompile(`(?i)ADMIN`), Threshold: 4},
		{Pattern: regexp.MustCompile(`(?i)ADMlN`), Threshold: 4},
		{Pattern: regexp.MustCompile(`(?i)FUCK`), Threshold: 4},
	}
}

// DefaultSubstitutions returns the stock substitutions: links into our own
// canvas collapse to a plain coordinate hash.
func DefaultSubstitutions() []Substitution {
	return []Substitution{
		{Pattern: regexp.MustCompile(`https?://(old\.)?pixelplanet\.fun/#`), Replace: "#"},
	}
}

// Apply runs the chain over raw message text.
//
// Spam rules are counted against the raw text and short-circuit with an
// auto-mute instruction. Substitutions run on passing text only, and the
// length ceiling applies to the substituted result.
func (c *FilterChain) Apply(text string) FilterResult {
	for _, rule := range c.filters {
		if len(rule.Pattern.FindAllStringIndex(text, -1)) >= rule.Threshold {
			return FilterResult{Rejected: true, AutoMuteMinutes: SpamMuteMinutes}
		}
	}

	for _, sub := range c.substitutes {
		text = sub.Pattern.ReplaceAllString(text, sub.Replace)
	}

	if utf8.RuneCountInString(text) > c.maxLength {
		return FilterResult{Rejected: true}
	}

	return FilterResult{Text: text}
}
