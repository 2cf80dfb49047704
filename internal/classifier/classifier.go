package classifier

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Default exclusion lists. A query that matches either list is never
// business-related, regardless of how well it scores against the corpus.
var (
	DefaultExcludedPhrases = []string{"hi", "hello", "how are you", "hey", "good morning"}
	DefaultExcludedTopics  = []string{"football", "sports", "game", "play", "weather", "food", "eat", "drink"}
)

// Config tunes the classifier. Correction and acceptance thresholds are
// 0-100 partial-ratio scores.
type Config struct {
	ApplySpellCorrection bool
	CorrectionThreshold  int
	ColdThreshold        int
	WarmThreshold        int
	ExcludedPhrases      []string
	ExcludedTopics       []string
}

// DefaultConfig matches the historical behavior: correction at 75,
// strict entry at 80, relaxed follow-up at 50.
func DefaultConfig() Config {
	return Config{
		ApplySpellCorrection: true,
		CorrectionThreshold:  75,
		ColdThreshold:        80,
		WarmThreshold:        50,
		ExcludedPhrases:      DefaultExcludedPhrases,
		ExcludedTopics:       DefaultExcludedTopics,
	}
}

// Classifier gates queries on topic relevance using fuzzy matching against a
// fixed keyword corpus. It is stateless and safe for concurrent use.
type Classifier struct {
	cfg      Config
	keywords []string
}

func New(cfg Config, keywords []string) *Classifier {
	if cfg.CorrectionThreshold <= 0 {
		cfg.CorrectionThreshold = 75
	}
	if cfg.ColdThreshold <= 0 {
		cfg.ColdThreshold = 80
	}
	if cfg.WarmThreshold <= 0 {
		cfg.WarmThreshold = 50
	}
	if cfg.ExcludedPhrases == nil {
		cfg.ExcludedPhrases = DefaultExcludedPhrases
	}
	if cfg.ExcludedTopics == nil {
		cfg.ExcludedTopics = DefaultExcludedTopics
	}
	return &Classifier{cfg: cfg, keywords: append([]string(nil), keywords...)}
}

// Config returns the effective configuration after defaulting.
func (c *Classifier) Config() Config { return c.cfg }

// Match returns the best-scoring corpus keyword for the query and its
// partial-ratio score. An empty corpus or query scores zero.
func (c *Classifier) Match(query string) (string, int) {
	query = strings.ToLower(query)
	best, bestScore := "", 0
	for _, kw := range c.keywords {
		score := fuzzy.PartialRatio(query, strings.ToLower(kw))
		if score > bestScore {
			best, bestScore = kw, score
		}
	}
	return best, bestScore
}

// MatchesExclusion reports whether the query hits an excluded greeting
// phrase (exact, after trim) or contains an excluded topic word.
func (c *Classifier) MatchesExclusion(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, phrase := range c.cfg.ExcludedPhrases {
		if q == phrase {
			return true
		}
	}
	for _, topic := range c.cfg.ExcludedTopics {
		if strings.Contains(q, topic) {
			return true
		}
	}
	return false
}

// IsBusinessRelated decides topic relevance without conversational context.
// Exclusions short-circuit before any similarity scoring.
func (c *Classifier) IsBusinessRelated(query string) bool {
	if c.MatchesExclusion(query) {
		return false
	}
	_, score := c.Match(query)
	return score > c.cfg.ColdThreshold
}

// IsPartOfConversation decides topic relevance given whether the
// conversation is already established as business talk. A warm conversation
// accepts follow-ups at a lower bar; a cold one requires the strict score.
func (c *Classifier) IsPartOfConversation(query string, warm bool) bool {
	if c.MatchesExclusion(query) {
		return false
	}
	_, score := c.Match(query)
	if warm {
		return score > c.cfg.WarmThreshold
	}
	return score > c.cfg.ColdThreshold
}
