package classifier

// Correct maps a raw query to its closest corpus keyword when the match is
// confident enough, otherwise returns the query unchanged. Empty input stays
// empty. Only the single best match is considered.
func (c *Classifier) Correct(query string) string {
	if query == "" {
		return ""
	}
	match, score := c.Match(query)
	if score >= c.cfg.CorrectionThreshold {
		return match
	}
	return query
}
