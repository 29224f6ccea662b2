package feedback

import "strings"

const (
	TagPositive         = "positive"
	TagNeutral          = "neutral"
	TagNeedsImprovement = "needs-improvement"
)

// SentimentTag maps a rating to its sentiment bucket.
func SentimentTag(rating int) string {
	switch {
	case rating >= 4:
		return TagPositive
	case rating <= 2:
		return TagNeedsImprovement
	default:
		return TagNeutral
	}
}

func isSentimentTag(tag string) bool {
	return tag == TagPositive || tag == TagNeutral || tag == TagNeedsImprovement
}

// ApplySentimentTag normalises tags and leaves exactly one sentiment tag,
// the one matching rating, at the end. Stale sentiment tags from an earlier
// rating are dropped, as are duplicates and blanks.
func ApplySentimentTag(tags []string, rating int) []string {
	out := make([]string, 0, len(tags)+1)
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || isSentimentTag(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return append(out, SentimentTag(rating))
}
