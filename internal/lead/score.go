package lead

import (
	"strings"
)

// DefaultPurchaseKeywords signal purchase intent in conversation text.
// Overridable via configuration.
var DefaultPurchaseKeywords = []string{"buy", "price", "purchase", "cost", "quote", "demo"}

const scoreBase = 50

// ScoreInput gathers the signals the qualification score weighs.
type ScoreInput struct {
	Contacts         Contacts
	HistoryLength    int
	Sentiment        int
	ConversationText string
	PurchaseKeywords []string
}

// Score computes the 0-100 qualification score: base 50, +20 email,
// +15 phone, +10 per engagement tier (history >5, >10), +/-15/-20 for
// strong sentiment, +15 for purchase-intent keywords, clamped.
func Score(in ScoreInput) int {
	score := scoreBase

	if in.Contacts.Email != "" {
		score += 20
	}
	if in.Contacts.Phone != "" {
		score += 15
	}

	if in.HistoryLength > 5 {
		score += 10
	}
	if in.HistoryLength > 10 {
		score += 10
	}

	if in.Sentiment > 50 {
		score += 15
	} else if in.Sentiment < -50 {
		score -= 20
	}

	keywords := in.PurchaseKeywords
	if keywords == nil {
		keywords = DefaultPurchaseKeywords
	}
	text := strings.ToLower(in.ConversationText)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score += 15
			break
		}
	}

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
