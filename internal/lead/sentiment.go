package lead

import (
	"strings"
)

// Lexicon sentiment: count keyword hits at +/-10 each, clamped to
// [-100, 100]. A heuristic, not NLP — it only gates a notification and
// never blocks the conversation.

var positiveWords = []string{
	"great", "good", "love", "excellent", "amazing", "perfect",
	"thanks", "thank you", "helpful", "awesome", "interested",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "useless", "frustrated",
	"angry", "disappointed", "worst", "broken",
}

// Sentiment scores one turn's combined user and assistant text.
func Sentiment(text string) int {
	lower := strings.ToLower(text)

	score := 0
	for _, w := range positiveWords {
		score += 10 * strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		score -= 10 * strings.Count(lower, w)
	}

	return clamp(score, -100, 100)
}

// RollingSentiment folds a turn's sentiment into the conversation's
// running score, staying within the same bounds.
func RollingSentiment(previous, turn int) int {
	return clamp(previous+turn, -100, 100)
}
