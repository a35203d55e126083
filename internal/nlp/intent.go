// Package nlp implements the deterministic natural-language heuristics
// used by the agents: keyword intent detection, currency amount
// extraction, word-number parsing, relative date resolution, and
// merchant extraction.
//
// Everything here is a pure function over the input text. Nothing in
// this package calls the reasoning client, so heuristic accuracy is
// testable without any external dependency.
package nlp

import "strings"

// Heuristic confidence constants, hand-tuned against real transcripts.
const (
	ConfidenceImageExpense = 0.9
	ConfidenceExpense      = 0.85
	ConfidenceSplit        = 0.8
	ConfidenceQuery        = 0.75
	ConfidenceInsight      = 0.7
	ConfidenceUnknown      = 0.5
)

// Keyword sets for intent detection. Matching is case-insensitive
// substring containment over the lower-cased input.
var (
	expenseKeywords = []string{
		"spent", "paid", "bought", "cost", "purchase",
		"₹", "$", "€", "£", "rs.", "rs ", "rupees",
	}
	queryKeywords = []string{
		"how much", "show me", "list", "history", "total", "what did i",
	}
	splitKeywords = []string{
		"split", "share", "divide", "owes",
	}
	insightKeywords = []string{
		"suggest", "recommend", "analyze", "analyse", "insight", "advice",
	}
)

// IntentGuess is the outcome of the keyword heuristic.
type IntentGuess struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// DetectIntent classifies the purpose of the input text using fixed
// keyword sets with a deliberate precedence: image input always means
// add_expense; an expense keyword without any query keyword wins next;
// then split, query, insight; anything else is unknown. Only the first
// matching rule applies — this is an ordering, not independent scoring.
//
// isImage signals that the request carries an image, which overrides
// the text entirely.
func DetectIntent(text string, isImage bool) IntentGuess {
	if isImage {
		return IntentGuess{Intent: "add_expense", Confidence: ConfidenceImageExpense}
	}

	lower := strings.ToLower(text)

	hasExpense := containsAny(lower, expenseKeywords)
	hasQuery := containsAny(lower, queryKeywords)

	switch {
	case hasExpense && !hasQuery:
		return IntentGuess{Intent: "add_expense", Confidence: ConfidenceExpense}
	case containsAny(lower, splitKeywords):
		return IntentGuess{Intent: "split_expense", Confidence: ConfidenceSplit}
	case hasQuery:
		return IntentGuess{Intent: "query_expenses", Confidence: ConfidenceQuery}
	case containsAny(lower, insightKeywords):
		return IntentGuess{Intent: "get_insights", Confidence: ConfidenceInsight}
	default:
		return IntentGuess{Intent: "unknown", Confidence: ConfidenceUnknown}
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
