package nlp

import (
	"regexp"
	"strings"
)

// merchantRe captures capitalized tokens after a merchant-introducing
// preposition: "at CCD", "for Uber", "from Swiggy". The capture stops
// at the first lower-cased word, which keeps trailing phrases like
// "last night" out of the merchant name.
var merchantRe = regexp.MustCompile(
	`(?:\bat|\bfrom|\bfor|\bon)\s+([A-Z][A-Za-z0-9&'.-]*(?:\s+[A-Z][A-Za-z0-9&'.-]*)*)`)

// Category keyword map. First match wins; order is deliberate
// (food words are the most common in transcripts).
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"food", []string{"chai", "coffee", "tea", "lunch", "dinner", "breakfast", "food", "restaurant", "snack", "swiggy", "zomato"}},
	{"transport", []string{"uber", "ola", "cab", "taxi", "auto", "metro", "bus", "train", "petrol", "fuel"}},
	{"shopping", []string{"amazon", "flipkart", "myntra", "shopping", "clothes", "shoes"}},
	{"groceries", []string{"grocery", "groceries", "vegetables", "milk", "bigbasket"}},
	{"entertainment", []string{"movie", "netflix", "spotify", "game", "concert"}},
	{"utilities", []string{"electricity", "water bill", "recharge", "broadband", "rent"}},
}

// ExtractMerchant finds the first capitalized merchant name following
// "at", "from", "for", or "on". Returns nil when nothing matches.
func ExtractMerchant(text string) *string {
	m := merchantRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	// A leading sentence pronoun is not a merchant.
	if name == "" || name == "I" {
		return nil
	}
	return &name
}

// GuessCategory maps the text to a coarse spending category, or nil
// when no category keyword is present.
func GuessCategory(text string) *string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				cat := c.category
				return &cat
			}
		}
	}
	return nil
}
