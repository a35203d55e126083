package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

// currencyAmountRe matches a currency marker adjacent to a numeral
// with optional thousands separators and up to two decimal places,
// in either order: "₹1,234.50", "rs 200", "50 rupees", "$12.99".
var currencyAmountRe = regexp.MustCompile(
	`(?i)(?:₹|rs\.?|inr|rupees?|\$|usd|dollars?|€|eur|£|gbp)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)` +
		`|([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*(?:₹|rs\.?|inr|rupees?|\$|usd|dollars?|€|eur|£|gbp)\b`)

// bareNumberRe matches a plain numeral. Used only when no
// currency-marked numeral is present, which keeps extraction
// idempotent: re-running on the already-parsed numeral string yields
// the same numeral.
var bareNumberRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]{1,2})?`)

// ExtractAmount finds the first monetary amount in the text.
// Returns nil when no numeral is present — an absent amount is not an
// error, it means "ask the user".
func ExtractAmount(text string) *float64 {
	raw := ""
	if m := currencyAmountRe.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			raw = m[1]
		} else {
			raw = m[2]
		}
	} else if m := bareNumberRe.FindString(text); m != "" {
		raw = m
	}
	if raw == "" {
		return nil
	}

	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// DetectCurrency returns the ISO code of the first currency marker in
// the text, or "" when none is present.
func DetectCurrency(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "₹"), strings.Contains(lower, "rupee"),
		strings.Contains(lower, "rs."), strings.Contains(lower, "rs "),
		strings.Contains(lower, "inr"):
		return "INR"
	case strings.Contains(text, "$"), strings.Contains(lower, "dollar"),
		strings.Contains(lower, "usd"):
		return "USD"
	case strings.Contains(text, "€"), strings.Contains(lower, "eur"):
		return "EUR"
	case strings.Contains(text, "£"), strings.Contains(lower, "gbp"):
		return "GBP"
	default:
		return ""
	}
}

// Word-number vocabulary for spoken amounts. Transcripts frequently
// spell small amounts out ("fifty rupees", "two hundred").
var wordUnits = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
}

var wordTens = map[string]float64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var wordScales = map[string]float64{
	"hundred":  100,
	"thousand": 1000,
	"lakh":     100000,
	"crore":    10000000,
}

// ParseWordNumber parses a spelled-out number from the text, e.g.
// "fifty" → 50, "two hundred" → 200, "one thousand five hundred" →
// 1500. It is attempted only when the numeral pattern fails; a text
// with no number words returns nil.
func ParseWordNumber(text string) *float64 {
	words := strings.Fields(strings.ToLower(text))

	var total, current float64
	found := false

	for _, w := range words {
		w = strings.Trim(w, ".,!?")
		if v, ok := wordUnits[w]; ok {
			current += v
			found = true
			continue
		}
		if v, ok := wordTens[w]; ok {
			current += v
			found = true
			continue
		}
		if scale, ok := wordScales[w]; ok {
			if current == 0 {
				current = 1 // bare "hundred" means 100
			}
			if scale >= 1000 {
				total += current * scale
				current = 0
			} else {
				current *= scale
			}
			found = true
			continue
		}
		if w == "and" && found {
			continue
		}
		// A non-number word after we started parsing ends the number.
		if found {
			break
		}
	}

	if !found {
		return nil
	}
	v := total + current
	return &v
}
