package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var daysAgoRe = regexp.MustCompile(`(?i)\b(\d+)\s+days?\s+ago\b`)

// ResolveDateReference resolves a relative date reference in the text
// against now: "yesterday" and "last night" mean the previous day, an
// explicit "N days ago" subtracts N days, "last week" subtracts 7.
// An unrecognized reference returns nil — the caller must ask the
// user rather than guess.
func ResolveDateReference(text string, now time.Time) *string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "yesterday"), strings.Contains(lower, "last night"):
		return isoDate(now.AddDate(0, 0, -1))
	case strings.Contains(lower, "last week"):
		return isoDate(now.AddDate(0, 0, -7))
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"),
		strings.Contains(lower, "this morning"):
		return isoDate(now)
	}

	if m := daysAgoRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return isoDate(now.AddDate(0, 0, -n))
		}
	}

	return nil
}

func isoDate(t time.Time) *string {
	s := t.Format("2006-01-02")
	return &s
}
