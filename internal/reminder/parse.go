package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parsed is the parser's output: an absolute trigger time plus whatever
// free text followed the time expression.
type Parsed struct {
	TriggerAt time.Time
	Title     string
}

// prefixRe strips an optional "remind me"/"remind" lead-in, tolerant of
// case and extra spacing.
var prefixRe = regexp.MustCompile(`(?i)^\s*remind(?:\s+me)?\b[\s,:]*`)

// A matcher pairs a pattern with its handler. Matchers are evaluated in
// order and the first match wins, which is also how ambiguity between
// patterns is resolved.
type matcher struct {
	re     *regexp.Regexp
	handle func(m []string, now time.Time) Parsed
}

var matchers = []matcher{
	// "tomorrow"/"day after tomorrow" + optional am/pm + hour[:minute] + title.
	// The am/pm token is accepted on either side of the hour ("pm 3" and
	// "3pm" are both common typings).
	{
		re: regexp.MustCompile(`(?i)^(day\s+after\s+tomorrow|tomorrow)\s*(?:at\s+)?(?:(am|pm)\s*)?(\d{1,2})(?:[:.](\d{1,2}))?(?:\s*(am|pm)\b)?\s*(.*)$`),
		handle: func(m []string, now time.Time) Parsed {
			offset := 1
			if strings.HasPrefix(strings.ToLower(m[1]), "day") {
				offset = 2
			}
			hour := toHour24(m[3], m[2], m[5])
			minute := atoiOrZero(m[4])

			base := now.AddDate(0, 0, offset)
			// Out-of-range hours (e.g. 25) roll over via calendar
			// normalization; that leniency is intentional.
			at := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location())
			return Parsed{TriggerAt: at, Title: strings.TrimSpace(m[6])}
		},
	},
	// "M/D" or "M-D" + the same time structure. A date already past this
	// year rolls over to next year.
	{
		re: regexp.MustCompile(`(?i)^(\d{1,2})[/-](\d{1,2})\s*(?:at\s+)?(?:(am|pm)\s*)?(\d{1,2})(?:[:.](\d{1,2}))?(?:\s*(am|pm)\b)?\s*(.*)$`),
		handle: func(m []string, now time.Time) Parsed {
			month := atoiOrZero(m[1])
			day := atoiOrZero(m[2])
			hour := toHour24(m[4], m[3], m[6])
			minute := atoiOrZero(m[5])

			// The year check uses the current time-of-day on the target
			// date, before hour/minute are applied, matching the stored
			// collections produced so far.
			year := now.Year()
			cand := time.Date(year, time.Month(month), day, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
			if cand.Before(now) {
				year++
			}
			at := time.Date(year, time.Month(month), day, hour, minute, 0, 0, now.Location())
			return Parsed{TriggerAt: at, Title: strings.TrimSpace(m[7])}
		},
	},
}

// Parse extracts a time expression and title from free text like
// "remind me tomorrow at 3pm pay the phone bill". ok is false when no
// pattern matches; the caller is responsible for the format hint.
func Parse(text string) (Parsed, bool) {
	return parseAt(text, time.Now())
}

func parseAt(text string, now time.Time) (Parsed, bool) {
	content := strings.TrimSpace(prefixRe.ReplaceAllString(text, ""))
	for _, mt := range matchers {
		if m := mt.re.FindStringSubmatch(content); m != nil {
			return mt.handle(m, now), true
		}
	}
	return Parsed{}, false
}

// toHour24 applies an am/pm token (from either position) to the typed
// hour. "pm" adds 12 when the hour is below 12; "am" and absent tokens
// leave the hour as typed. No range validation happens here.
func toHour24(hourStr, pre, post string) int {
	hour := atoiOrZero(hourStr)
	tok := strings.ToLower(pre)
	if tok == "" {
		tok = strings.ToLower(post)
	}
	if tok == "pm" && hour < 12 {
		hour += 12
	}
	return hour
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
