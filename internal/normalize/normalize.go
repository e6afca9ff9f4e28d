// Package normalize turns raw spreadsheet and mobile-money statement
// strings into typed values. All normalizers are lenient: a malformed
// value yields a zero/fallback result rather than an error, so one bad
// cell never aborts a batch.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCountryCode is the dialing code prepended to local numbers.
const DefaultCountryCode = "256"

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// Currency parses a free-text amount like "10,000/=" or "UGX 5,000"
// into a decimal. Everything that is not a digit, '.' or '-' is
// stripped before parsing. Unparseable or empty input yields zero.
func Currency(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Date parses the date formats seen in legacy ledgers:
//
//	"27/02/25 Thursday"  slash form, optional trailing weekday
//	"15th May 2025"      ordinal day, month name, 4-digit year
//	"2025-02-27"         general fallbacks
//
// Anything unrecognised resolves to now, so a bad row keeps its batch
// alive at the cost of an approximate date.
func Date(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}

	if t, ok := parseSlashDate(s); ok {
		return t
	}
	if t, ok := parseOrdinalDate(s); ok {
		return t
	}
	for _, layout := range []string{"2006-01-02", "January 2, 2006", "2 January 2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// parseSlashDate handles "DD/MM/YY[YY]" with optional trailing text.
func parseSlashDate(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if len(parts[2]) <= 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// parseOrdinalDate handles "15th May 2025" and "3 Jan 2024".
func parseOrdinalDate(s string) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return time.Time{}, false
	}
	dayStr := strings.TrimRightFunc(fields[0], func(r rune) bool {
		return r < '0' || r > '9'
	})
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := monthNames[strings.ToLower(fields[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil || len(fields[2]) != 4 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// Phone canonicalises a free-text phone number to international digit
// form for match comparisons. Storage keeps the original text.
func Phone(s, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case len(digits) == 9:
		return countryCode + digits
	default:
		return digits
	}
}
