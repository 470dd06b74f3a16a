package sources

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IST is the zone listing dates are written in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const monthAlternation = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|` +
	`sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayMonthPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:\s*[-–]\s*\d{1,2})?\s+(` + monthAlternation + `)\b\.?(?:,?\s+(\d{4}))?\b`)
	monthDayPattern = regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\b\.?\s+(\d{1,2})(?:,?\s+(\d{4}))?\b`)
	timePattern     = regexp.MustCompile(`(?i)\b(\d{1,2})[:.](\d{2})\s*(am|pm)?\b`)
	pricePattern    = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr)\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
	digitsPattern   = regexp.MustCompile(`\d+`)
	freePattern     = regexp.MustCompile(`(?i)\bfree\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate finds the first date in text. Dates without a year take the year of now, or the
// next one when the month has already passed. The bool is false when no valid date is found.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	now = now.In(IST)

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return makeDate(y, time.Month(mo), d)
	}

	var day, year int
	var month time.Month

	if m := dayMonthPattern.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[strings.ToLower(m[2][:3])]
		year, _ = strconv.Atoi(m[3])
	} else if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month = months[strings.ToLower(m[1][:3])]
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, false
	}

	if year != 0 {
		return makeDate(year, month, day)
	}

	date, ok := makeDate(now.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, IST)
	if date.Before(today) && month < now.Month() {
		return makeDate(now.Year()+1, month, day)
	}
	return date, true
}

func looksLikeDate(text string) bool {
	return isoDatePattern.MatchString(text) || dayMonthPattern.MatchString(text) || monthDayPattern.MatchString(text)
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, IST)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

// ParseTime returns the first clock time in text as HH:MM:SS, or "".
func ParseTime(text string) string {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:00", hour, minute)
}

// ParsePrice returns the first rupee amount in text.
func ParsePrice(text string) (float64, bool) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// digitsPrice reads every digit in text as one number, for price labels without a currency.
func digitsPrice(text string) float64 {
	v, err := strconv.ParseFloat(strings.Join(digitsPattern.FindAllString(text, -1), ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// IsFree reports whether text advertises free entry.
func IsFree(text string) bool {
	return freePattern.MatchString(text)
}

// absoluteURL resolves href against base. Protocol-relative links get https.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// lastSegment returns the final path segment of a URL.
func lastSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimSuffix(u.Path, "/"))
	if seg == "/" || seg == "." {
		return ""
	}
	return seg
}
