package intent

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/ru"
)

// defaultClock is the time of day used when a message names a day but no time.
const defaultClock = 9 * time.Hour

// genitiveMonths maps Russian month names as used after a day number
// ("25 октября") to their month.
var genitiveMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var relativeDays = map[string]int{
	"сегодня":     0,
	"завтра":      1,
	"послезавтра": 2,
}

// Go's \b only knows ASCII letters, so word edges are spelled out.
var (
	numericDateRe = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2})\.(\d{1,2})(?:\.(\d{4}|\d{2}))?(?:[^\d]|$)`)
	monthDateRe   = regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(\d{1,2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)(?:\s+(\d{4}))?(?:[^\p{L}\d]|$)`)
	relativeDayRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(послезавтра|завтра|сегодня)(?:[^\p{L}]|$)`)
	timeMarkerRe  = regexp.MustCompile(`(?i)(?:^|[^\p{L}])в\s+$`)
)

// whenParser is the default DateParser. A calendar day ("25.10", "1 ноября",
// "послезавтра") is found first and cut out of the text; olebedev/when with
// Russian, English and language-neutral rules then reads the rest for the
// time of day or a relative offset.
type whenParser struct {
	w *when.Parser
}

// NewDateParser returns a fuzzy natural-language DateParser.
func NewDateParser() DateParser {
	w := when.New(nil)
	w.Add(ru.All...)
	w.Add(en.All...)
	w.Add(common.All...)
	return &whenParser{w: w}
}

// Parse implements DateParser.
func (p *whenParser) Parse(text string, base time.Time) (time.Time, bool) {
	day, rest, hasDay := findDay(text, base)

	r, err := p.w.Parse(rest, base)
	if err != nil {
		slog.Debug("date parse failed", "error", err)
		r = nil
	}

	switch {
	case hasDay && r != nil:
		return atClock(day, r.Time), true
	case hasDay:
		return day.Add(defaultClock), true
	case r != nil:
		return r.Time, true
	default:
		return time.Time{}, false
	}
}

// findDay looks for an explicit calendar day in text. It returns midnight of
// that day in base's location and the lowercased text with the day
// expression blanked out.
func findDay(text string, base time.Time) (time.Time, string, bool) {
	lowered := strings.ToLower(text)
	text = lowered

	if m := numericDateRe.FindStringSubmatchIndex(lowered); m != nil && !timeMarkerRe.MatchString(lowered[:m[2]]) {
		day, _ := strconv.Atoi(lowered[m[2]:m[3]])
		month, _ := strconv.Atoi(lowered[m[4]:m[5]])
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(lowered[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		if t, ok := calendarDay(year, time.Month(month), day, base); ok {
			return t, blank(text, m[2], spanEnd(m)), true
		}
	}

	if m := monthDateRe.FindStringSubmatchIndex(lowered); m != nil {
		day, _ := strconv.Atoi(lowered[m[2]:m[3]])
		month := genitiveMonths[lowered[m[4]:m[5]]]
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(lowered[m[6]:m[7]])
		}
		if t, ok := calendarDay(year, month, day, base); ok {
			return t, blank(text, m[2], spanEnd(m)), true
		}
	}

	if m := relativeDayRe.FindStringSubmatchIndex(lowered); m != nil {
		offset := relativeDays[lowered[m[2]:m[3]]]
		y, mo, d := base.Date()
		return time.Date(y, mo, d+offset, 0, 0, 0, 0, base.Location()), blank(text, m[2], m[3]), true
	}

	return time.Time{}, text, false
}

// spanEnd returns the end of the last matched capture group.
func spanEnd(m []int) int {
	end := m[3]
	for i := 5; i < len(m); i += 2 {
		if m[i] > end {
			end = m[i]
		}
	}
	return end
}

// calendarDay validates a day and fills in the year. Without a year, a day
// already behind base is taken to mean next year.
func calendarDay(year int, month time.Month, day int, base time.Time) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	explicit := year > 0
	if !explicit {
		year = base.Year()
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, base.Location())
	if t.Day() != day {
		return time.Time{}, false // 31.02 and friends
	}
	if !explicit {
		y, m, d := base.Date()
		if t.Before(time.Date(y, m, d, 0, 0, 0, 0, base.Location())) {
			t = t.AddDate(1, 0, 0)
		}
	}
	return t, true
}

// atClock returns day with the hour and minute of clock.
func atClock(day, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location())
}

// blank replaces text[start:end] with spaces so the remaining offsets and
// word boundaries stay intact.
func blank(text string, start, end int) string {
	return text[:start] + strings.Repeat(" ", end-start) + text[end:]
}
