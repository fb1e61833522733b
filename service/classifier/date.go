package classifier

import (
	"fmt"
	"strings"
	"time"
)

type relativeDate struct {
	pattern string
	resolve func(now time.Time) time.Time
}

// relativeDates is ordered so that a longer phrase is tried before any phrase it contains.
var relativeDates = buildRelativeDates()

func buildRelativeDates() []relativeDate {
	ret := []relativeDate{
		{"大后天", daysLater(3)},
		{"后天", daysLater(2)},
		{"明天", daysLater(1)},
		{"今天", daysLater(0)},
		{"day after tomorrow", daysLater(2)},
		{"tomorrow", daysLater(1)},
		{"today", daysLater(0)},
	}
	weekdays := []string{"一", "二", "三", "四", "五", "六", "日"}
	for i, name := range weekdays[:5] {
		ret = append(ret, relativeDate{"下下周" + name, weekdayIn(i, 2)})
	}
	for i, name := range weekdays {
		ret = append(ret, relativeDate{"下周" + name, weekdayIn(i, 1)})
	}
	for i, name := range weekdays {
		ret = append(ret, relativeDate{"本周" + name, weekdayIn(i, 0)})
	}
	return append(ret,
		relativeDate{"两周后", daysLater(14)},
		relativeDate{"一周后", daysLater(7)},
		relativeDate{"in two weeks", daysLater(14)},
		relativeDate{"in a week", daysLater(7)},
		relativeDate{"下个月", firstOfNextMonth},
		relativeDate{"next month", firstOfNextMonth},
		relativeDate{"月底", endOfMonth},
		relativeDate{"end of month", endOfMonth},
		relativeDate{"月初", firstOfNextMonth},
		relativeDate{"季末", endOfQuarter},
		relativeDate{"end of quarter", endOfQuarter},
		relativeDate{"下季度", nextQuarter},
		relativeDate{"next quarter", nextQuarter},
	)
}

// resolveRelativeDate returns the first relative date phrase in text resolved
// against now, or nil.
func resolveRelativeDate(text string, now time.Time) map[string]interface{} {
	lower := strings.ToLower(text)
	for _, candidate := range relativeDates {
		if !strings.Contains(lower, candidate.pattern) {
			continue
		}
		target := candidate.resolve(now)
		return map[string]interface{}{
			"original":  candidate.pattern,
			"resolved":  target.Format("2006-01-02"),
			"formatted": fmt.Sprintf("%d月%d日", int(target.Month()), target.Day()),
		}
	}
	return nil
}

func daysLater(days int) func(time.Time) time.Time {
	return func(now time.Time) time.Time { return now.AddDate(0, 0, days) }
}

// weekdayIn resolves the weekday (0 = Monday) weeks ahead of the current week.
func weekdayIn(weekday, weeks int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		today := (int(now.Weekday()) + 6) % 7
		return now.AddDate(0, 0, weekday-today+7*weeks)
	}
}

func firstOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

func endOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
}

func endOfQuarter(now time.Time) time.Time {
	last := ((int(now.Month())-1)/3 + 1) * 3
	return time.Date(now.Year(), time.Month(last+1), 0, 0, 0, 0, 0, now.Location())
}

func nextQuarter(now time.Time) time.Time {
	first := ((int(now.Month())-1)/3+1)*3 + 1
	return time.Date(now.Year(), time.Month(first), 1, 0, 0, 0, 0, now.Location())
}
