package vibe

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar-date format used in outputs and storage.
const DateLayout = "2006-01-02"

// Compute produces the full TeamMetrics for one team. rows may cover any
// lookback; windows are cut from calendar dates relative to today, so the
// result does not depend on the time of day of the call.
//
// expectedTeamSize is the owner-configured size; zero falls back to the
// largest number of distinct participants seen in rows.
func Compute(rows []DailyAggregate, today time.Time, expectedTeamSize int, p Policy) TeamMetrics {
	today = DayOf(today)
	days := normalize(rows)
	teamSize := TeamSize(expectedTeamSize, days)

	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	live := window(days, today, tomorrow)
	day := window(days, yesterday, today)
	dayBefore := window(days, today.AddDate(0, 0, -2), yesterday)
	week := window(days, today.AddDate(0, 0, -7), today)
	prevWeek := window(days, today.AddDate(0, 0, -14), today.AddDate(0, 0, -7))
	twoWeeksBack := window(days, today.AddDate(0, 0, -21), today.AddDate(0, 0, -14))

	participation := participationFor(live, day, teamSize, p)
	weekState, uniqueDays := weekStateFor(days, today, p)
	weekVibe := BuildMetric(week, prevWeek, teamSize, 7, p)

	return TeamMetrics{
		ComputedFor:        today.Format(DateLayout),
		LiveVibe:           BuildMetric(live, day, teamSize, 1, p),
		DayVibe:            BuildMetric(day, dayBefore, teamSize, 1, p),
		WeekVibe:           weekVibe,
		PreviousWeekVibe:   BuildMetric(prevWeek, twoWeeksBack, teamSize, 7, p),
		Momentum:           computeMomentum(days, today, p),
		Participation:      participation,
		DayState:           DayStateFor(participation.Rate, p),
		WeekState:          weekState,
		UniqueDaysThisWeek: uniqueDays,
		Maturity:           computeMaturity(days, teamSize, p),
		HasEnoughData:      weekVibe.Count >= p.MinCheckins,
	}
}

// BuildMetric scores the current window and compares it with the
// equivalent previous window. spanDays is the calendar length of the
// window and scales the coverage needed for confidence.
func BuildMetric(current, previous []DailyAggregate, teamSize, spanDays int, p Policy) Metric {
	value, count, distinctDays := weightedMean(current)
	m := Metric{
		Trend:      TrendStable,
		Confidence: ConfidenceLow,
		Count:      count,
	}
	if count < p.MinCheckins {
		return m
	}

	v := round2(value)
	m.Value = &v
	m.Zone = ZoneFor(v)
	m.Confidence = confidenceFor(count, distinctDays, teamSize, spanDays, p)

	prevValue, prevCount, _ := weightedMean(previous)
	if prevCount >= p.MinCheckins {
		m.Delta = round2(v - round2(prevValue))
		m.Trend = trendFor(m.Delta, p.TrendThreshold)
	}
	return m
}

func confidenceFor(count, distinctDays, teamSize, spanDays int, p Policy) Confidence {
	if teamSize <= 0 || spanDays <= 0 {
		return ConfidenceLow
	}
	coverage := float64(count) / float64(teamSize*spanDays)
	needDays := p.HighConfidenceDays
	if spanDays < needDays {
		needDays = spanDays
	}
	switch {
	case coverage >= p.HighCoverage && distinctDays >= needDays:
		return ConfidenceHigh
	case coverage >= p.ModerateCoverage:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

func trendFor(delta, threshold float64) Trend {
	switch {
	case delta >= threshold:
		return TrendRising
	case delta <= -threshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// weightedMean averages the day averages weighted by their check-in count,
// so a busy day counts for more than a quiet one.
func weightedMean(rows []DailyAggregate) (mean float64, count, distinctDays int) {
	var sum float64
	for _, r := range rows {
		if r.Count <= 0 {
			continue
		}
		sum += r.Average * float64(r.Count)
		count += r.Count
		distinctDays++
	}
	if count == 0 {
		return 0, 0, 0
	}
	return sum / float64(count), count, distinctDays
}

// normalize truncates dates to UTC days, merges rows that share a day and
// returns them sorted by date.
func normalize(rows []DailyAggregate) []DailyAggregate {
	byDay := make(map[time.Time]DailyAggregate, len(rows))
	for _, r := range rows {
		if r.Count <= 0 {
			continue
		}
		d := DayOf(r.Date)
		cur, ok := byDay[d]
		if !ok {
			r.Date = d
			byDay[d] = r
			continue
		}
		total := cur.Count + r.Count
		cur.Average = (cur.Average*float64(cur.Count) + r.Average*float64(r.Count)) / float64(total)
		cur.Count = total
		cur.ParticipantCount += r.ParticipantCount
		byDay[d] = cur
	}

	out := make([]DailyAggregate, 0, len(byDay))
	for _, r := range byDay {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// window returns the rows whose day falls in [from, to). rows must be normalized.
func window(rows []DailyAggregate, from, to time.Time) []DailyAggregate {
	var out []DailyAggregate
	for _, r := range rows {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, r)
		}
	}
	return out
}

// TeamSize is the expected size or, when that is unknown, the largest
// daily participation seen in rows. Rows without a participant count fall
// back to their check-in count.
func TeamSize(expected int, rows []DailyAggregate) int {
	if expected > 0 {
		return expected
	}
	largest := 0
	for _, r := range normalize(rows) {
		if n := participants(r); n > largest {
			largest = n
		}
	}
	return largest
}

func participants(r DailyAggregate) int {
	if r.ParticipantCount > 0 {
		return r.ParticipantCount
	}
	return r.Count
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	v := int(math.Round(float64(part) * 100 / float64(whole)))
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
