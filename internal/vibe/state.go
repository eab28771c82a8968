package vibe

import "time"

// DayStateFor maps today's participation rate onto the tri-level band:
// below EmergingRate nothing is shown, below CompleteRate the signal is
// emerging, otherwise the day is complete.
func DayStateFor(rate int, p Policy) DayState {
	switch {
	case rate < p.EmergingRate:
		return DayNoData
	case rate < p.CompleteRate:
		return DaySignalEmerging
	default:
		return DayComplete
	}
}

func participationFor(live, yesterday []DailyAggregate, teamSize int, p Policy) Participation {
	today := sumParticipants(live)
	rate := percent(today, teamSize)
	prevRate := percent(sumParticipants(yesterday), teamSize)

	trend := TrendStable
	switch diff := rate - prevRate; {
	case diff >= p.ParticipationTrendPoints:
		trend = TrendRising
	case diff <= -p.ParticipationTrendPoints:
		trend = TrendDeclining
	}

	return Participation{
		Today:    today,
		TeamSize: teamSize,
		Rate:     rate,
		Trend:    trend,
	}
}

func sumParticipants(rows []DailyAggregate) int {
	n := 0
	for _, r := range rows {
		n += participants(r)
	}
	return n
}

// weekStateFor judges the current calendar week (Monday through today).
// Friday to Sunday count as end of week, where enough distinct days make
// the week complete rather than merely forming.
func weekStateFor(rows []DailyAggregate, today time.Time, p Policy) (WeekState, int) {
	offset := (int(today.Weekday()) + 6) % 7 // days since Monday
	monday := today.AddDate(0, 0, -offset)
	thisWeek := window(rows, monday, today.AddDate(0, 0, 1))

	_, count, uniqueDays := weightedMean(thisWeek)
	if count < p.MinCheckins {
		return WeekNoData, uniqueDays
	}
	if uniqueDays < p.WeekCompleteDays {
		return WeekSignalEmerging, uniqueDays
	}
	if isEndOfWeek(today.Weekday()) {
		return WeekComplete, uniqueDays
	}
	return WeekForming, uniqueDays
}

func isEndOfWeek(d time.Weekday) bool {
	return d == time.Friday || d == time.Saturday || d == time.Sunday
}

// computeMaturity requires volume AND consistency for each rung: days of
// data alone never raise the level.
func computeMaturity(rows []DailyAggregate, teamSize int, p Policy) Maturity {
	daysOfData := len(rows)
	consistent := 0
	if teamSize > 0 {
		for _, r := range rows {
			if participants(r)*100 >= p.ConsistentDayRate*teamSize {
				consistent++
			}
		}
	}
	rate := percent(consistent, daysOfData)

	level := MaturityNew
	for _, th := range p.Maturity {
		if daysOfData >= th.MinDays && rate >= th.MinConsistency {
			level = th.Level
			continue
		}
		break
	}

	return Maturity{
		Level:           level,
		DaysOfData:      daysOfData,
		ConsistencyRate: rate,
	}
}
