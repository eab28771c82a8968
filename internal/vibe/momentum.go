package vibe

import "time"

const oneDay = 24 * time.Hour

// computeMomentum fits a least-squares line through the daily averages of
// the trailing MomentumDays (today inclusive). rows must be normalized.
func computeMomentum(rows []DailyAggregate, today time.Time, p Policy) Momentum {
	start := today.AddDate(0, 0, -(p.MomentumDays - 1))
	points := window(rows, start, today.AddDate(0, 0, 1))

	m := Momentum{Direction: TrendStable}
	if len(points) < 2 {
		return m
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, pt := range points {
		x := pt.Date.Sub(start).Hours() / 24
		sumX += x
		sumY += pt.Average
		sumXY += x * pt.Average
		sumXX += x * x
	}
	n := float64(len(points))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return m
	}
	slope := round2((n*sumXY - sumX*sumY) / denom)

	m.Velocity = slope
	switch {
	case slope >= p.MomentumFlat:
		m.Direction = TrendRising
	case slope <= -p.MomentumFlat:
		m.Direction = TrendDeclining
	}
	m.DaysTrending = daysTrending(points, today)
	return m
}

// daysTrending counts consecutive day-over-day moves in the same direction,
// walking back from the latest day. A gap in the calendar, a flat day or a
// sign change ends the streak. A streak whose latest day is older than
// yesterday is stale and counts as zero.
func daysTrending(points []DailyAggregate, today time.Time) int {
	last := points[len(points)-1]
	if today.Sub(last.Date) > oneDay {
		return 0
	}

	streak := 0
	sign := 0
	for i := len(points) - 1; i > 0; i-- {
		cur, prev := points[i], points[i-1]
		if cur.Date.Sub(prev.Date) != oneDay {
			break
		}
		s := signOf(round2(cur.Average) - round2(prev.Average))
		if s == 0 {
			break
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			break
		}
		streak++
	}
	return streak
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
