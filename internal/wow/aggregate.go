package wow

import "math"

// Drops counts answers excluded from aggregation.
type Drops struct {
	OutOfRange       int `json:"out_of_range"`
	UnknownStatement int `json:"unknown_statement"`
}

// Total returns the number of dropped answers.
func (d Drops) Total() int { return d.OutOfRange + d.UnknownStatement }

// Aggregate folds responses into one score per statement, in the order the
// statements are given. Answers outside 1..5 or keyed by an id that is not
// among statements are dropped and counted; they never reach a score.
// Statements nobody answered are omitted.
func Aggregate(statements []Statement, responses []Response) ([]StatementScore, Drops) {
	index := make(map[string]int, len(statements))
	for i, s := range statements {
		index[s.ID] = i
	}

	dist := make([][5]int, len(statements))
	var drops Drops
	for _, r := range responses {
		for id, v := range r.Answers {
			i, ok := index[id]
			if !ok {
				drops.UnknownStatement++
				continue
			}
			if v < 1 || v > 5 {
				drops.OutOfRange++
				continue
			}
			dist[i][v-1]++
		}
	}

	var out []StatementScore
	for i, s := range statements {
		score, n, variance := distributionStats(dist[i])
		if n == 0 {
			continue
		}
		out = append(out, StatementScore{
			Statement:     s,
			Score:         round2(score),
			ResponseCount: n,
			Distribution:  dist[i],
			Variance:      round2(variance),
		})
	}
	return out, drops
}

// Respondents counts the responses that carry at least one valid answer.
// A response whose answers were all dropped speaks for nobody.
func Respondents(statements []Statement, responses []Response) int {
	known := make(map[string]bool, len(statements))
	for _, s := range statements {
		known[s.ID] = true
	}
	n := 0
	for _, r := range responses {
		for id, v := range r.Answers {
			if known[id] && v >= 1 && v <= 5 {
				n++
				break
			}
		}
	}
	return n
}

// distributionStats returns the mean, count and population variance of a
// 1..5 histogram.
func distributionStats(d [5]int) (mean float64, n int, variance float64) {
	var sum float64
	for k, c := range d {
		n += c
		sum += float64((k + 1) * c)
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)
	for k, c := range d {
		diff := float64(k+1) - mean
		variance += float64(c) * diff * diff
	}
	variance /= float64(n)
	return mean, n, variance
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
