package wow

import (
	"fmt"
	"sort"
	"strings"
)

// Synthesize turns a session's responses into its outcome. It is a pure
// function: the same statements and responses always give the same result.
//
// Below MinResponses respondents with a valid answer the result is
// "collecting": no overall score, no strengths or tensions, no focus. A
// partial sample must never be shown as if it were the team's view.
func Synthesize(statements []Statement, responses []Response, p Policy) SynthesisResult {
	scores, drops := Aggregate(statements, responses)
	res := SynthesisResult{
		Status:         SynthesisCollecting,
		ResponseCount:  len(responses),
		ValidResponses: Respondents(statements, responses),
		DroppedAnswers: drops.Total(),
		Drops:          drops,
	}
	if res.ValidResponses < p.MinResponses || len(scores) == 0 {
		return res
	}

	sortScores(scores)
	res.Status = SynthesisScored
	res.AllScores = scores
	res.OverallScore = overallScore(scores)

	ns, nt := splitCounts(len(scores), p)
	res.Strengths = append([]StatementScore(nil), scores[:ns]...)
	res.Tensions = append([]StatementScore(nil), scores[len(scores)-nt:]...)
	sort.SliceStable(res.Tensions, func(i, j int) bool {
		return lessAscending(res.Tensions[i], res.Tensions[j])
	})

	for _, s := range scores {
		if s.Variance > p.DisagreementVariance {
			res.DisagreementCount++
		}
	}
	res.Caveat = CaveatConfident
	if res.DisagreementCount > 0 {
		res.Caveat = CaveatFacilitate
	}

	res.FocusArea = focusFor(scores, res.DisagreementCount, p)
	if res.FocusArea != nil {
		res.SuggestedExperiment = ExperimentFor(res.FocusArea.Angle, BandFor(res.FocusArea.Score, p))
	}
	return res
}

// sortScores orders by score descending; ties go to the lower variance
// (more consensus), then to the statement id.
func sortScores(scores []StatementScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Variance != b.Variance {
			return a.Variance < b.Variance
		}
		return a.Statement.ID < b.Statement.ID
	})
}

func lessAscending(a, b StatementScore) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.Variance != b.Variance {
		return a.Variance < b.Variance
	}
	return a.Statement.ID < b.Statement.ID
}

// splitCounts sizes strengths and tensions so they never overlap.
// Strengths take the upper half, rounded up.
func splitCounts(n int, p Policy) (strengths, tensions int) {
	strengths = min((n+1)/2, p.MaxStrengths)
	tensions = min(n-strengths, p.MaxTensions)
	return strengths, tensions
}

// overallScore is the mean of every valid individual answer, not the mean
// of statement means.
func overallScore(scores []StatementScore) *float64 {
	var sum float64
	n := 0
	for _, s := range scores {
		for k, c := range s.Distribution {
			sum += float64((k + 1) * c)
			n += c
		}
	}
	if n == 0 {
		return nil
	}
	v := round2(sum / float64(n))
	return &v
}

// focusFor picks the dominant angle of the lowest-scoring cluster: every
// statement within ClusterGap of the minimum. scores must be sorted.
func focusFor(scores []StatementScore, disagreement int, p Policy) *FocusArea {
	if len(scores) == 0 {
		return nil
	}
	floor := scores[len(scores)-1].Score

	type bucket struct {
		ids []string
		sum float64
	}
	buckets := map[Angle]*bucket{}
	for i := len(scores) - 1; i >= 0; i-- {
		s := scores[i]
		if round2(s.Score-floor) > p.ClusterGap {
			break
		}
		b, ok := buckets[s.Statement.Angle]
		if !ok {
			b = &bucket{}
			buckets[s.Statement.Angle] = b
		}
		b.ids = append(b.ids, s.Statement.ID)
		b.sum += s.Score
	}

	var (
		best     Angle
		bestB    *bucket
		bestMean float64
	)
	for _, a := range sortedAngles(buckets) {
		b := buckets[a]
		mean := b.sum / float64(len(b.ids))
		switch {
		case bestB == nil,
			len(b.ids) > len(bestB.ids),
			len(b.ids) == len(bestB.ids) && mean < bestMean:
			best, bestB, bestMean = a, b, mean
		}
	}

	score := round2(bestMean)
	return &FocusArea{
		Angle:        best,
		StatementIDs: bestB.ids,
		Score:        score,
		Text:         focusText(best, bestB.ids, scores, score, disagreement),
	}
}

func sortedAngles[V any](m map[Angle]V) []Angle {
	out := make([]Angle, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return angleIndex(out[i]) < angleIndex(out[j]) })
	return out
}

func focusText(a Angle, ids []string, scores []StatementScore, score float64, disagreement int) string {
	var b strings.Builder
	if len(ids) == 1 {
		text := ids[0]
		for _, s := range scores {
			if s.Statement.ID == ids[0] {
				text = s.Statement.Text
				break
			}
		}
		fmt.Fprintf(&b, "%s: one weak spot, %q (%.1f)", a.Label(), text, score)
	} else if disagreement == 0 {
		fmt.Fprintf(&b, "%s: the team agrees this is the weakest area (%d statements, avg %.1f)", a.Label(), len(ids), score)
	} else {
		fmt.Fprintf(&b, "%s: lowest-scoring area (%d statements, avg %.1f)", a.Label(), len(ids), score)
	}
	if disagreement > 0 {
		b.WriteString("; views differ, discuss before acting")
	}
	return b.String()
}
