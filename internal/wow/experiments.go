package wow

// Band buckets a focus score for experiment lookup.
type Band int

const (
	BandLow Band = iota
	BandMid
	BandHigh
	numBands
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMid:
		return "mid"
	case BandHigh:
		return "high"
	default:
		return "unknown"
	}
}

// BandFor places a score: low below LowBandBelow, high from HighBandFrom.
func BandFor(score float64, p Policy) Band {
	switch {
	case score < p.LowBandBelow:
		return BandLow
	case score < p.HighBandFrom:
		return BandMid
	default:
		return BandHigh
	}
}

// experiments maps (angle, band) to one concrete, small experiment.
// Every cell must be filled; see TestExperimentTableComplete.
var experiments = map[Angle][numBands]string{
	AngleFlow: {
		BandLow:  "Set a WIP limit of one item per person for the next two weeks and make blocked items red on the board.",
		BandMid:  "Hold a 10-minute board walk each day, right to left, asking only what it takes to finish each item.",
		BandHigh: "Measure cycle time for the next ten items and review the slowest one together.",
	},
	AngleOwnership: {
		BandLow:  "Give every open item a named owner at stand-up and revisit unowned items daily.",
		BandMid:  "Let the team pick the approach for the next feature without outside sign-off, then review the result.",
		BandHigh: "Rotate on-call for what you ship and discuss one production learning per week.",
	},
	AngleRetro: {
		BandLow:  "Run the next retrospective with anonymous sticky notes and a single agreed action.",
		BandMid:  "Start each retrospective by checking the previous actions before collecting new topics.",
		BandHigh: "Try a new retrospective format chosen by a different team member each time.",
	},
	AngleCollaboration: {
		BandLow:  "Agree a same-day review rule: any pull request older than four hours gets a reviewer at stand-up.",
		BandMid:  "Pair on one item per week, rotating pairs so everyone works with everyone.",
		BandHigh: "Invite a neighbouring team to swarm with you on one shared problem.",
	},
	AngleQuality: {
		BandLow:  "Write down the definition of done together and check every item against it before closing.",
		BandMid:  "Add a test for every bug fixed this iteration before the fix is merged.",
		BandHigh: "Reserve a fixed slice of each iteration for technical debt the team chooses.",
	},
	AngleRefinement: {
		BandLow:  "Refuse to start any item without acceptance criteria for one iteration and note what changes.",
		BandMid:  "Run a short refinement session where every item is split until it fits in two days.",
		BandHigh: "Bring a user or their proxy into one refinement session and start from the problem, not the ticket.",
	},
	AnglePlanning: {
		BandLow:  "Commit to one clear iteration goal and write it where everyone sees it daily.",
		BandMid:  "Plan to 70% capacity for one iteration and track what the slack was used for.",
		BandHigh: "Frame the next plan as outcomes with a measurable signal instead of a feature list.",
	},
	AngleLearning: {
		BandLow:  "Protect one hour per person per week for learning and share one takeaway at the retrospective.",
		BandMid:  "Run a blameless review of the last mistake and publish what you learned.",
		BandHigh: "Design one small experiment with a hypothesis and a stop date before the next iteration.",
	},
}

// ExperimentFor returns the suggested experiment for an angle and band.
func ExperimentFor(a Angle, b Band) string {
	row, ok := experiments[a]
	if !ok || b < 0 || b >= numBands {
		return ""
	}
	return row[b]
}
