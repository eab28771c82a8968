package wow

// catalog is the static statement bank. Two shu, two ha and one ri item
// per angle. IDs are stable: they key stored answers.
var catalog = []Statement{
	// Flow
	{ID: "flow-shu-1", Angle: AngleFlow, Level: LevelShu, Text: "We finish work items before starting new ones."},
	{ID: "flow-shu-2", Angle: AngleFlow, Level: LevelShu, Text: "Blocked work is visible to the whole team within a day."},
	{ID: "flow-ha-1", Angle: AngleFlow, Level: LevelHa, Text: "We limit work in progress and the limits actually change our behaviour."},
	{ID: "flow-ha-2", Angle: AngleFlow, Level: LevelHa, Text: "We know our cycle time and use it when forecasting."},
	{ID: "flow-ri-1", Angle: AngleFlow, Level: LevelRi, Text: "We redesign our workflow when the data tells us it no longer fits."},

	// Ownership
	{ID: "ownership-shu-1", Angle: AngleOwnership, Level: LevelShu, Text: "Everyone knows who is working on what."},
	{ID: "ownership-shu-2", Angle: AngleOwnership, Level: LevelShu, Text: "When something breaks, someone picks it up without being asked."},
	{ID: "ownership-ha-1", Angle: AngleOwnership, Level: LevelHa, Text: "We decide how to do the work ourselves instead of waiting for instructions."},
	{ID: "ownership-ha-2", Angle: AngleOwnership, Level: LevelHa, Text: "We own what we ship all the way into production."},
	{ID: "ownership-ri-1", Angle: AngleOwnership, Level: LevelRi, Text: "We challenge goals we believe are wrong and propose better ones."},

	// Retro
	{ID: "retro-shu-1", Angle: AngleRetro, Level: LevelShu, Text: "Our retrospectives happen regularly."},
	{ID: "retro-shu-2", Angle: AngleRetro, Level: LevelShu, Text: "I can say what I really think in a retrospective."},
	{ID: "retro-ha-1", Angle: AngleRetro, Level: LevelHa, Text: "Actions from retrospectives get done."},
	{ID: "retro-ha-2", Angle: AngleRetro, Level: LevelHa, Text: "We change the retrospective format when it stops producing insight."},
	{ID: "retro-ri-1", Angle: AngleRetro, Level: LevelRi, Text: "We improve continuously, not only when a retrospective is scheduled."},

	// Collaboration
	{ID: "collaboration-shu-1", Angle: AngleCollaboration, Level: LevelShu, Text: "I can ask a teammate for help without hesitation."},
	{ID: "collaboration-shu-2", Angle: AngleCollaboration, Level: LevelShu, Text: "We review each other's work quickly."},
	{ID: "collaboration-ha-1", Angle: AngleCollaboration, Level: LevelHa, Text: "We pair or swarm on hard problems."},
	{ID: "collaboration-ha-2", Angle: AngleCollaboration, Level: LevelHa, Text: "Knowledge is spread so nobody is a single point of failure."},
	{ID: "collaboration-ri-1", Angle: AngleCollaboration, Level: LevelRi, Text: "We collaborate across team boundaries as naturally as within the team."},

	// Quality
	{ID: "quality-shu-1", Angle: AngleQuality, Level: LevelShu, Text: "We agree on what done means."},
	{ID: "quality-shu-2", Angle: AngleQuality, Level: LevelShu, Text: "Bugs we ship are rare and get fixed fast."},
	{ID: "quality-ha-1", Angle: AngleQuality, Level: LevelHa, Text: "Automated tests give us the confidence to change code."},
	{ID: "quality-ha-2", Angle: AngleQuality, Level: LevelHa, Text: "We pay down technical debt as part of normal work."},
	{ID: "quality-ri-1", Angle: AngleQuality, Level: LevelRi, Text: "Quality is designed in; we rarely rely on inspection to find problems."},

	// Refinement
	{ID: "refinement-shu-1", Angle: AngleRefinement, Level: LevelShu, Text: "Work items are clear enough to start when we pick them up."},
	{ID: "refinement-shu-2", Angle: AngleRefinement, Level: LevelShu, Text: "We split large items into smaller ones."},
	{ID: "refinement-ha-1", Angle: AngleRefinement, Level: LevelHa, Text: "The whole team takes part in refinement, not just a few people."},
	{ID: "refinement-ha-2", Angle: AngleRefinement, Level: LevelHa, Text: "Acceptance criteria are agreed before work starts."},
	{ID: "refinement-ri-1", Angle: AngleRefinement, Level: LevelRi, Text: "We shape problems with users before we shape solutions."},

	// Planning
	{ID: "planning-shu-1", Angle: AnglePlanning, Level: LevelShu, Text: "I know what the team is trying to achieve this iteration."},
	{ID: "planning-shu-2", Angle: AnglePlanning, Level: LevelShu, Text: "Our plans are realistic."},
	{ID: "planning-ha-1", Angle: AnglePlanning, Level: LevelHa, Text: "We adapt the plan when we learn something new, without drama."},
	{ID: "planning-ha-2", Angle: AnglePlanning, Level: LevelHa, Text: "Dependencies on other teams are known before we commit."},
	{ID: "planning-ri-1", Angle: AnglePlanning, Level: LevelRi, Text: "We plan around outcomes rather than output."},

	// Learning
	{ID: "learning-shu-1", Angle: AngleLearning, Level: LevelShu, Text: "I have time to learn on the job."},
	{ID: "learning-shu-2", Angle: AngleLearning, Level: LevelShu, Text: "We share what we learn with each other."},
	{ID: "learning-ha-1", Angle: AngleLearning, Level: LevelHa, Text: "We run small experiments to test ideas before committing to them."},
	{ID: "learning-ha-2", Angle: AngleLearning, Level: LevelHa, Text: "Mistakes are treated as chances to learn, not to blame."},
	{ID: "learning-ri-1", Angle: AngleLearning, Level: LevelRi, Text: "We teach other teams what works for us."},
}

// Catalog returns a copy of the full statement bank.
func Catalog() []Statement {
	out := make([]Statement, len(catalog))
	copy(out, catalog)
	return out
}

// StatementsFor returns the statements a session of the given angle and
// level asks: every statement of that angle at or below the session level.
func StatementsFor(angle Angle, level Level) []Statement {
	var out []Statement
	for _, s := range catalog {
		if s.Angle == angle && s.Level.Rank() <= level.Rank() {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a statement by id.
func Lookup(id string) (Statement, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Statement{}, false
}
