package neighbor

import (
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
)

// updater names registered by CrossoverUpdaters.
const (
	UpdaterPopulation         = "population"
	UpdaterMinorityPopulation = "minority_population"
	UpdaterMinorityVotes      = "minority_votes"
	UpdaterMajorityVotes      = "majority_votes"
	UpdaterGroupMinorityVotes = "group_minority_votes"
	UpdaterGroupMajorityVotes = "group_majority_votes"
	UpdaterMeanClass          = "mean_class"
	UpdaterClasses            = "classes"
	UpdaterLead               = "lead"
	UpdaterCrossover          = "crossover"
)

// VoteAttributes. node attribute names used by the crossover model.
type VoteAttributes struct {
	Population    string
	Class         string
	MinorityFlag  string
	MinorityVotes string
	MajorityVotes string

	// derived by PrepareVotes: the same values restricted to minority-classified nodes
	MinorityPopulation string
	GroupMinorityVotes string
	GroupMajorityVotes string
}

func DefaultVoteAttributes() VoteAttributes {
	return VoteAttributes{
		Population:         "population",
		Class:              "class",
		MinorityFlag:       "minority",
		MinorityVotes:      "minority_votes",
		MajorityVotes:      "majority_votes",
		MinorityPopulation: "minority_population",
		GroupMinorityVotes: "group_minority_votes",
		GroupMajorityVotes: "group_majority_votes",
	}
}

// PrepareVotes classifies nodes as minority (class >= cutoff), synthesizes votes from population when
// synthesize is set, and derives the minority-only attributes the crossover updaters tally.
func PrepareVotes(g *da.Graph, attrs VoteAttributes, cutoff, crossoverPercent float64, synthesize bool) {
	g.ClassifyMinority(attrs.Class, cutoff, attrs.MinorityFlag)
	if synthesize {
		g.SynthesizeVotes(attrs.Population, attrs.MinorityFlag, crossoverPercent, attrs.MinorityVotes, attrs.MajorityVotes)
	}
	g.MaskAttribute(attrs.Population, attrs.MinorityFlag, attrs.MinorityPopulation)
	g.MaskAttribute(attrs.MinorityVotes, attrs.MinorityFlag, attrs.GroupMinorityVotes)
	g.MaskAttribute(attrs.MajorityVotes, attrs.MinorityFlag, attrs.GroupMajorityVotes)
}

// IsCrossover. the minority-classified units prefer the minority candidate and that candidate wins the
// whole district. ties go to the minority candidate. a district without minority votes is never
// crossover, and neither is one where both the group and the district prefer the majority candidate.
func IsCrossover(minorityVotes, majorityVotes, groupMinorityVotes, groupMajorityVotes float64) bool {
	if groupMinorityVotes+groupMajorityVotes <= 0 {
		return false
	}
	groupPrefersMinority := groupMinorityVotes >= groupMajorityVotes
	minorityWins := minorityVotes >= majorityVotes
	return groupPrefersMinority && minorityWins
}

// CrossoverUpdaters declares the per-district aggregates of the crossover model.
func CrossoverUpdaters(attrs VoteAttributes) []partition.UpdaterSpec {
	return []partition.UpdaterSpec{
		{Name: UpdaterPopulation, Kind: partition.Tally, Attribute: attrs.Population},
		{Name: UpdaterMinorityPopulation, Kind: partition.Tally, Attribute: attrs.MinorityPopulation},
		{Name: UpdaterMinorityVotes, Kind: partition.Tally, Attribute: attrs.MinorityVotes},
		{Name: UpdaterMajorityVotes, Kind: partition.Tally, Attribute: attrs.MajorityVotes},
		{Name: UpdaterGroupMinorityVotes, Kind: partition.Tally, Attribute: attrs.GroupMinorityVotes},
		{Name: UpdaterGroupMajorityVotes, Kind: partition.Tally, Attribute: attrs.GroupMajorityVotes},
		{Name: UpdaterMeanClass, Kind: partition.WeightedMean, Attribute: attrs.Class, WeightAttribute: attrs.Population},
		{Name: UpdaterClasses, Kind: partition.Histogram, Attribute: attrs.Class},
		{
			Name:      UpdaterLead,
			Kind:      partition.Derived,
			DependsOn: []string{UpdaterMinorityVotes, UpdaterMajorityVotes},
			Derive: func(deps []partition.Value) partition.Value {
				return partition.Number(deps[0].Float() - deps[1].Float())
			},
		},
		{
			Name: UpdaterCrossover,
			Kind: partition.Derived,
			DependsOn: []string{UpdaterMinorityVotes, UpdaterMajorityVotes,
				UpdaterGroupMinorityVotes, UpdaterGroupMajorityVotes},
			Derive: func(deps []partition.Value) partition.Value {
				return partition.Bool(IsCrossover(deps[0].Float(), deps[1].Float(), deps[2].Float(), deps[3].Float()))
			},
		},
	}
}
