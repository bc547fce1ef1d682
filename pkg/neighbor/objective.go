package neighbor

import (
	"math"

	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/search"
)

// CrossoverObjective averages min(m/(m+M), 0.5) over all districts, m and M being the values of the
// minority and majority vote updaters. a district without votes contributes 0, a district the minority
// side wins outright is worth no more than a tie.
func CrossoverObjective(minorityVotes, majorityVotes string) ObjectiveFunc {
	return perDistrictMean(minorityVotes, majorityVotes, func(m, M float64) float64 {
		if m+M <= 0 {
			return 0
		}
		return math.Min(m/(m+M), 0.5)
	})
}

// BalanceObjective averages 1/(|m-M|+1) over all districts, highest when both sides are even.
func BalanceObjective(minorityVotes, majorityVotes string) ObjectiveFunc {
	return perDistrictMean(minorityVotes, majorityVotes, DistrictBalance)
}

// DistrictBalance. 1/(|m-M|+1).
func DistrictBalance(m, M float64) float64 {
	return 1 / (math.Abs(m-M) + 1)
}

func perDistrictMean(minorityVotes, majorityVotes string, contribution func(m, M float64) float64) ObjectiveFunc {
	return func(p *partition.Partition) (float64, error) {
		ids := p.DistrictIDs()
		if len(ids) == 0 {
			return 0, nil
		}
		total := 0.0
		for _, d := range ids {
			m, err := p.Value(d, minorityVotes)
			if err != nil {
				return 0, err
			}
			M, err := p.Value(d, majorityVotes)
			if err != nil {
				return 0, err
			}
			total += contribution(m.Float(), M.Float())
		}
		return total / float64(len(ids)), nil
	}
}

// CrossoverFraction. share of districts whose crossover updater holds.
func CrossoverFraction(p *partition.Partition, crossover string) (float64, error) {
	ids := p.DistrictIDs()
	if len(ids) == 0 {
		return 0, nil
	}
	count := 0
	for _, d := range ids {
		v, err := p.Value(d, crossover)
		if err != nil {
			return 0, err
		}
		if v.Bool() {
			count++
		}
	}
	return float64(count) / float64(len(ids)), nil
}

// CrossoverGoal holds when more than fraction of the districts are crossover districts.
func CrossoverGoal(fraction float64, crossover string) search.GoalFunc[*partition.Partition] {
	return func(p *partition.Partition) (bool, error) {
		f, err := CrossoverFraction(p, crossover)
		if err != nil {
			return false, err
		}
		return f > fraction, nil
	}
}
