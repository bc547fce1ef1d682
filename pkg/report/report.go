package report

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/lintang-b-s/Districtx/pkg/neighbor"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"gopkg.in/yaml.v3"
)

// DistrictSummary. one row of the result table. a partition built with neighbor.CrossoverUpdaters has
// every updater read here.
type DistrictSummary struct {
	District           partition.DistrictID `yaml:"district"`
	Tracts             int                  `yaml:"tracts"`
	Population         float64              `yaml:"population"`
	MinorityPopulation float64              `yaml:"minority_population"`
	MeanClass          float64              `yaml:"mean_class"`
	MinorityVotes      float64              `yaml:"minority_votes"`
	MajorityVotes      float64              `yaml:"majority_votes"`
	// Diff. minority minus majority votes.
	Diff float64 `yaml:"diff"`
	// PctDiff. |diff| as a percentage of the population.
	PctDiff      float64 `yaml:"pct_diff"`
	PctMinority  float64 `yaml:"pct_minority"`
	MinorityLead bool    `yaml:"minority_lead"`
	Crossover    bool    `yaml:"crossover"`
}

func Summarize(p *partition.Partition) ([]DistrictSummary, error) {
	ids := p.DistrictIDs()
	out := make([]DistrictSummary, 0, len(ids))
	for _, d := range ids {
		values := make(map[string]partition.Value, 7)
		for _, name := range []string{
			neighbor.UpdaterPopulation, neighbor.UpdaterMinorityPopulation, neighbor.UpdaterMeanClass,
			neighbor.UpdaterMinorityVotes, neighbor.UpdaterMajorityVotes, neighbor.UpdaterLead,
			neighbor.UpdaterCrossover,
		} {
			v, err := p.Value(d, name)
			if err != nil {
				return nil, err
			}
			values[name] = v
		}

		s := DistrictSummary{
			District:           d,
			Tracts:             p.NodeCount(d),
			Population:         values[neighbor.UpdaterPopulation].Float(),
			MinorityPopulation: values[neighbor.UpdaterMinorityPopulation].Float(),
			MeanClass:          values[neighbor.UpdaterMeanClass].Float(),
			MinorityVotes:      values[neighbor.UpdaterMinorityVotes].Float(),
			MajorityVotes:      values[neighbor.UpdaterMajorityVotes].Float(),
			Diff:               values[neighbor.UpdaterLead].Float(),
			Crossover:          values[neighbor.UpdaterCrossover].Bool(),
		}
		s.MinorityLead = s.Diff >= 0
		if s.Population > 0 {
			s.PctDiff = math.Abs(math.Round(s.Diff)) / s.Population * 100
			s.PctMinority = s.MinorityPopulation / s.Population * 100
		}
		out = append(out, s)
	}
	return out, nil
}

/*
WriteTable.

	                      AbsDiff PctDiff  PctMin
	District  0: MIN      1,204    0.9%   42.0% X-OVER
*/
func WriteTable(w io.Writer, summaries []DistrictSummary) error {
	if _, err := fmt.Fprintln(w, "                      AbsDiff PctDiff  PctMin"); err != nil {
		return err
	}
	for _, s := range summaries {
		lead := "MAJ"
		if s.MinorityLead {
			lead = "MIN"
		}
		crossover := ""
		if s.Crossover {
			crossover = "X-OVER"
		}
		_, err := fmt.Fprintf(w, "District %2d: %s %10s %6.1f%% %6.1f%% %s\n",
			s.District, lead, humanize.Comma(int64(math.Abs(math.Round(s.Diff)))),
			s.PctDiff, s.PctMinority, crossover)
		if err != nil {
			return err
		}
	}
	return nil
}

func WriteYAML(w io.Writer, summaries []DistrictSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]DistrictSummary{"districts": summaries}); err != nil {
		return err
	}
	return enc.Close()
}
