package datastructure

// ClassifyMinority sets the numeric attribute flag to 1 for every vertex whose class attribute is >= cutoff,
// 0 otherwise.
func (g *Graph) ClassifyMinority(classAttr string, cutoff float64, flag string) {
	for _, v := range g.vertices {
		if v.attrs[classAttr] >= cutoff {
			v.attrs[flag] = 1
		} else {
			v.attrs[flag] = 0
		}
	}
}

// SynthesizeVotes derives minority and majority candidate votes from population when real election data is
// missing: minority-classified units vote entirely for the minority-preferred candidate, the rest give
// crossoverPercent of their votes to the minority-preferred candidate.
func (g *Graph) SynthesizeVotes(popAttr, minorityFlag string, crossoverPercent float64, minorityVotes, majorityVotes string) {
	for _, v := range g.vertices {
		pop := v.attrs[popAttr]
		if v.attrs[minorityFlag] != 0 {
			v.attrs[minorityVotes] = pop
			v.attrs[majorityVotes] = 0
			continue
		}
		v.attrs[minorityVotes] = crossoverPercent * pop
		v.attrs[majorityVotes] = (1 - crossoverPercent) * pop
	}
}

// MaskAttribute stores attr*flag as attribute name, so tallies can be restricted to flagged vertices.
func (g *Graph) MaskAttribute(attr, flag, name string) {
	for _, v := range g.vertices {
		if v.attrs[flag] != 0 {
			v.attrs[name] = v.attrs[attr]
		} else {
			v.attrs[name] = 0
		}
	}
}
