package seating

// ── Objective weights ───────────────────────────────────────────────

// weights balances the soft scoring terms against each other. A single
// hard violation outweighs any realistic pile of soft penalties, so the
// search always trades comfort for legality.
var weights = struct {
	Hard          float64
	FamilySplit   float64
	SideMix       float64
	Accessibility float64
	AgeBalance    float64
	EmptySeat     float64
}{
	Hard:          1000,
	FamilySplit:   8,
	SideMix:       6,
	Accessibility: 25,
	AgeBalance:    5,
	EmptySeat:     1,
}

// defaultSoftWeight is applied to soft constraints created without an
// explicit weight.
const defaultSoftWeight = 10.0

// evaluation is the scored outcome for one genome. Lower penalty is
// better; zero means every constraint holds and every enabled preference
// is fully met.
type evaluation struct {
	penalty float64
	hard    int
	soft    float64
}

// evaluate scores one genome. It reads only immutable engine state, so
// multiple evaluations may run concurrently.
func (e *Engine) evaluate(g genome) evaluation {
	var ev evaluation

	for _, c := range e.cons {
		violated := false
		switch c.kind {
		case KindTogether:
			violated = g[c.a] != g[c.b]
		case KindApart:
			violated = g[c.a] == g[c.b]
		case KindAtTable:
			violated = g[c.a] != c.table
		case KindAccessible:
			violated = !e.tables[g[c.a]].Accessible
		}
		if !violated {
			continue
		}
		if c.hard {
			ev.hard++
		} else {
			ev.soft += c.weight
		}
	}

	crit := e.criteria
	n := len(e.tables)
	load := make([]int, n)
	bride := make([]int, n)
	groom := make([]int, n)
	child := make([]int, n)
	for gi, ti := range g {
		load[ti]++
		switch e.guests[gi].Side {
		case SideBride:
			bride[ti]++
		case SideGroom:
			groom[ti]++
		}
		if e.guests[gi].AgeGroup == AgeChild {
			child[ti]++
		}
	}

	// Each extra table a family group spreads across costs one split unit.
	if crit.GroupFamilies && len(e.groupSets) > 0 {
		mark := make([]int, n)
		for si, members := range e.groupSets {
			stamp := si + 1
			distinct := 0
			for _, gi := range members {
				if mark[g[gi]] != stamp {
					mark[g[gi]] = stamp
					distinct++
				}
			}
			if distinct > 1 {
				ev.soft += weights.FamilySplit * float64(distinct-1)
			}
		}
	}

	// A table seated entirely from one side scores the full SideMix
	// penalty, an even split scores zero. SideBoth guests are neutral.
	if crit.MixSides {
		for ti := 0; ti < n; ti++ {
			sided := bride[ti] + groom[ti]
			if sided < 2 {
				continue
			}
			diff := bride[ti] - groom[ti]
			if diff < 0 {
				diff = -diff
			}
			ev.soft += weights.SideMix * float64(diff) / float64(sided)
		}
	}

	if crit.PrioritizeAccessibility {
		for gi, ti := range g {
			if e.guests[gi].NeedsAccessible && !e.tables[ti].Accessible {
				ev.soft += weights.Accessibility
			}
		}
	}

	// Penalize tables whose share of children strays from the overall
	// share, which spreads kids out instead of forming one kids table.
	if crit.BalanceAges && e.childTotal > 0 {
		overall := float64(e.childTotal) / float64(len(e.guests))
		for ti := 0; ti < n; ti++ {
			if load[ti] == 0 {
				continue
			}
			dev := float64(child[ti])/float64(load[ti]) - overall
			if dev < 0 {
				dev = -dev
			}
			ev.soft += weights.AgeBalance * dev
		}
	}

	// Empty chairs at occupied tables cost one unit each; fully empty
	// tables cost nothing, so guests condense onto fewer tables.
	if crit.MinimizeEmptySeats {
		for ti := 0; ti < n; ti++ {
			if load[ti] > 0 {
				ev.soft += weights.EmptySeat * float64(e.tables[ti].Capacity-load[ti])
			}
		}
	}

	ev.penalty = weights.Hard*float64(ev.hard) + ev.soft
	return ev
}
