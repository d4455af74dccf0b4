package seating

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"
)

// ── Engine ──────────────────────────────────────────────────────────

// Engine holds the prepared search state for one optimization run. Build
// it with NewEngine, optionally attach a progress callback, then call Run.
// An Engine is not safe for concurrent Runs.
type Engine struct {
	guests   []Guest
	tables   []Table
	criteria Criteria

	guestIdx map[uint64]int
	tableIdx map[uint64]int

	// cons holds constraints rewritten in index form for fast evaluation.
	cons []conRef
	// groupSets lists guest indices per GroupID, ordered by GroupID so
	// penalty sums stay bit-identical between runs.
	groupSets [][]int

	// domains[gi] lists the table indices guest gi may occupy. Hard
	// AT_TABLE collapses the domain to a single entry, hard ACCESSIBLE
	// restricts it to accessible tables.
	domains [][]int
	// pinned[gi] is the pinned table index for guest gi, or -1.
	pinned []int

	totalSeats int
	childTotal int

	onProgress func(Progress)
}

// conRef is a Constraint with guest and table IDs resolved to indices.
type conRef struct {
	kind   ConstraintKind
	a, b   int
	table  int
	hard   bool
	weight float64
}

// genome assigns each guest (by input index) a table index.
type genome []int

const (
	progressEvery = 10
	swapRate      = 0.2
)

// NewEngine validates the input, resolves constraints and checks that a
// feasible assignment exists at all. It returns ErrInfeasible (wrapped with
// the reason) when the hard constraints cannot possibly be satisfied.
func NewEngine(guests []Guest, tables []Table, cons []Constraint, criteria Criteria) (*Engine, error) {
	e := &Engine{
		guests:   guests,
		tables:   tables,
		criteria: criteria.normalized(),
		guestIdx: make(map[uint64]int, len(guests)),
		tableIdx: make(map[uint64]int, len(tables)),
	}

	groups := make(map[uint64][]int)
	for i, g := range guests {
		if _, dup := e.guestIdx[g.ID]; dup {
			return nil, fmt.Errorf("seating: duplicate guest id %d", g.ID)
		}
		e.guestIdx[g.ID] = i
		if g.GroupID != 0 {
			groups[g.GroupID] = append(groups[g.GroupID], i)
		}
		if g.AgeGroup == AgeChild {
			e.childTotal++
		}
	}
	groupIDs := make([]uint64, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Slice(groupIDs, func(a, b int) bool { return groupIDs[a] < groupIDs[b] })
	for _, id := range groupIDs {
		e.groupSets = append(e.groupSets, groups[id])
	}
	for i, t := range tables {
		if t.Capacity <= 0 {
			return nil, fmt.Errorf("seating: table %d has non-positive capacity", t.ID)
		}
		if _, dup := e.tableIdx[t.ID]; dup {
			return nil, fmt.Errorf("seating: duplicate table id %d", t.ID)
		}
		e.tableIdx[t.ID] = i
		e.totalSeats += t.Capacity
	}

	if len(guests) > 0 && len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables to seat %d guests", ErrInfeasible, len(guests))
	}

	if err := e.resolveConstraints(cons); err != nil {
		return nil, err
	}
	if err := e.buildDomains(); err != nil {
		return nil, err
	}
	if len(guests) > 0 {
		if err := e.checkFeasible(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// OnProgress registers a callback invoked periodically during Run and once
// after the final generation. It must be set before Run is called.
func (e *Engine) OnProgress(fn func(Progress)) { e.onProgress = fn }

// ── Input resolution ────────────────────────────────────────────────

func (e *Engine) resolveConstraints(cons []Constraint) error {
	e.cons = make([]conRef, 0, len(cons))
	for _, c := range cons {
		ref := conRef{kind: c.Kind, a: -1, b: -1, table: -1, hard: c.Hard, weight: c.Weight}
		if ref.weight <= 0 {
			ref.weight = defaultSoftWeight
		}
		ai, ok := e.guestIdx[c.GuestA]
		if !ok {
			return fmt.Errorf("seating: constraint %d references unknown guest %d", c.ID, c.GuestA)
		}
		ref.a = ai
		switch c.Kind {
		case KindTogether, KindApart:
			bi, ok := e.guestIdx[c.GuestB]
			if !ok {
				return fmt.Errorf("seating: constraint %d references unknown guest %d", c.ID, c.GuestB)
			}
			if bi == ai {
				return fmt.Errorf("seating: constraint %d pairs guest %d with itself", c.ID, c.GuestA)
			}
			ref.b = bi
		case KindAtTable:
			ti, ok := e.tableIdx[c.TableID]
			if !ok {
				return fmt.Errorf("seating: constraint %d references unknown table %d", c.ID, c.TableID)
			}
			ref.table = ti
		case KindAccessible:
			// guest reference only
		default:
			return fmt.Errorf("seating: constraint %d has unknown kind %q", c.ID, c.Kind)
		}
		e.cons = append(e.cons, ref)
	}
	return nil
}

// buildDomains computes the allowed table set per guest from the hard
// structural constraints. Crossover and mutation only ever produce values
// inside a guest's domain, so hard AT_TABLE and hard ACCESSIBLE can never
// be violated by the search itself.
func (e *Engine) buildDomains() error {
	e.pinned = make([]int, len(e.guests))
	for i := range e.pinned {
		e.pinned[i] = -1
	}
	needsAccessible := make([]bool, len(e.guests))

	for _, c := range e.cons {
		if !c.hard {
			continue
		}
		switch c.kind {
		case KindAtTable:
			if prev := e.pinned[c.a]; prev >= 0 && prev != c.table {
				return fmt.Errorf("%w: guest %d pinned to two different tables", ErrInfeasible, e.guests[c.a].ID)
			}
			e.pinned[c.a] = c.table
		case KindAccessible:
			needsAccessible[c.a] = true
		}
	}

	e.domains = make([][]int, len(e.guests))
	for gi := range e.guests {
		if pin := e.pinned[gi]; pin >= 0 {
			if needsAccessible[gi] && !e.tables[pin].Accessible {
				return fmt.Errorf("%w: guest %d pinned to inaccessible table %d", ErrInfeasible, e.guests[gi].ID, e.tables[pin].ID)
			}
			e.domains[gi] = []int{pin}
			continue
		}
		dom := make([]int, 0, len(e.tables))
		for ti := range e.tables {
			if needsAccessible[gi] && !e.tables[ti].Accessible {
				continue
			}
			dom = append(dom, ti)
		}
		if len(dom) == 0 {
			return fmt.Errorf("%w: no accessible table for guest %d", ErrInfeasible, e.guests[gi].ID)
		}
		e.domains[gi] = dom
	}
	return nil
}

// ── Feasibility ─────────────────────────────────────────────────────

// checkFeasible rejects inputs that cannot be seated no matter what the
// search does: not enough seats overall, overbooked pins, contradictory
// pair constraints, or a hard TOGETHER group larger than any table.
func (e *Engine) checkFeasible() error {
	if len(e.guests) > e.totalSeats {
		return fmt.Errorf("%w: %d guests but only %d seats", ErrInfeasible, len(e.guests), e.totalSeats)
	}

	pinLoad := make([]int, len(e.tables))
	for _, pin := range e.pinned {
		if pin >= 0 {
			pinLoad[pin]++
			if pinLoad[pin] > e.tables[pin].Capacity {
				return fmt.Errorf("%w: more guests pinned to table %d than its %d seats",
					ErrInfeasible, e.tables[pin].ID, e.tables[pin].Capacity)
			}
		}
	}

	// Guests whose whole domain lies inside the accessible tables compete
	// for the accessible seats only.
	accSeats := 0
	for _, t := range e.tables {
		if t.Accessible {
			accSeats += t.Capacity
		}
	}
	restricted := 0
	for gi := range e.guests {
		all := true
		for _, ti := range e.domains[gi] {
			if !e.tables[ti].Accessible {
				all = false
				break
			}
		}
		if all {
			restricted++
		}
	}
	if len(e.tables) > 0 && accSeats < e.totalSeats && restricted > accSeats {
		return fmt.Errorf("%w: %d guests need accessible seating but only %d accessible seats exist",
			ErrInfeasible, restricted, accSeats)
	}

	// Hard TOGETHER forms groups that must share one table; hard APART
	// inside such a group, or two members pinned apart, is a contradiction.
	uf := newUnionFind(len(e.guests))
	for _, c := range e.cons {
		if c.hard && c.kind == KindTogether {
			uf.union(c.a, c.b)
		}
	}
	for _, c := range e.cons {
		if c.hard && c.kind == KindApart && uf.find(c.a) == uf.find(c.b) {
			return fmt.Errorf("%w: guests %d and %d must sit both together and apart",
				ErrInfeasible, e.guests[c.a].ID, e.guests[c.b].ID)
		}
	}
	maxCap := 0
	for _, t := range e.tables {
		maxCap = max(maxCap, t.Capacity)
	}
	size := make(map[int]int)
	groupPin := make(map[int]int)
	for gi := range e.guests {
		root := uf.find(gi)
		size[root]++
		if pin := e.pinned[gi]; pin >= 0 {
			if prev, ok := groupPin[root]; ok && prev != pin {
				return fmt.Errorf("%w: a together group is pinned to two different tables", ErrInfeasible)
			}
			groupPin[root] = pin
		}
	}
	for root, n := range size {
		if n <= 1 {
			continue
		}
		limit := maxCap
		if pin, ok := groupPin[root]; ok {
			limit = e.tables[pin].Capacity
		}
		if n > limit {
			return fmt.Errorf("%w: a together group of %d guests exceeds the largest usable table (%d seats)",
				ErrInfeasible, n, limit)
		}
	}
	return nil
}

// ── Run loop ────────────────────────────────────────────────────────

// Run executes the genetic search until it converges, exhausts
// MaxGenerations, stagnates, or ctx is cancelled. On cancellation the best
// assignment found so far is returned together with ctx.Err(). When
// RespectAllConstraints is set and hard violations remain, the result
// describes the best attempt and the error is ErrConstraintsUnsatisfied.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if len(e.guests) == 0 {
		return &Result{Placements: []Placement{}, Score: 1}, nil
	}

	crit := e.criteria
	seed := crit.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pop := make([]genome, crit.PopulationSize)
	for i := range pop {
		pop[i] = e.randomGenome(rng)
	}
	evals := make([]evaluation, len(pop))
	e.evaluateAll(pop, evals, crit.Workers)

	bestIdx := rankOrder(evals)[0]
	best := cloneGenome(pop[bestIdx])
	bestEval := evals[bestIdx]

	ran := 0
	stale := 0
	stagnated := false

loop:
	for gen := 1; gen <= crit.MaxGenerations; gen++ {
		select {
		case <-ctx.Done():
			res := e.buildResult(best, bestEval, ran, stagnated, start)
			e.report(ran, bestEval)
			return res, ctx.Err()
		default:
		}

		order := rankOrder(evals)
		next := make([]genome, 0, len(pop))
		for i := 0; i < crit.EliteCount && i < len(order); i++ {
			next = append(next, cloneGenome(pop[order[i]]))
		}
		for len(next) < len(pop) {
			p1 := e.tournament(pop, evals, rng)
			p2 := e.tournament(pop, evals, rng)
			child := e.crossover(p1, p2, rng)
			e.mutate(child, rng)
			e.repair(child, rng)
			next = append(next, child)
		}
		pop = next
		e.evaluateAll(pop, evals, crit.Workers)

		improved := false
		for i := range pop {
			if evals[i].penalty < bestEval.penalty {
				best = cloneGenome(pop[i])
				bestEval = evals[i]
				improved = true
			}
		}
		ran = gen
		if improved {
			stale = 0
		} else {
			stale++
		}

		if gen%progressEvery == 0 {
			e.report(gen, bestEval)
		}
		if bestEval.penalty == 0 {
			break loop
		}
		if crit.StagnationLimit > 0 && stale >= crit.StagnationLimit {
			stagnated = true
			break loop
		}
	}

	e.report(ran, bestEval)
	res := e.buildResult(best, bestEval, ran, stagnated, start)
	if crit.RespectAllConstraints && bestEval.hard > 0 {
		return res, fmt.Errorf("%w: %d hard violations remain", ErrConstraintsUnsatisfied, bestEval.hard)
	}
	return res, nil
}

// ── Population operators ────────────────────────────────────────────

// randomGenome seats pinned guests first, then the rest in random order at
// tables from their domain that still have free seats.
func (e *Engine) randomGenome(rng *rand.Rand) genome {
	g := make(genome, len(e.guests))
	load := make([]int, len(e.tables))
	for gi, pin := range e.pinned {
		if pin >= 0 {
			g[gi] = pin
			load[pin]++
		} else {
			g[gi] = -1
		}
	}
	for _, gi := range rng.Perm(len(e.guests)) {
		if g[gi] >= 0 {
			continue
		}
		dom := e.domains[gi]
		start := rng.Intn(len(dom))
		placed := false
		for k := 0; k < len(dom); k++ {
			ti := dom[(start+k)%len(dom)]
			if load[ti] < e.tables[ti].Capacity {
				g[gi] = ti
				load[ti]++
				placed = true
				break
			}
		}
		if !placed {
			// domain full; take any allowed table and let repair sort it out
			g[gi] = dom[start]
			load[dom[start]]++
		}
	}
	e.repair(g, rng)
	return g
}

// tournament returns the fittest of TournamentSize randomly drawn genomes.
func (e *Engine) tournament(pop []genome, evals []evaluation, rng *rand.Rand) genome {
	bi := rng.Intn(len(pop))
	for k := 1; k < e.criteria.TournamentSize; k++ {
		ci := rng.Intn(len(pop))
		if evals[ci].penalty < evals[bi].penalty {
			bi = ci
		}
	}
	return pop[bi]
}

// crossover mixes two parents gene by gene. Both parents hold values from
// the same per-guest domain, so the child needs no domain repair.
func (e *Engine) crossover(p1, p2 genome, rng *rand.Rand) genome {
	child := make(genome, len(p1))
	for gi := range child {
		if rng.Intn(2) == 0 {
			child[gi] = p1[gi]
		} else {
			child[gi] = p2[gi]
		}
	}
	return child
}

// mutate reassigns genes at MutationRate and occasionally swaps the tables
// of two unpinned guests. Swaps keep table loads intact.
func (e *Engine) mutate(g genome, rng *rand.Rand) {
	rate := e.criteria.MutationRate
	for gi := range g {
		if e.pinned[gi] >= 0 {
			continue
		}
		if rng.Float64() < rate {
			dom := e.domains[gi]
			g[gi] = dom[rng.Intn(len(dom))]
		}
	}
	if len(g) >= 2 && rng.Float64() < swapRate {
		a := rng.Intn(len(g))
		b := rng.Intn(len(g))
		if a != b && e.pinned[a] < 0 && e.pinned[b] < 0 &&
			e.inDomain(a, g[b]) && e.inDomain(b, g[a]) {
			g[a], g[b] = g[b], g[a]
		}
	}
}

func (e *Engine) inDomain(gi, ti int) bool {
	for _, d := range e.domains[gi] {
		if d == ti {
			return true
		}
	}
	return false
}

// ── Capacity repair ─────────────────────────────────────────────────

// repair moves guests off overfull tables until every table is within
// capacity. Pinned guests never move; everyone else may only move inside
// their domain. Feasibility was established up front, so this terminates.
func (e *Engine) repair(g genome, rng *rand.Rand) {
	load := make([]int, len(e.tables))
	for _, ti := range g {
		load[ti]++
	}
	for {
		over := -1
		for ti, l := range load {
			if l > e.tables[ti].Capacity {
				over = ti
				break
			}
		}
		if over < 0 {
			return
		}
		if !e.moveOne(g, load, over, rng) {
			e.sweep(g, load)
			return
		}
	}
}

// moveOne relocates one random movable guest from the overfull table to a
// random table in their domain with a free seat.
func (e *Engine) moveOne(g genome, load []int, over int, rng *rand.Rand) bool {
	var candidates []int
	for gi, ti := range g {
		if ti == over && e.pinned[gi] < 0 {
			candidates = append(candidates, gi)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	for _, k := range rng.Perm(len(candidates)) {
		gi := candidates[k]
		dom := e.domains[gi]
		start := rng.Intn(len(dom))
		for i := 0; i < len(dom); i++ {
			ti := dom[(start+i)%len(dom)]
			if ti != over && load[ti] < e.tables[ti].Capacity {
				g[gi] = ti
				load[over]--
				load[ti]++
				return true
			}
		}
	}
	return false
}

// sweep deterministically resolves overflow that moveOne could not, making
// room with a two-step eviction when a guest's alternative tables are all
// occupied by less restricted guests.
func (e *Engine) sweep(g genome, load []int) {
	for ti := range e.tables {
		for load[ti] > e.tables[ti].Capacity {
			if !e.evictFrom(g, load, ti) {
				return
			}
		}
	}
}

func (e *Engine) evictFrom(g genome, load []int, from int) bool {
	for gi, ti := range g {
		if ti != from || e.pinned[gi] >= 0 {
			continue
		}
		for _, alt := range e.domains[gi] {
			if alt != from && load[alt] < e.tables[alt].Capacity {
				g[gi] = alt
				load[from]--
				load[alt]++
				return true
			}
		}
	}
	// Two-step: vacate a seat on some allowed table first.
	for gi, ti := range g {
		if ti != from || e.pinned[gi] >= 0 {
			continue
		}
		for _, alt := range e.domains[gi] {
			if alt == from {
				continue
			}
			for gj, tj := range g {
				if tj != alt || e.pinned[gj] >= 0 {
					continue
				}
				for _, alt2 := range e.domains[gj] {
					if alt2 == alt || alt2 == from || load[alt2] >= e.tables[alt2].Capacity {
						continue
					}
					g[gj] = alt2
					load[alt]--
					load[alt2]++
					g[gi] = alt
					load[from]--
					load[alt]++
					return true
				}
			}
		}
	}
	return false
}

// ── Parallel evaluation ─────────────────────────────────────────────

// evaluateAll scores the whole population, fanning out across workers.
// Workers never touch the rng, so parallelism does not affect results.
func (e *Engine) evaluateAll(pop []genome, out []evaluation, workers int) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pop) {
		workers = len(pop)
	}
	if workers <= 1 {
		for i := range pop {
			out[i] = e.evaluate(pop[i])
		}
		return
	}
	idxCh := make(chan int, len(pop))
	for i := range pop {
		idxCh <- i
	}
	close(idxCh)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				out[i] = e.evaluate(pop[i])
			}
		}()
	}
	wg.Wait()
}

// rankOrder returns population indices sorted best first, ties broken by
// index so ranking stays deterministic.
func rankOrder(evals []evaluation) []int {
	order := make([]int, len(evals))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if evals[order[a]].penalty != evals[order[b]].penalty {
			return evals[order[a]].penalty < evals[order[b]].penalty
		}
		return order[a] < order[b]
	})
	return order
}

func cloneGenome(g genome) genome {
	c := make(genome, len(g))
	copy(c, g)
	return c
}

// ── Result assembly ─────────────────────────────────────────────────

func (e *Engine) buildResult(best genome, eval evaluation, generations int, stagnated bool, start time.Time) *Result {
	placements := make([]Placement, len(best))
	for gi, ti := range best {
		placements[gi] = Placement{GuestID: e.guests[gi].ID, TableID: e.tables[ti].ID}
	}
	sort.Slice(placements, func(a, b int) bool { return placements[a].GuestID < placements[b].GuestID })
	return &Result{
		Placements:     placements,
		Score:          score(eval.penalty),
		HardViolations: eval.hard,
		SoftPenalty:    eval.soft,
		Generations:    generations,
		Stagnated:      stagnated,
		Elapsed:        time.Since(start),
	}
}

func (e *Engine) report(gen int, eval evaluation) {
	if e.onProgress == nil {
		return
	}
	e.onProgress(Progress{
		Generation:     gen,
		MaxGenerations: e.criteria.MaxGenerations,
		BestScore:      score(eval.penalty),
		HardViolations: eval.hard,
	})
}

func score(penalty float64) float64 { return 1 / (1 + penalty) }

// ── Criteria normalization ──────────────────────────────────────────

// normalized fills unset numeric fields from DefaultCriteria and clamps
// the rest into usable ranges. Boolean toggles are taken as given.
func (c Criteria) normalized() Criteria {
	d := DefaultCriteria()
	if c.PopulationSize <= 0 {
		c.PopulationSize = d.PopulationSize
	}
	if c.PopulationSize < 2 {
		c.PopulationSize = 2
	}
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = d.MaxGenerations
	}
	if c.MutationRate <= 0 {
		c.MutationRate = d.MutationRate
	}
	if c.MutationRate > 1 {
		c.MutationRate = 1
	}
	if c.EliteCount <= 0 {
		c.EliteCount = d.EliteCount
	}
	if c.EliteCount >= c.PopulationSize {
		c.EliteCount = c.PopulationSize - 1
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = d.TournamentSize
	}
	if c.TournamentSize > c.PopulationSize {
		c.TournamentSize = c.PopulationSize
	}
	if c.StagnationLimit < 0 {
		c.StagnationLimit = 0
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	return c
}

// ── Union-find ──────────────────────────────────────────────────────

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
