package seating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCriteria keeps runs short and reproducible.
func testCriteria() Criteria {
	c := DefaultCriteria()
	c.Seed = 42
	c.MaxGenerations = 120
	c.Workers = 1
	return c
}

// mixedGuests builds n guests alternating sides, with every sixth guest a
// child and guests n-1 and n sharing family group 9.
func mixedGuests(n int) []Guest {
	guests := make([]Guest, n)
	for i := range guests {
		g := Guest{ID: uint64(i + 1), Name: "guest", Side: SideBride, AgeGroup: AgeAdult}
		if i%2 == 1 {
			g.Side = SideGroom
		}
		if i%6 == 5 {
			g.AgeGroup = AgeChild
		}
		if i >= n-2 {
			g.GroupID = 9
		}
		guests[i] = g
	}
	return guests
}

func tablesWithCapacity(caps ...int) []Table {
	tables := make([]Table, len(caps))
	for i, c := range caps {
		tables[i] = Table{ID: uint64(100 + i), Name: "table", Capacity: c}
	}
	return tables
}

// verifyPlacements runs the structural checklist every result must pass:
// each guest placed exactly once, only known IDs referenced, and no table
// filled past its capacity.
func verifyPlacements(t *testing.T, guests []Guest, tables []Table, res *Result) {
	t.Helper()

	require.NotNil(t, res)
	require.Len(t, res.Placements, len(guests))

	knownGuests := make(map[uint64]bool, len(guests))
	for _, g := range guests {
		knownGuests[g.ID] = true
	}
	capacity := make(map[uint64]int, len(tables))
	for _, tb := range tables {
		capacity[tb.ID] = tb.Capacity
	}

	seen := make(map[uint64]bool, len(res.Placements))
	load := make(map[uint64]int)
	for _, p := range res.Placements {
		if !knownGuests[p.GuestID] {
			t.Errorf("placement references unknown guest %d", p.GuestID)
		}
		if _, ok := capacity[p.TableID]; !ok {
			t.Errorf("placement references unknown table %d", p.TableID)
		}
		if seen[p.GuestID] {
			t.Errorf("guest %d placed more than once", p.GuestID)
		}
		seen[p.GuestID] = true
		load[p.TableID]++
	}
	for tid, n := range load {
		if n > capacity[tid] {
			t.Errorf("table %d seats %d guests, capacity is %d", tid, n, capacity[tid])
		}
	}
}

func placementTable(t *testing.T, res *Result, guestID uint64) uint64 {
	t.Helper()
	for _, p := range res.Placements {
		if p.GuestID == guestID {
			return p.TableID
		}
	}
	t.Fatalf("guest %d not placed", guestID)
	return 0
}

// ── Basic runs ──────────────────────────────────────────────────────

func TestRunEmptyGuestList(t *testing.T) {
	eng, err := NewEngine(nil, tablesWithCapacity(8), nil, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Placements)
	assert.Equal(t, 1.0, res.Score)
}

func TestRunSeatsEveryGuestWithinCapacity(t *testing.T) {
	guests := mixedGuests(24)
	tables := tablesWithCapacity(8, 8, 8, 8)

	eng, err := NewEngine(guests, tables, nil, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
	assert.Greater(t, res.Generations, 0)
	assert.Greater(t, res.Score, 0.0)
}

func TestRunExactlyFullVenue(t *testing.T) {
	guests := mixedGuests(12)
	tables := tablesWithCapacity(6, 6)

	eng, err := NewEngine(guests, tables, nil, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
}

func TestRunIsReproducibleForSameSeed(t *testing.T) {
	guests := mixedGuests(20)
	tables := tablesWithCapacity(6, 6, 6, 6)
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 2, Hard: true},
		{ID: 2, Kind: KindApart, GuestA: 3, GuestB: 4},
	}

	run := func() *Result {
		eng, err := NewEngine(guests, tables, cons, testCriteria())
		require.NoError(t, err)
		res, err := eng.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	first := run()
	second := run()
	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Generations, second.Generations)
}

func TestRunParallelWorkersMatchSerial(t *testing.T) {
	guests := mixedGuests(18)
	tables := tablesWithCapacity(6, 6, 6)

	serialCrit := testCriteria()
	parallelCrit := testCriteria()
	parallelCrit.Workers = 4

	serialEng, err := NewEngine(guests, tables, nil, serialCrit)
	require.NoError(t, err)
	parallelEng, err := NewEngine(guests, tables, nil, parallelCrit)
	require.NoError(t, err)

	serial, err := serialEng.Run(context.Background())
	require.NoError(t, err)
	parallel, err := parallelEng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial.Placements, parallel.Placements)
	assert.Equal(t, serial.Score, parallel.Score)
}

// ── Hard constraints ────────────────────────────────────────────────

func TestRunHonorsHardPin(t *testing.T) {
	guests := mixedGuests(10)
	tables := tablesWithCapacity(4, 4, 4)
	cons := []Constraint{
		{ID: 1, Kind: KindAtTable, GuestA: 7, TableID: 102, Hard: true},
	}

	eng, err := NewEngine(guests, tables, cons, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
	assert.Equal(t, uint64(102), placementTable(t, res, 7))
}

func TestRunHonorsHardAccessible(t *testing.T) {
	guests := mixedGuests(8)
	tables := tablesWithCapacity(4, 4, 4)
	tables[1].Accessible = true
	cons := []Constraint{
		{ID: 1, Kind: KindAccessible, GuestA: 3, Hard: true},
	}

	eng, err := NewEngine(guests, tables, cons, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
	assert.Equal(t, tables[1].ID, placementTable(t, res, 3))
}

func TestRunHonorsHardTogether(t *testing.T) {
	guests := mixedGuests(6)
	tables := tablesWithCapacity(3, 3)
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 2, Hard: true},
	}

	eng, err := NewEngine(guests, tables, cons, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
	assert.Equal(t, placementTable(t, res, 1), placementTable(t, res, 2))
	assert.Zero(t, res.HardViolations)
}

func TestRunHonorsHardApartWhenForced(t *testing.T) {
	// Two single-seat tables leave separation as the only legal layout.
	guests := mixedGuests(2)
	tables := tablesWithCapacity(1, 1)
	cons := []Constraint{
		{ID: 1, Kind: KindApart, GuestA: 1, GuestB: 2, Hard: true},
	}

	eng, err := NewEngine(guests, tables, cons, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, placementTable(t, res, 1), placementTable(t, res, 2))
}

func TestRunReportsUnsatisfiableHardConstraint(t *testing.T) {
	// One table means a hard APART pair can never be separated. The input
	// passes the up-front checks, so the failure surfaces after the search.
	guests := mixedGuests(2)
	tables := tablesWithCapacity(4)
	cons := []Constraint{
		{ID: 1, Kind: KindApart, GuestA: 1, GuestB: 2, Hard: true},
	}

	eng, err := NewEngine(guests, tables, cons, testCriteria())
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.ErrorIs(t, err, ErrConstraintsUnsatisfied)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.HardViolations)
}

func TestRunBestEffortWhenConstraintsOptional(t *testing.T) {
	guests := mixedGuests(2)
	tables := tablesWithCapacity(4)
	cons := []Constraint{
		{ID: 1, Kind: KindApart, GuestA: 1, GuestB: 2, Hard: true},
	}
	crit := testCriteria()
	crit.RespectAllConstraints = false

	eng, err := NewEngine(guests, tables, cons, crit)
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	verifyPlacements(t, guests, tables, res)
	assert.Equal(t, 1, res.HardViolations)
}

// ── Infeasible inputs ───────────────────────────────────────────────

func TestNewEngineRejectsOverCapacity(t *testing.T) {
	_, err := NewEngine(mixedGuests(10), tablesWithCapacity(4), nil, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsNoTables(t *testing.T) {
	_, err := NewEngine(mixedGuests(3), nil, nil, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsPinOverflow(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindAtTable, GuestA: 1, TableID: 100, Hard: true},
		{ID: 2, Kind: KindAtTable, GuestA: 2, TableID: 100, Hard: true},
		{ID: 3, Kind: KindAtTable, GuestA: 3, TableID: 100, Hard: true},
	}
	_, err := NewEngine(mixedGuests(6), tablesWithCapacity(2, 6), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsConflictingPins(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindAtTable, GuestA: 1, TableID: 100, Hard: true},
		{ID: 2, Kind: KindAtTable, GuestA: 1, TableID: 101, Hard: true},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsTogetherApartContradiction(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 2, Hard: true},
		{ID: 2, Kind: KindApart, GuestA: 1, GuestB: 2, Hard: true},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsTransitiveContradiction(t *testing.T) {
	// 1-2 and 2-3 together chain makes 1 and 3 inseparable.
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 2, Hard: true},
		{ID: 2, Kind: KindTogether, GuestA: 2, GuestB: 3, Hard: true},
		{ID: 3, Kind: KindApart, GuestA: 1, GuestB: 3, Hard: true},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsGroupLargerThanAnyTable(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 2, Hard: true},
		{ID: 2, Kind: KindTogether, GuestA: 2, GuestB: 3, Hard: true},
		{ID: 3, Kind: KindTogether, GuestA: 3, GuestB: 4, Hard: true},
		{ID: 4, Kind: KindTogether, GuestA: 4, GuestB: 5, Hard: true},
	}
	_, err := NewEngine(mixedGuests(8), tablesWithCapacity(4, 4), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsAccessibleOverflow(t *testing.T) {
	tables := tablesWithCapacity(2, 6)
	tables[0].Accessible = true
	cons := []Constraint{
		{ID: 1, Kind: KindAccessible, GuestA: 1, Hard: true},
		{ID: 2, Kind: KindAccessible, GuestA: 2, Hard: true},
		{ID: 3, Kind: KindAccessible, GuestA: 3, Hard: true},
	}
	_, err := NewEngine(mixedGuests(6), tables, cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsNoAccessibleTable(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindAccessible, GuestA: 1, Hard: true},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	assert.ErrorIs(t, err, ErrInfeasible)
}

// ── Input validation ────────────────────────────────────────────────

func TestNewEngineRejectsUnknownConstraintGuest(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindTogether, GuestA: 1, GuestB: 999},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInfeasible)
}

func TestNewEngineRejectsUnknownConstraintTable(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindAtTable, GuestA: 1, TableID: 999},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	require.Error(t, err)
}

func TestNewEngineRejectsSelfPair(t *testing.T) {
	cons := []Constraint{
		{ID: 1, Kind: KindApart, GuestA: 1, GuestB: 1},
	}
	_, err := NewEngine(mixedGuests(4), tablesWithCapacity(4, 4), cons, testCriteria())
	require.Error(t, err)
}

func TestNewEngineRejectsDuplicateIDs(t *testing.T) {
	guests := mixedGuests(4)
	guests[3].ID = guests[0].ID
	_, err := NewEngine(guests, tablesWithCapacity(4, 4), nil, testCriteria())
	require.Error(t, err)

	tables := tablesWithCapacity(4, 4)
	tables[1].ID = tables[0].ID
	_, err = NewEngine(mixedGuests(4), tables, nil, testCriteria())
	require.Error(t, err)
}

func TestNewEngineRejectsZeroCapacityTable(t *testing.T) {
	_, err := NewEngine(mixedGuests(2), tablesWithCapacity(4, 0), nil, testCriteria())
	require.Error(t, err)
}

// ── Cancellation and progress ───────────────────────────────────────

func TestRunStopsOnCancelledContext(t *testing.T) {
	guests := mixedGuests(30)
	tables := tablesWithCapacity(8, 8, 8, 8)

	eng, err := NewEngine(guests, tables, nil, testCriteria())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := eng.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The best assignment found before cancellation is still returned.
	verifyPlacements(t, guests, tables, res)
}

func TestRunReportsProgress(t *testing.T) {
	guests := mixedGuests(16)
	tables := tablesWithCapacity(6, 6, 6)

	crit := testCriteria()
	crit.MaxGenerations = 40
	crit.StagnationLimit = 0

	eng, err := NewEngine(guests, tables, nil, crit)
	require.NoError(t, err)

	var snaps []Progress
	eng.OnProgress(func(p Progress) { snaps = append(snaps, p) })

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snaps)

	last := 0
	for _, p := range snaps {
		assert.GreaterOrEqual(t, p.Generation, last)
		assert.Equal(t, crit.MaxGenerations, p.MaxGenerations)
		assert.Greater(t, p.BestScore, 0.0)
		assert.LessOrEqual(t, p.BestScore, 1.0)
		last = p.Generation
	}
	assert.Equal(t, res.Generations, snaps[len(snaps)-1].Generation)
}

func TestRunStagnationStopsEarly(t *testing.T) {
	// A single oversized table leaves nothing to improve: the empty-seat
	// penalty is constant, so the run stalls and stops at the limit.
	guests := mixedGuests(8)
	tables := tablesWithCapacity(10)

	crit := testCriteria()
	crit.MaxGenerations = 5000
	crit.StagnationLimit = 10

	eng, err := NewEngine(guests, tables, nil, crit)
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, res.Generations, crit.MaxGenerations)
}

// ── Criteria defaults ───────────────────────────────────────────────

func TestCriteriaNormalizedFillsDefaults(t *testing.T) {
	c := Criteria{}.normalized()
	d := DefaultCriteria()

	assert.Equal(t, d.PopulationSize, c.PopulationSize)
	assert.Equal(t, d.MaxGenerations, c.MaxGenerations)
	assert.Equal(t, d.MutationRate, c.MutationRate)
	assert.Equal(t, d.EliteCount, c.EliteCount)
	assert.Equal(t, d.TournamentSize, c.TournamentSize)
	assert.False(t, c.GroupFamilies)
}

func TestCriteriaNormalizedClamps(t *testing.T) {
	c := Criteria{
		PopulationSize: 4,
		EliteCount:     10,
		TournamentSize: 99,
		MutationRate:   3.5,
	}.normalized()

	assert.Equal(t, 4, c.PopulationSize)
	assert.Equal(t, 3, c.EliteCount)
	assert.Equal(t, 4, c.TournamentSize)
	assert.Equal(t, 1.0, c.MutationRate)
}
