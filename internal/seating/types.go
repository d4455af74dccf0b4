// Package seating implements the genetic seating optimizer. Given the
// guest list, the table layout and a set of constraints it searches for
// an assignment of guests to tables that honors hard constraints and
// minimizes soft penalties. The search is deterministic for a fixed
// Criteria.Seed.
package seating

import (
	"errors"
	"time"
)

// Side records which side of the wedding party a guest belongs to.
type Side string

const (
	SideBride Side = "BRIDE"
	SideGroom Side = "GROOM"
	SideBoth  Side = "BOTH" // shared friends, officiants, vendors
)

// AgeGroup buckets guests for the age-balancing criterion.
type AgeGroup string

const (
	AgeAdult  AgeGroup = "ADULT"
	AgeChild  AgeGroup = "CHILD"
	AgeTeen   AgeGroup = "TEEN"
	AgeSenior AgeGroup = "SENIOR"
)

// ConstraintKind enumerates the supported seating rules.
type ConstraintKind string

const (
	// KindTogether requires (or prefers) that GuestA and GuestB share a table.
	KindTogether ConstraintKind = "TOGETHER"
	// KindApart requires (or prefers) that GuestA and GuestB sit at different tables.
	KindApart ConstraintKind = "APART"
	// KindAtTable pins GuestA to a specific table.
	KindAtTable ConstraintKind = "AT_TABLE"
	// KindAccessible restricts GuestA to tables marked accessible.
	KindAccessible ConstraintKind = "ACCESSIBLE"
)

// Guest is one attendee to be seated. GroupID links members of the same
// family or party; zero means the guest is not grouped.
type Guest struct {
	ID              uint64
	Name            string
	Side            Side
	AgeGroup        AgeGroup
	GroupID         uint64
	NeedsAccessible bool
}

// Table is one table in the floor plan.
type Table struct {
	ID         uint64
	Name       string
	Capacity   int
	Accessible bool
}

// Constraint is a single seating rule. Hard constraints must hold in the
// final assignment when Criteria.RespectAllConstraints is set; soft
// constraints add Weight to the penalty when violated. GuestB is only
// meaningful for pair kinds, TableID only for AT_TABLE.
type Constraint struct {
	ID      uint64
	Kind    ConstraintKind
	GuestA  uint64
	GuestB  uint64
	TableID uint64
	Hard    bool
	Weight  float64
}

// Criteria tunes the optimizer. Unset numeric fields fall back to the
// values from DefaultCriteria; boolean toggles are taken as given.
type Criteria struct {
	// Search parameters.
	PopulationSize  int
	MaxGenerations  int
	MutationRate    float64 // probability per gene, clamped to [0,1]
	EliteCount      int
	TournamentSize  int
	StagnationLimit int   // stop after this many generations without improvement; 0 disables
	Seed            int64 // 0 seeds from the clock; any other value makes runs reproducible
	Workers         int   // parallel fitness evaluators; 0 uses GOMAXPROCS

	// Preference toggles. Each enabled toggle contributes a soft scoring term.
	GroupFamilies           bool // keep guests sharing a GroupID at one table
	MixSides                bool // favor tables mixing bride and groom sides
	PrioritizeAccessibility bool // seat NeedsAccessible guests at accessible tables
	BalanceAges             bool // spread age groups evenly across tables
	MinimizeEmptySeats      bool // pack occupied tables instead of spreading guests thin
	RespectAllConstraints   bool // fail the run if any hard constraint is still violated
}

// DefaultCriteria returns the settings used when a caller supplies none.
func DefaultCriteria() Criteria {
	return Criteria{
		PopulationSize:          120,
		MaxGenerations:          500,
		MutationRate:            0.05,
		EliteCount:              4,
		TournamentSize:          3,
		StagnationLimit:         60,
		GroupFamilies:           true,
		PrioritizeAccessibility: true,
		MinimizeEmptySeats:      true,
		RespectAllConstraints:   true,
	}
}

// Placement assigns one guest to one table.
type Placement struct {
	GuestID uint64 `json:"guest_id"`
	TableID uint64 `json:"table_id"`
}

// Result is the outcome of a finished (or interrupted) run. Placements is
// sorted by guest ID and references only guests and tables that were part
// of the input. Score is 1/(1+penalty), so 1.0 means no term of the
// objective was violated at all.
type Result struct {
	Placements     []Placement   `json:"placements"`
	Score          float64       `json:"score"`
	HardViolations int           `json:"hard_violations"`
	SoftPenalty    float64       `json:"soft_penalty"`
	Generations    int           `json:"generations"`
	Stagnated      bool          `json:"stagnated"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Progress is a snapshot emitted to the OnProgress callback while the
// search is running.
type Progress struct {
	Generation     int     `json:"generation"`
	MaxGenerations int     `json:"max_generations"`
	BestScore      float64 `json:"best_score"`
	HardViolations int     `json:"hard_violations"`
}

var (
	// ErrInfeasible is returned before the search starts when no assignment
	// can possibly satisfy the hard constraints (e.g. more guests than seats).
	ErrInfeasible = errors.New("seating: infeasible input")

	// ErrConstraintsUnsatisfied is returned after the search when
	// RespectAllConstraints is set and the best assignment found still
	// violates at least one hard constraint.
	ErrConstraintsUnsatisfied = errors.New("seating: hard constraints unsatisfied")
)
