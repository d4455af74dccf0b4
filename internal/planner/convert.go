package planner

import (
	"wedding-planner/internal/repository"
	"wedding-planner/internal/seating"
)

// GuestsFromRows maps stored guests onto optimizer input. Group tags are
// free text in storage; guests sharing a tag get the same numeric group
// ID, numbered in order of first appearance so the mapping is stable.
func GuestsFromRows(rows []repository.Guest) []seating.Guest {
	groupIDs := make(map[string]uint64)
	out := make([]seating.Guest, 0, len(rows))
	for _, g := range rows {
		var groupID uint64
		if g.GroupName.Valid && g.GroupName.String != "" {
			id, ok := groupIDs[g.GroupName.String]
			if !ok {
				id = uint64(len(groupIDs) + 1)
				groupIDs[g.GroupName.String] = id
			}
			groupID = id
		}
		out = append(out, seating.Guest{
			ID:              g.ID,
			Name:            g.Name,
			Side:            seating.Side(g.Side),
			AgeGroup:        seating.AgeGroup(g.AgeGroup),
			GroupID:         groupID,
			NeedsAccessible: g.NeedsAccessible,
		})
	}
	return out
}

// TablesFromRows maps stored tables onto optimizer input.
func TablesFromRows(rows []repository.Table) []seating.Table {
	out := make([]seating.Table, 0, len(rows))
	for _, t := range rows {
		out = append(out, seating.Table{
			ID:         t.ID,
			Name:       t.Name,
			Capacity:   t.Capacity,
			Accessible: t.IsAccessible,
		})
	}
	return out
}

// ConstraintsFromRows maps stored constraints onto optimizer input. The
// nullable pair/table columns become zero IDs when absent; the engine only
// reads the columns that apply to each kind.
func ConstraintsFromRows(rows []repository.Constraint) []seating.Constraint {
	out := make([]seating.Constraint, 0, len(rows))
	for _, c := range rows {
		sc := seating.Constraint{
			ID:     c.ID,
			Kind:   seating.ConstraintKind(c.Kind),
			GuestA: c.GuestA,
			Hard:   c.IsHard,
			Weight: c.Weight,
		}
		if c.GuestB.Valid {
			sc.GuestB = uint64(c.GuestB.Int64)
		}
		if c.TableID.Valid {
			sc.TableID = uint64(c.TableID.Int64)
		}
		out = append(out, sc)
	}
	return out
}

// PruneConstraints drops constraints that reference guests or tables
// missing from the run input. A rule naming a declined guest or a removed
// table should not abort the whole optimization.
func PruneConstraints(cons []seating.Constraint, guests []seating.Guest, tables []seating.Table) []seating.Constraint {
	guestOK := make(map[uint64]bool, len(guests))
	for _, g := range guests {
		guestOK[g.ID] = true
	}
	tableOK := make(map[uint64]bool, len(tables))
	for _, t := range tables {
		tableOK[t.ID] = true
	}

	out := make([]seating.Constraint, 0, len(cons))
	for _, c := range cons {
		if !guestOK[c.GuestA] {
			continue
		}
		switch c.Kind {
		case seating.KindTogether, seating.KindApart:
			if !guestOK[c.GuestB] {
				continue
			}
		case seating.KindAtTable:
			if !tableOK[c.TableID] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
