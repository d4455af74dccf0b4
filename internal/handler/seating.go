package handler // seating run lifecycle and the saved chart

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/planner"
	"wedding-planner/internal/repository"
	"wedding-planner/internal/seating"
)

// Upper bounds for caller-supplied search knobs. Runs execute on the API
// node, so a single request must not be able to occupy it for hours.
const (
	maxPopulationSize = 5000
	maxGenerationsCap = 100000
)

// criteriaBody overrides DefaultCriteria per request. Pointer fields
// distinguish "not sent" from an explicit zero.
type criteriaBody struct {
	PopulationSize  *int     `json:"population_size"`
	MaxGenerations  *int     `json:"max_generations"`
	MutationRate    *float64 `json:"mutation_rate"`
	EliteCount      *int     `json:"elite_count"`
	TournamentSize  *int     `json:"tournament_size"`
	StagnationLimit *int     `json:"stagnation_limit"`
	Seed            *int64   `json:"seed"`
	Workers         *int     `json:"workers"`

	GroupFamilies           *bool `json:"group_families"`
	MixSides                *bool `json:"mix_sides"`
	PrioritizeAccessibility *bool `json:"prioritize_accessibility"`
	BalanceAges             *bool `json:"balance_ages"`
	MinimizeEmptySeats      *bool `json:"minimize_empty_seats"`
	RespectAllConstraints   *bool `json:"respect_all_constraints"`
}

// criteriaFromBody merges the request onto the defaults. The returned
// message is empty when every supplied knob is acceptable.
func criteriaFromBody(b criteriaBody) (seating.Criteria, string) {
	crit := seating.DefaultCriteria()
	if b.PopulationSize != nil {
		if *b.PopulationSize < 2 || *b.PopulationSize > maxPopulationSize {
			return crit, "population_size out of range"
		}
		crit.PopulationSize = *b.PopulationSize
	}
	if b.MaxGenerations != nil {
		if *b.MaxGenerations < 1 || *b.MaxGenerations > maxGenerationsCap {
			return crit, "max_generations out of range"
		}
		crit.MaxGenerations = *b.MaxGenerations
	}
	if b.MutationRate != nil {
		if *b.MutationRate < 0 || *b.MutationRate > 1 {
			return crit, "mutation_rate must be between 0 and 1"
		}
		crit.MutationRate = *b.MutationRate
	}
	if b.EliteCount != nil {
		if *b.EliteCount < 0 {
			return crit, "elite_count must not be negative"
		}
		crit.EliteCount = *b.EliteCount
	}
	if b.TournamentSize != nil {
		if *b.TournamentSize < 2 {
			return crit, "tournament_size must be at least 2"
		}
		crit.TournamentSize = *b.TournamentSize
	}
	if b.StagnationLimit != nil {
		if *b.StagnationLimit < 0 {
			return crit, "stagnation_limit must not be negative"
		}
		crit.StagnationLimit = *b.StagnationLimit
	}
	if b.Seed != nil {
		crit.Seed = *b.Seed
	}
	if b.Workers != nil {
		if *b.Workers < 0 {
			return crit, "workers must not be negative"
		}
		crit.Workers = *b.Workers
	}
	if b.GroupFamilies != nil {
		crit.GroupFamilies = *b.GroupFamilies
	}
	if b.MixSides != nil {
		crit.MixSides = *b.MixSides
	}
	if b.PrioritizeAccessibility != nil {
		crit.PrioritizeAccessibility = *b.PrioritizeAccessibility
	}
	if b.BalanceAges != nil {
		crit.BalanceAges = *b.BalanceAges
	}
	if b.MinimizeEmptySeats != nil {
		crit.MinimizeEmptySeats = *b.MinimizeEmptySeats
	}
	if b.RespectAllConstraints != nil {
		crit.RespectAllConstraints = *b.RespectAllConstraints
	}
	return crit, ""
}

// StartSeatingRun handles POST /v1/events/:id/seating/runs. It snapshots
// the event's guests, tables and rules, starts the optimizer in the
// background and answers 202 with the run to poll.
func (h *EventHandler) StartSeatingRun(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body criteriaBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	crit, msg := criteriaFromBody(body)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	ev, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	guestRows, err := h.Guests.ListSeatableByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	if len(guestRows) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "no guests to seat"})
	}
	tableRows, err := h.Tables.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	conRows, err := h.Constraints.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	guests := planner.GuestsFromRows(guestRows)
	tables := planner.TablesFromRows(tableRows)
	cons := planner.PruneConstraints(planner.ConstraintsFromRows(conRows), guests, tables)

	view, err := h.Runs.Start(eventID, ev.Name, guests, tables, cons, crit)
	if err != nil {
		if err == planner.ErrRunActive {
			return c.JSON(http.StatusConflict,
				map[string]string{"error": "an optimization is already running for this event"})
		}
		// Engine rejections are input problems: infeasible capacity,
		// contradictory hard rules, pins over capacity.
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, view)
}

// GetCurrentSeatingRun handles GET /v1/events/:id/seating/runs. It
// returns the running run when there is one, otherwise the latest
// finished run the manager still remembers.
func (h *EventHandler) GetCurrentSeatingRun(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if _, err := h.Events.GetByIDAndOwner(c.Request().Context(), eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	view, err := h.Runs.GetForEvent(eventID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no optimization run for this event"})
	}
	return c.JSON(http.StatusOK, view)
}

// getOwnedRun resolves a run id within an owned event. It answers nil and
// writes the error response itself when the run cannot be served.
func (h *EventHandler) getOwnedRun(c echo.Context) (*planner.RunView, error) {
	ownerID, err := getUserID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if _, err := h.Events.GetByIDAndOwner(c.Request().Context(), eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	view, err := h.Runs.Get(c.Param("run_id"))
	if err != nil || view.EventID != eventID {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return &view, nil
}

// GetSeatingRun handles GET /v1/events/:id/seating/runs/:run_id. While
// the run is RUNNING the progress field carries live generation counts;
// once COMPLETED the result holds the proposed chart.
func (h *EventHandler) GetSeatingRun(c echo.Context) error {
	view, errResp := h.getOwnedRun(c)
	if view == nil {
		return errResp
	}
	return c.JSON(http.StatusOK, view)
}

// CancelSeatingRun handles DELETE /v1/events/:id/seating/runs/:run_id.
// Cancelling an already finished run is a no-op.
func (h *EventHandler) CancelSeatingRun(c echo.Context) error {
	view, errResp := h.getOwnedRun(c)
	if view == nil {
		return errResp
	}
	if err := h.Runs.Cancel(view.ID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ApplySeatingRun handles POST /v1/events/:id/seating/runs/:run_id/apply.
// Only a COMPLETED run can be applied; the previous chart is replaced in
// one transaction, so a failed apply leaves it untouched.
func (h *EventHandler) ApplySeatingRun(c echo.Context) error {
	view, errResp := h.getOwnedRun(c)
	if view == nil {
		return errResp
	}
	if view.State != planner.StateCompleted || view.Result == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "run is not completed"})
	}
	rows := make([]repository.Assignment, 0, len(view.Result.Placements))
	for _, p := range view.Result.Placements {
		rows = append(rows, repository.Assignment{GuestID: p.GuestID, TableID: p.TableID})
	}
	err := h.Assignments.ReplaceForEvent(c.Request().Context(), view.EventID, view.ID, view.Result.Score, rows)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not save chart"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run_id":  view.ID,
		"score":   view.Result.Score,
		"applied": len(rows),
	})
}

type chartItem struct {
	GuestID uint64 `json:"guest_id"`
	TableID uint64 `json:"table_id"`
}

type chartResp struct {
	RunID     string      `json:"run_id,omitempty"`
	Score     float64     `json:"score,omitempty"`
	AppliedAt *time.Time  `json:"applied_at,omitempty"`
	Items     []chartItem `json:"items"`
}

// GetChart handles GET /v1/events/:id/seating/assignments and returns the
// persisted chart. An event without an applied chart yields empty items.
func (h *EventHandler) GetChart(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	rows, err := h.Assignments.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	resp := chartResp{Items: make([]chartItem, 0, len(rows))}
	if len(rows) > 0 {
		resp.RunID = rows[0].RunID
		resp.Score = rows[0].Score
		applied := rows[0].CreatedAt
		resp.AppliedAt = &applied
	}
	for _, a := range rows {
		resp.Items = append(resp.Items, chartItem{GuestID: a.GuestID, TableID: a.TableID})
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearChart handles DELETE /v1/events/:id/seating/assignments.
func (h *EventHandler) ClearChart(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	if err := h.Assignments.DeleteForEvent(ctx, eventID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
