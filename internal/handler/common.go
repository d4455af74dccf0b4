package handler // shared pieces of the event-scoped handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/planner"
	"wedding-planner/internal/repository"
)

// EventHandler serves every event-scoped resource: the events themselves,
// their guests, tables, constraints, seating runs and the saved chart.
type EventHandler struct {
	Events      *repository.EventRepo
	Guests      *repository.GuestRepo
	Tables      *repository.TableRepo
	Constraints *repository.ConstraintRepo
	Assignments *repository.AssignmentRepo
	Runs        *planner.Manager
}

// NewEventHandler wires the handler with its repositories and the run
// manager. All dependencies are required.
func NewEventHandler(
	events *repository.EventRepo,
	guests *repository.GuestRepo,
	tables *repository.TableRepo,
	constraints *repository.ConstraintRepo,
	assignments *repository.AssignmentRepo,
	runs *planner.Manager,
) *EventHandler {
	if events == nil || guests == nil || tables == nil || constraints == nil || assignments == nil || runs == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{
		Events:      events,
		Guests:      guests,
		Tables:      tables,
		Constraints: constraints,
		Assignments: assignments,
		Runs:        runs,
	}
}

// getUserID extracts the authenticated user's ID from the echo context.
// The JWT middleware stores the raw claim value, whose concrete type
// depends on how the token was parsed, so every plausible type is handled.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		id, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0, errors.New("invalid user id in token")
		}
		return id, nil
	default:
		return 0, errors.New("user id not found in context")
	}
}
