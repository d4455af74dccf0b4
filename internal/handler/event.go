package handler // event CRUD for the authenticated planner surface

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/repository"
)

// dateLayout is the wire format for event dates. Times of day are not
// tracked; the optimizer and the chart only care about the day.
const dateLayout = "2006-01-02"

// eventResp is the JSON shape of an event. Nullable columns come out as
// null instead of the sql wrapper structs.
type eventResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Venue     *string   `json:"venue"`
	EventDate *string   `json:"event_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// eventSummary carries the dashboard counters shown next to an event:
// RSVP totals and how many seats the current floor plan offers.
type eventSummary struct {
	GuestsByRSVP map[string]int `json:"guests_by_rsvp"`
	TotalSeats   int            `json:"total_seats"`
}

type eventDetailResp struct {
	eventResp
	Summary eventSummary `json:"summary"`
}

func toEventResp(e *repository.Event) eventResp {
	out := eventResp{
		ID:        e.ID,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Venue.Valid {
		v := e.Venue.String
		out.Venue = &v
	}
	if e.EventDate.Valid {
		d := e.EventDate.Time.Format(dateLayout)
		out.EventDate = &d
	}
	return out
}

// bindEventBody validates the shared create/update payload and fills the
// nullable columns. An empty venue or date clears the column.
func bindEventBody(c echo.Context, e *repository.Event) (int, string) {
	var body struct {
		Name      string `json:"name"`
		Venue     string `json:"venue"`
		EventDate string `json:"event_date"`
	}
	if err := c.Bind(&body); err != nil {
		return http.StatusBadRequest, "invalid request body"
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return http.StatusBadRequest, "name is required"
	}
	e.Name = name
	if venue := strings.TrimSpace(body.Venue); venue != "" {
		e.Venue = sql.NullString{String: venue, Valid: true}
	} else {
		e.Venue = sql.NullString{}
	}
	if ds := strings.TrimSpace(body.EventDate); ds != "" {
		d, err := time.Parse(dateLayout, ds)
		if err != nil {
			return http.StatusBadRequest, "invalid event_date, want YYYY-MM-DD"
		}
		e.EventDate = sql.NullTime{Time: d, Valid: true}
	} else {
		e.EventDate = sql.NullTime{}
	}
	return 0, ""
}

// CreateEvent handles POST /v1/events.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	ev := &repository.Event{OwnerID: ownerID}
	if code, msg := bindEventBody(c, ev); code != 0 {
		return c.JSON(code, map[string]string{"error": msg})
	}
	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create event"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// ListEvents handles GET /v1/events and returns the caller's events.
func (h *EventHandler) ListEvents(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	events, err := h.Events.ListByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	items := make([]eventResp, 0, len(events))
	for _, ev := range events {
		items = append(items, toEventResp(ev))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetEvent handles GET /v1/events/:id. The response includes RSVP counts
// and total seat capacity so a dashboard needs a single round trip.
func (h *EventHandler) GetEvent(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	ev, err := h.Events.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	counts, err := h.Guests.CountByEventAndRSVP(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	seats, err := h.Tables.TotalCapacity(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, eventDetailResp{
		eventResp: toEventResp(ev),
		Summary:   eventSummary{GuestsByRSVP: counts, TotalSeats: seats},
	})
}

// UpdateEvent handles PUT/PATCH /v1/events/:id.
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ev := &repository.Event{ID: id, OwnerID: ownerID}
	if code, msg := bindEventBody(c, ev); code != 0 {
		return c.JSON(code, map[string]string{"error": msg})
	}
	if err := h.Events.UpdateByIDAndOwner(c.Request().Context(), ev); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	updated, err := h.Events.GetByIDAndOwner(c.Request().Context(), id, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toEventResp(updated))
}

// DeleteEvent handles DELETE /v1/events/:id. Guests, tables, constraints
// and the saved chart go with it.
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Events.DeleteByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
