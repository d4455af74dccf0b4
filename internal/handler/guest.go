package handler // guest management endpoints

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/repository"
)

// bulkGuestLimit caps one bulk import; bigger weddings upload in chunks.
const bulkGuestLimit = 500

type guestResp struct {
	ID              uint64    `json:"id"`
	EventID         uint64    `json:"event_id"`
	Name            string    `json:"name"`
	Group           *string   `json:"group"`
	Side            string    `json:"side"`
	Dietary         *string   `json:"dietary"`
	AgeGroup        string    `json:"age_group"`
	RSVPStatus      string    `json:"rsvp_status"`
	NeedsAccessible bool      `json:"needs_accessible"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toGuestResp(g *repository.Guest) guestResp {
	out := guestResp{
		ID:              g.ID,
		EventID:         g.EventID,
		Name:            g.Name,
		Side:            g.Side,
		AgeGroup:        g.AgeGroup,
		RSVPStatus:      g.RSVPStatus,
		NeedsAccessible: g.NeedsAccessible,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
	if g.GroupName.Valid {
		v := g.GroupName.String
		out.Group = &v
	}
	if g.Dietary.Valid {
		v := g.Dietary.String
		out.Dietary = &v
	}
	if g.Notes.Valid {
		v := g.Notes.String
		out.Notes = &v
	}
	return out
}

// guestBody is the create/update payload. Side, age group and RSVP fall
// back to BOTH / ADULT / PENDING when omitted so quick imports only need
// a name.
type guestBody struct {
	Name            string `json:"name"`
	Group           string `json:"group"`
	Side            string `json:"side"`
	Dietary         string `json:"dietary"`
	AgeGroup        string `json:"age_group"`
	RSVPStatus      string `json:"rsvp_status"`
	NeedsAccessible bool   `json:"needs_accessible"`
	Notes           string `json:"notes"`
}

// guestFromBody validates a payload and maps it onto the storage model.
// The returned message is empty when the payload is valid.
func guestFromBody(b guestBody) (repository.Guest, string) {
	var g repository.Guest
	g.Name = strings.TrimSpace(b.Name)
	if g.Name == "" {
		return g, "name is required"
	}
	g.Side = strings.ToUpper(strings.TrimSpace(b.Side))
	if g.Side == "" {
		g.Side = "BOTH"
	}
	switch g.Side {
	case "BRIDE", "GROOM", "BOTH":
	default:
		return g, "invalid side, want BRIDE, GROOM or BOTH"
	}
	g.AgeGroup = strings.ToUpper(strings.TrimSpace(b.AgeGroup))
	if g.AgeGroup == "" {
		g.AgeGroup = "ADULT"
	}
	switch g.AgeGroup {
	case "CHILD", "TEEN", "ADULT", "SENIOR":
	default:
		return g, "invalid age_group, want CHILD, TEEN, ADULT or SENIOR"
	}
	g.RSVPStatus = strings.ToUpper(strings.TrimSpace(b.RSVPStatus))
	if g.RSVPStatus == "" {
		g.RSVPStatus = "PENDING"
	}
	switch g.RSVPStatus {
	case "PENDING", "CONFIRMED", "DECLINED":
	default:
		return g, "invalid rsvp_status, want PENDING, CONFIRMED or DECLINED"
	}
	if group := strings.TrimSpace(b.Group); group != "" {
		g.GroupName = sql.NullString{String: group, Valid: true}
	}
	if dietary := strings.TrimSpace(b.Dietary); dietary != "" {
		g.Dietary = sql.NullString{String: dietary, Valid: true}
	}
	if notes := strings.TrimSpace(b.Notes); notes != "" {
		g.Notes = sql.NullString{String: notes, Valid: true}
	}
	g.NeedsAccessible = b.NeedsAccessible
	return g, ""
}

// CreateGuest handles POST /v1/events/:id/guests.
func (h *EventHandler) CreateGuest(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body guestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	g, msg := guestFromBody(body)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	ctx := c.Request().Context()
	if _, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	g.EventID = eventID
	if err := h.Guests.Create(ctx, &g); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create guest"})
	}
	return c.JSON(http.StatusCreated, toGuestResp(&g))
}

// CreateGuestsBulk handles POST /v1/events/:id/guests/bulk. The whole
// batch is validated before anything is written, so a bad row rejects the
// import instead of half-applying it.
func (h *EventHandler) CreateGuestsBulk(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		Guests []guestBody `json:"guests"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(body.Guests) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "guests is required"})
	}
	if len(body.Guests) > bulkGuestLimit {
		return c.JSON(http.StatusBadRequest,
			map[string]string{"error": fmt.Sprintf("too many guests, limit is %d per request", bulkGuestLimit)})
	}
	rows := make([]repository.Guest, 0, len(body.Guests))
	for i, b := range body.Guests {
		g, msg := guestFromBody(b)
		if msg != "" {
			return c.JSON(http.StatusBadRequest,
				map[string]string{"error": fmt.Sprintf("guest %d: %s", i+1, msg)})
		}
		g.EventID = eventID
		rows = append(rows, g)
	}
	ctx := c.Request().Context()
	if _, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	if err := h.Guests.CreateBulk(ctx, rows); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create guests"})
	}
	return c.JSON(http.StatusCreated, map[string]any{"created": len(rows)})
}

// ListGuests handles GET /v1/events/:id/guests. With ?seatable=true only
// guests who have not declined are returned, which is exactly the set a
// seating run would place.
func (h *EventHandler) ListGuests(c echo.Context) error {
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
	var guests []repository.Guest
	if c.QueryParam("seatable") == "true" {
		guests, err = h.Guests.ListSeatableByEvent(ctx, eventID)
	} else {
		guests, err = h.Guests.ListByEvent(ctx, eventID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	items := make([]guestResp, 0, len(guests))
	for i := range guests {
		items = append(items, toGuestResp(&guests[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetGuest handles GET /v1/guests/:id.
func (h *EventHandler) GetGuest(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	g, err := h.Guests.GetByIDAndOwner(c.Request().Context(), id, ownerID)
	if err != nil {
		if err == repository.ErrGuestNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toGuestResp(g))
}

// UpdateGuest handles PUT/PATCH /v1/guests/:id.
func (h *EventHandler) UpdateGuest(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body guestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	g, msg := guestFromBody(body)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	g.ID = id
	if err := h.Guests.UpdateByIDAndOwner(c.Request().Context(), &g, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	updated, err := h.Guests.GetByIDAndOwner(c.Request().Context(), id, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toGuestResp(updated))
}

// DeleteGuest handles DELETE /v1/guests/:id. Constraints and chart rows
// referencing the guest are removed with them.
func (h *EventHandler) DeleteGuest(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Guests.DeleteByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		if err == repository.ErrGuestNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
