package handler // seating rule endpoints

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/repository"
)

type constraintResp struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	Kind      string    `json:"kind"`
	GuestA    uint64    `json:"guest_a"`
	GuestB    *uint64   `json:"guest_b"`
	TableID   *uint64   `json:"table_id"`
	IsHard    bool      `json:"is_hard"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

func toConstraintResp(cn *repository.Constraint) constraintResp {
	out := constraintResp{
		ID:        cn.ID,
		EventID:   cn.EventID,
		Kind:      cn.Kind,
		GuestA:    cn.GuestA,
		IsHard:    cn.IsHard,
		Weight:    cn.Weight,
		CreatedAt: cn.CreatedAt,
	}
	if cn.GuestB.Valid {
		v := uint64(cn.GuestB.Int64)
		out.GuestB = &v
	}
	if cn.TableID.Valid {
		v := uint64(cn.TableID.Int64)
		out.TableID = &v
	}
	return out
}

// CreateConstraint handles POST /v1/events/:id/constraints. Pair kinds
// need guest_b, AT_TABLE needs table_id, and every referenced guest or
// table must belong to the same event.
func (h *EventHandler) CreateConstraint(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		Kind    string  `json:"kind"`
		GuestA  uint64  `json:"guest_a"`
		GuestB  uint64  `json:"guest_b"`
		TableID uint64  `json:"table_id"`
		IsHard  bool    `json:"is_hard"`
		Weight  float64 `json:"weight"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	kind := strings.ToUpper(strings.TrimSpace(body.Kind))
	switch kind {
	case "TOGETHER", "APART", "AT_TABLE", "ACCESSIBLE":
	default:
		return c.JSON(http.StatusBadRequest,
			map[string]string{"error": "invalid kind, want TOGETHER, APART, AT_TABLE or ACCESSIBLE"})
	}
	if body.GuestA == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "guest_a is required"})
	}

	cn := &repository.Constraint{
		EventID: eventID,
		Kind:    kind,
		GuestA:  body.GuestA,
		IsHard:  body.IsHard,
		Weight:  body.Weight,
	}
	// Unweighted rules default to the optimizer's soft-constraint weight.
	if cn.Weight <= 0 {
		cn.Weight = 10
	}
	switch kind {
	case "TOGETHER", "APART":
		if body.GuestB == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "guest_b is required for pair constraints"})
		}
		if body.GuestB == body.GuestA {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "guest_b must differ from guest_a"})
		}
		cn.GuestB = sql.NullInt64{Int64: int64(body.GuestB), Valid: true}
	case "AT_TABLE":
		if body.TableID == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "table_id is required for AT_TABLE"})
		}
		cn.TableID = sql.NullInt64{Int64: int64(body.TableID), Valid: true}
	}

	ctx := c.Request().Context()
	if _, err := h.Events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	// Referential checks: all IDs must resolve inside this event.
	ga, err := h.Guests.GetByIDAndOwner(ctx, body.GuestA, ownerID)
	if err != nil || ga.EventID != eventID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "guest_a does not belong to this event"})
	}
	if cn.GuestB.Valid {
		gb, err := h.Guests.GetByIDAndOwner(ctx, uint64(cn.GuestB.Int64), ownerID)
		if err != nil || gb.EventID != eventID {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "guest_b does not belong to this event"})
		}
	}
	if cn.TableID.Valid {
		tbl, err := h.Tables.GetByIDAndOwner(ctx, uint64(cn.TableID.Int64), ownerID)
		if err != nil || tbl.EventID != eventID {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "table_id does not belong to this event"})
		}
	}

	if err := h.Constraints.Create(ctx, cn); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create constraint"})
	}
	return c.JSON(http.StatusCreated, toConstraintResp(cn))
}

// ListConstraints handles GET /v1/events/:id/constraints.
func (h *EventHandler) ListConstraints(c echo.Context) error {
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
	cons, err := h.Constraints.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	items := make([]constraintResp, 0, len(cons))
	for i := range cons {
		items = append(items, toConstraintResp(&cons[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// DeleteConstraint handles DELETE /v1/constraints/:id.
func (h *EventHandler) DeleteConstraint(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Constraints.DeleteByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		if err == repository.ErrConstraintNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "constraint not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
