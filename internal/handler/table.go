package handler // table (floor plan) endpoints

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"wedding-planner/internal/repository"
)

type tableResp struct {
	ID           uint64    `json:"id"`
	EventID      uint64    `json:"event_id"`
	Name         string    `json:"name"`
	Capacity     int       `json:"capacity"`
	Shape        string    `json:"shape"`
	PosX         float64   `json:"pos_x"`
	PosY         float64   `json:"pos_y"`
	IsAccessible bool      `json:"is_accessible"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toTableResp(t *repository.Table) tableResp {
	return tableResp{
		ID:           t.ID,
		EventID:      t.EventID,
		Name:         t.Name,
		Capacity:     t.Capacity,
		Shape:        t.Shape,
		PosX:         t.PosX,
		PosY:         t.PosY,
		IsAccessible: t.IsAccessible,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type tableBody struct {
	Name         string  `json:"name"`
	Capacity     int     `json:"capacity"`
	Shape        string  `json:"shape"`
	PosX         float64 `json:"pos_x"`
	PosY         float64 `json:"pos_y"`
	IsAccessible bool    `json:"is_accessible"`
}

// tableFromBody validates a payload and maps it onto the storage model.
// The returned message is empty when the payload is valid.
func tableFromBody(b tableBody) (repository.Table, string) {
	var t repository.Table
	t.Name = strings.TrimSpace(b.Name)
	if t.Name == "" {
		return t, "name is required"
	}
	if b.Capacity < 1 {
		return t, "capacity must be at least 1"
	}
	t.Capacity = b.Capacity
	t.Shape = strings.ToUpper(strings.TrimSpace(b.Shape))
	if t.Shape == "" {
		t.Shape = "ROUND"
	}
	switch t.Shape {
	case "ROUND", "RECTANGLE", "SQUARE", "OVAL":
	default:
		return t, "invalid shape, want ROUND, RECTANGLE, SQUARE or OVAL"
	}
	t.PosX = b.PosX
	t.PosY = b.PosY
	t.IsAccessible = b.IsAccessible
	return t, ""
}

// CreateTable handles POST /v1/events/:id/tables.
func (h *EventHandler) CreateTable(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body tableBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	tbl, msg := tableFromBody(body)
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
	tbl.EventID = eventID
	if err := h.Tables.Create(ctx, &tbl); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create table"})
	}
	return c.JSON(http.StatusCreated, toTableResp(&tbl))
}

// ListTables handles GET /v1/events/:id/tables.
func (h *EventHandler) ListTables(c echo.Context) error {
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
	tables, err := h.Tables.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	items := make([]tableResp, 0, len(tables))
	for i := range tables {
		items = append(items, toTableResp(&tables[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetTable handles GET /v1/tables/:id.
func (h *EventHandler) GetTable(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	tbl, err := h.Tables.GetByIDAndOwner(c.Request().Context(), id, ownerID)
	if err != nil {
		if err == repository.ErrTableNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toTableResp(tbl))
}

// UpdateTable handles PUT/PATCH /v1/tables/:id.
func (h *EventHandler) UpdateTable(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body tableBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	tbl, msg := tableFromBody(body)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	tbl.ID = id
	if err := h.Tables.UpdateByIDAndOwner(c.Request().Context(), &tbl, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	updated, err := h.Tables.GetByIDAndOwner(c.Request().Context(), id, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toTableResp(updated))
}

// DeleteTable handles DELETE /v1/tables/:id. While the saved chart still
// seats guests at the table the delete answers 409; clear or re-apply the
// chart first.
func (h *EventHandler) DeleteTable(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Tables.DeleteByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		if err == repository.ErrTableNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "table not found"})
		}
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, map[string]string{"error": "table still has seated guests"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
