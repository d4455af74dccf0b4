package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestFromBody_AppliesDefaults(t *testing.T) {
	g, msg := guestFromBody(guestBody{Name: "  Aunt Priya  "})

	require.Empty(t, msg)
	assert.Equal(t, "Aunt Priya", g.Name)
	assert.Equal(t, "BOTH", g.Side)
	assert.Equal(t, "ADULT", g.AgeGroup)
	assert.Equal(t, "PENDING", g.RSVPStatus)
	assert.False(t, g.GroupName.Valid)
	assert.False(t, g.Dietary.Valid)
}

func TestGuestFromBody_NormalizesAndKeepsOptionals(t *testing.T) {
	g, msg := guestFromBody(guestBody{
		Name: "Theo", Group: "Okafor family", Side: "groom",
		Dietary: "vegan", AgeGroup: "child", RSVPStatus: "confirmed",
		NeedsAccessible: true, Notes: "window seat",
	})

	require.Empty(t, msg)
	assert.Equal(t, "GROOM", g.Side)
	assert.Equal(t, "CHILD", g.AgeGroup)
	assert.Equal(t, "CONFIRMED", g.RSVPStatus)
	assert.Equal(t, "Okafor family", g.GroupName.String)
	assert.Equal(t, "vegan", g.Dietary.String)
	assert.Equal(t, "window seat", g.Notes.String)
	assert.True(t, g.NeedsAccessible)
}

func TestGuestFromBody_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body guestBody
		want string
	}{
		{"missing name", guestBody{Side: "BRIDE"}, "name is required"},
		{"bad side", guestBody{Name: "x", Side: "EAST"}, "invalid side, want BRIDE, GROOM or BOTH"},
		{"bad age group", guestBody{Name: "x", AgeGroup: "INFANT"}, "invalid age_group, want CHILD, TEEN, ADULT or SENIOR"},
		{"bad rsvp", guestBody{Name: "x", RSVPStatus: "MAYBE"}, "invalid rsvp_status, want PENDING, CONFIRMED or DECLINED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, msg := guestFromBody(tc.body)
			assert.Equal(t, tc.want, msg)
		})
	}
}

func TestCreateGuest_PersistsNormalizedGuest(t *testing.T) {
	h, mock, done := newTestHandler(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery(`FROM events`).WithArgs(5, 1).WillReturnRows(eventRow(5, 1, "Nora & Sam"))
	mock.ExpectExec(`INSERT INTO guests`).
		WithArgs(5, "Aunt Priya", "Sharma family", "BRIDE", nil, "ADULT", "CONFIRMED", false, nil).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(31).
		WillReturnRows(sqlmock.NewRows(guestCols()).
			AddRow(31, 5, "Aunt Priya", "Sharma family", "BRIDE", nil, "ADULT", "CONFIRMED", false, nil, now, now))

	c, rec := request(http.MethodPost, "/v1/events/5/guests",
		`{"name":"Aunt Priya","group":"Sharma family","side":"bride","rsvp_status":"confirmed"}`,
		"id", "5")
	require.NoError(t, h.CreateGuest(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got guestResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(31), got.ID)
	assert.Equal(t, "BRIDE", got.Side)
	require.NotNil(t, got.Group)
	assert.Equal(t, "Sharma family", *got.Group)
	assert.Nil(t, got.Dietary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGuest_UnknownSide(t *testing.T) {
	h, mock, done := newTestHandler(t)
	defer done()

	c, rec := request(http.MethodPost, "/v1/events/5/guests",
		`{"name":"Aunt Priya","side":"EAST"}`, "id", "5")
	require.NoError(t, h.CreateGuest(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid side, want BRIDE, GROOM or BOTH", errMsg(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGuestsBulk_ReportsOffendingRow(t *testing.T) {
	h, mock, done := newTestHandler(t)
	defer done()

	c, rec := request(http.MethodPost, "/v1/events/5/guests/bulk",
		`{"guests":[{"name":"Leah"},{"name":"Theo","side":"EAST"}]}`, "id", "5")
	require.NoError(t, h.CreateGuestsBulk(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "guest 2: invalid side, want BRIDE, GROOM or BOTH", errMsg(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGuestsBulk_EnforcesLimit(t *testing.T) {
	h, mock, done := newTestHandler(t)
	defer done()

	rows := make([]guestBody, bulkGuestLimit+1)
	for i := range rows {
		rows[i] = guestBody{Name: fmt.Sprintf("guest-%d", i+1)}
	}
	payload, err := json.Marshal(map[string]any{"guests": rows})
	require.NoError(t, err)

	c, rec := request(http.MethodPost, "/v1/events/5/guests/bulk", string(payload), "id", "5")
	require.NoError(t, h.CreateGuestsBulk(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, fmt.Sprintf("too many guests, limit is %d per request", bulkGuestLimit), errMsg(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGuest_HidesForeignGuests(t *testing.T) {
	h, mock, done := newTestHandler(t)
	defer done()

	mock.ExpectQuery(`JOIN events e`).WithArgs(31, 1).WillReturnError(sql.ErrNoRows)

	c, rec := request(http.MethodGet, "/v1/guests/31", "", "id", "31")
	require.NoError(t, h.GetGuest(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "guest not found", errMsg(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
