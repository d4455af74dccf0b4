package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wedding-planner/internal/planner"
	"wedding-planner/internal/repository"
)

// newTestHandler builds an EventHandler over a mocked database and a real
// run manager. The returned cleanup closes both.
func newTestHandler(t *testing.T) (*EventHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mgr := planner.NewManager(zap.NewNop(), nil)
	h := NewEventHandler(
		repository.NewEventRepo(db),
		repository.NewGuestRepo(db),
		repository.NewTableRepo(db),
		repository.NewConstraintRepo(db),
		repository.NewAssignmentRepo(db),
		mgr,
	)
	return h, mock, func() {
		mgr.Close()
		_ = db.Close()
	}
}

// request builds an authenticated echo context for one handler call.
// params are route parameter name/value pairs.
func request(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user_id", uint64(1))
	names := make([]string, 0, len(params)/2)
	values := make([]string, 0, len(params)/2)
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func errMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func eventRow(id, ownerID uint64, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "owner_id", "name", "venue", "event_date", "created_at", "updated_at"}).
		AddRow(id, ownerID, name, nil, nil, now, now)
}

func guestCols() []string {
	return []string{"id", "event_id", "name", "group_name", "side", "dietary",
		"age_group", "rsvp_status", "needs_accessible", "notes", "created_at", "updated_at"}
}

func ptr[T any](v T) *T { return &v }
