package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/config"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/validate"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	e := echo.New()
	e.Validator = validate.New()

	return &testEnv{T: t, E: e, DB: db}
}

func (env *testEnv) seedUser(username, role string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(env.T, env.DB.Create(u).Error)
	return u
}

// do builds a request context. Principal injection and path params are left to
// the caller so one helper serves public, user and admin handlers alike.
func (env *testEnv) do(method, target string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func asUser(c echo.Context, userID uint, role string) {
	authmw.SetPrincipal(c, authmw.Principal{UserID: userID, Role: role})
}

func setParam(c echo.Context, name, value string) {
	c.SetParamNames(name)
	c.SetParamValues(value)
}

func requireHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	require.Equal(t, code, he.Code)
	return he
}
