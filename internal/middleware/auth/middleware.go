package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plastware/storefront/internal/tokens"
	"github.com/plastware/storefront/internal/util"
)

// Principal is the request-scoped identity resolved once by the middleware
// and handed to handlers by value. Nothing downstream re-parses the token.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == "admin" }

const principalKey = "principal"

type Middleware struct {
	JWTSecret []byte
}

func New(secret []byte) *Middleware {
	return &Middleware{JWTSecret: secret}
}

type validatorFunc func(p Principal) error

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, nil)
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, func(p Principal) error {
		if !p.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *Middleware) requireWithValidator(next echo.HandlerFunc, validator validatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie("accessToken")
		if err != nil || accessCookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err != nil || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		p := Principal{
			UserID: uint(util.ParseIntDefault(claims.Subject, 0)),
			Role:   claims.Role,
		}
		if p.UserID == 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
		}

		if validator != nil {
			if err := validator(p); err != nil {
				return err
			}
		}

		SetPrincipal(c, p)
		return next(c)
	}
}

// SetPrincipal stores the resolved identity on the echo context. Exposed for
// handler tests that call handlers without the middleware in front.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

func PrincipalFrom(c echo.Context) (Principal, error) {
	p, ok := c.Get(principalKey).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return p, nil
}
