package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "u1",
		"role":  "admin",
		"email": "alice@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

// runAuth executes the middleware and renders any error through Echo's
// default error handler.
func runAuth(t *testing.T, req *http.Request, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := Auth("secret")(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func unreachable(t *testing.T) echo.HandlerFunc {
	return func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", validClaims()))

	called := false
	rec := runAuth(t, req, func(c echo.Context) error {
		called = true
		if c.Get("user_id") != "u1" {
			t.Fatalf("user_id not set")
		}
		if c.Get("role") != "admin" {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := validClaims()
	delete(noExp, "exp")
	noSub := validClaims()
	delete(noSub, "sub")

	cases := map[string]string{
		"missing header":   "",
		"wrong scheme":     "Token abc",
		"garbage token":    "Bearer not-a-token",
		"wrong secret":     "Bearer " + signToken(t, "other", validClaims()),
		"expired":          "Bearer " + signToken(t, "secret", expired),
		"no expiry":        "Bearer " + signToken(t, "secret", noExp),
		"no subject claim": "Bearer " + signToken(t, "secret", noSub),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := runAuth(t, req, unreachable(t))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthMiddleware_QueryTokenOnlyForUpgrades(t *testing.T) {
	token := signToken(t, "secret", validClaims())

	plain := httptest.NewRequest(http.MethodGet, "/tasks?token="+token, nil)
	if rec := runAuth(t, plain, unreachable(t)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("query token on a plain request must be rejected, got %d", rec.Code)
	}

	upgrade := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	called := false
	runAuth(t, upgrade, func(c echo.Context) error {
		called = true
		return nil
	})
	if !called {
		t.Fatalf("query token on an upgrade request must be accepted")
	}
}
