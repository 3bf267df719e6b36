package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestWithAuthBearerToken(t *testing.T) {
	t.Parallel()
	secret := []byte("test-secret")
	tok, err := SignJWT("user-42", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := withAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}, secret)
	if err := handler(c); err != nil {
		t.Fatalf("authenticated request rejected: %v", err)
	}
	if rec.Body.String() != "user-42" {
		t.Fatalf("subject = %q, want user-42", rec.Body.String())
	}
}

func TestWithAuthCookie(t *testing.T) {
	t.Parallel()
	secret := []byte("test-secret")
	tok, _ := SignJWT("user-7", secret, time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tok})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := withAuth(func(c echo.Context) error { return c.NoContent(http.StatusOK) }, secret)
	if err := handler(c); err != nil {
		t.Fatalf("cookie auth rejected: %v", err)
	}
	if got := c.Get("user_id"); got != "user-7" {
		t.Fatalf("user_id = %v, want user-7", got)
	}
}

func TestWithAuthRejections(t *testing.T) {
	t.Parallel()
	secret := []byte("test-secret")
	expired, _ := SignJWT("user-1", secret, -time.Hour)
	wrongKey, _ := SignJWT("user-1", []byte("other-secret"), time.Hour)
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	wrongIssuer, _ := foreign.SignedString(secret)

	cases := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"missing token", func(r *http.Request) {}},
		{"expired token", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+expired) }},
		{"wrong key", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+wrongKey) }},
		{"wrong issuer", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+wrongIssuer) }},
		{"malformed", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt") }},
	}
	for _, tc := range cases {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		tc.setup(req)
		c := e.NewContext(req, httptest.NewRecorder())

		handler := withAuth(func(c echo.Context) error { return c.NoContent(http.StatusOK) }, secret)
		err := handler(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", tc.name, err)
		}
	}
}
