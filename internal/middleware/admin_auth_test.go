package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		noHeader   bool
		wantStatus int
	}{
		{name: "valid", user: "ops", pass: "s3cret", wantStatus: http.StatusOK},
		{name: "wrong password", user: "ops", pass: "guess", wantStatus: http.StatusUnauthorized},
		{name: "wrong user", user: "root", pass: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "missing header", noHeader: true, wantStatus: http.StatusUnauthorized},
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, AdminAuth("ops", "s3cret"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if !tt.noHeader {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.noHeader && rec.Header().Get(echo.HeaderWWWAuthenticate) == "" {
				t.Fatal("expected a basic auth challenge")
			}
		})
	}
}
