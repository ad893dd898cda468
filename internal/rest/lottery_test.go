package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"luckyDraw/domain"
	"luckyDraw/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type fakeLottery struct {
	err    error
	userID uint64
}

func (f *fakeLottery) Draw(ctx context.Context, eventID, userID uint64, keepResult bool) (string, error) {
	f.userID = userID
	return "A", f.err
}

func (f *fakeLottery) IsEventActive(ctx context.Context, eventID uint64) (bool, error) {
	return true, f.err
}

func newServer(lottery LotteryService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler

	h := NewLotteryHandler(lottery, nil, validator.New())
	e.POST("/events/:id/draw", h.Draw)
	e.GET("/events/:id/active", h.EventActive)

	return e
}

func TestLotteryHandler_Draw(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
	}{
		{"ok", "/events/1/draw", `{"user_id": 9, "keep_result": true}`, nil, http.StatusOK},
		{"bad event id", "/events/x/draw", `{"user_id": 9}`, nil, http.StatusBadRequest},
		{"missing user", "/events/1/draw", `{}`, nil, http.StatusBadRequest},
		{"exhausted", "/events/1/draw", `{"user_id": 9}`, domain.NewDomainError(domain.ErrUserExhausted), http.StatusBadRequest},
		{"no quota row", "/events/1/draw", `{"user_id": 9}`, domain.NewNotFoundError("user lottery quota", "1/9"), http.StatusNotFound},
		{"system", "/events/1/draw", `{"user_id": 9}`, domain.NewSystemError(errors.New("i/o timeout")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lottery := &fakeLottery{err: tt.err}
			e := newServer(lottery)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && lottery.userID != 9 {
				t.Fatalf("expected user 9 passed to service, got %d", lottery.userID)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	e := echo.New()

	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	for name, checks := range map[string]struct {
		checks map[string]Pinger
		want   int
	}{
		"healthy":   {map[string]Pinger{"redis": ok, "database": ok}, http.StatusOK},
		"unhealthy": {map[string]Pinger{"redis": down, "database": ok}, http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)

			if err := NewHealthHandler(checks.checks).Healthz(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != checks.want {
				t.Fatalf("expected %d, got %d", checks.want, rec.Code)
			}
		})
	}
}
