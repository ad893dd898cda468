package rest

import (
	"context"
	"net/http"
	"time"

	"luckyDraw/domain"
	"luckyDraw/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type LotteryService interface {
	Draw(ctx context.Context, eventID, userID uint64, keepResult bool) (string, error)
	IsEventActive(ctx context.Context, eventID uint64) (bool, error)
}

type WinRecordService interface {
	UserWinRecords(ctx context.Context, userID uint64) ([]domain.WinRecordView, error)
}

type LotteryHandler struct {
	lotteryService LotteryService
	winService     WinRecordService
	validator      *validator.Validate
	timeout        time.Duration
}

func NewLotteryHandler(lotteryService LotteryService, winService WinRecordService, validate *validator.Validate) *LotteryHandler {
	return &LotteryHandler{
		lotteryService: lotteryService,
		winService:     winService,
		validator:      validate,
		timeout:        10 * time.Second,
	}
}

type DrawRequest struct {
	UserID     uint64 `json:"user_id" validate:"required"`
	KeepResult bool   `json:"keep_result"`
}

func (h *LotteryHandler) Draw(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	var req DrawRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("invalid draw request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	prize, err := h.lotteryService.Draw(ctx, eventID, req.UserID, req.KeepResult)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]string{"prize": prize}))
}

func (h *LotteryHandler) EventActive(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	active, err := h.lotteryService.IsEventActive(ctx, eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]bool{"active": active}))
}

func (h *LotteryHandler) UserWinRecords(c echo.Context) error {
	userID, err := paramID(c, "uid")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	records, err := h.winService.UserWinRecords(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(records))
}
