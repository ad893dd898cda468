package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"luckyDraw/business/management"
	"luckyDraw/domain"
	"luckyDraw/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ManagementService interface {
	UpdateLotteryEvent(ctx context.Context, req management.EventUpdate) error
	UpdateSinglePrizeRate(ctx context.Context, eventID, prizeID uint64, rate *decimal.Decimal) error
	RefreshCache(ctx context.Context, eventID uint64) error
	ClearCache(ctx context.Context, eventID uint64) error
	ClearByPrefix(ctx context.Context, eventID uint64) (int, error)
	GetLotteryStatus(ctx context.Context, eventID uint64) (domain.LotteryStatus, error)
	GetAllEvents(ctx context.Context) ([]domain.LotteryEventSummary, error)
	SyncHistory(ctx context.Context, eventID uint64, limit int) ([]domain.SyncAudit, error)
}

type StockInitializer interface {
	InitPrizeStock(ctx context.Context, eventID uint64) error
}

type SyncService interface {
	SyncEvent(ctx context.Context, eventID uint64) (domain.SyncResult, error)
	DispatchUserQuotaSync(eventID, userID uint64)
}

type AdminHandler struct {
	managementService ManagementService
	stockInitializer  StockInitializer
	syncService       SyncService
	timeout           time.Duration
}

func NewAdminHandler(managementService ManagementService, stockInitializer StockInitializer, syncService SyncService) *AdminHandler {
	return &AdminHandler{
		managementService: managementService,
		stockInitializer:  stockInitializer,
		syncService:       syncService,
		timeout:           30 * time.Second,
	}
}

type UpdateRateRequest struct {
	Rate *decimal.Decimal `json:"rate" validate:"required"`
}

func (h *AdminHandler) GetAllEvents(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	events, err := h.managementService.GetAllEvents(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(events))
}

func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	var req management.EventUpdate
	if err := c.Bind(&req); err != nil {
		logger.Error("invalid event update body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	req.EventID = eventID

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.managementService.UpdateLotteryEvent(ctx, req); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Lottery event updated successfully"))
}

func (h *AdminHandler) UpdatePrizeRate(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}
	prizeID, err := paramID(c, "pid")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid prize id"})
	}

	var req UpdateRateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.Rate == nil {
		return domain.NewDomainError(domain.ErrRateRequired)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.managementService.UpdateSinglePrizeRate(ctx, eventID, prizeID, req.Rate); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Prize rate updated successfully"))
}

func (h *AdminHandler) GetStatus(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status, err := h.managementService.GetLotteryStatus(ctx, eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(status))
}

func (h *AdminHandler) InitStock(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.stockInitializer.InitPrizeStock(ctx, eventID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Prize stock initialized"))
}

func (h *AdminHandler) RefreshCache(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.managementService.RefreshCache(ctx, eventID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Cache refreshed"))
}

// ClearCache drops the event's cache; ?all=true also drops user allowances.
func (h *AdminHandler) ClearCache(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if all, _ := strconv.ParseBool(c.QueryParam("all")); all {
		n, err := h.managementService.ClearByPrefix(ctx, eventID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]int{"deleted": n}))
	}

	if err := h.managementService.ClearCache(ctx, eventID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Cache cleared"))
}

func (h *AdminHandler) SyncEvent(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.syncService.SyncEvent(ctx, eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

func (h *AdminHandler) SyncUserQuota(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}
	userID, err := paramID(c, "uid")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user id"})
	}

	h.syncService.DispatchUserQuotaSync(eventID, userID)

	return c.JSON(http.StatusAccepted, fres.Response.StatusOK("User quota sync dispatched"))
}

func (h *AdminHandler) SyncHistory(c echo.Context) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid event id"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	audits, err := h.managementService.SyncHistory(ctx, eventID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(audits))
}
