package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-widget/internal/recent"
	"github.com/vzahanych/weather-widget/internal/server/utils"
	"github.com/vzahanych/weather-widget/internal/widget"
	"go.uber.org/zap"
)

// WeatherHandler exposes the widget controller over HTTP. Every search,
// including one that ends in a validation or lookup error, answers 200 with
// the resulting view; only protocol problems use 4xx.
type WeatherHandler struct {
	ctrl   *widget.Controller
	logger *zap.Logger
}

func NewWeatherHandler(ctrl *widget.Controller, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		ctrl:   ctrl,
		logger: logger,
	}
}

func (h *WeatherHandler) Search(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)
	reqLogger := utils.RequestLogger(c, h.logger)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reqLogger.Warn("Invalid search body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_BODY",
			Details: err.Error(),
		})
		return
	}
	if fields := utils.ValidateStruct(req); len(fields) > 0 {
		reqLogger.Warn("Search body failed validation", zap.Int("fields", len(fields)))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid request parameters",
			Code:   "INVALID_PARAMS",
			Fields: fields,
		})
		return
	}

	h.submit(c, reqLogger, func() (widget.State, error) {
		return h.ctrl.Submit(ctx, req.City)
	})
}

func (h *WeatherHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.View())
}

func (h *WeatherHandler) GetRecent(c *gin.Context) {
	c.JSON(http.StatusOK, RecentResponse{
		Recent:     nonNil(h.ctrl.Recent()),
		MaxEntries: h.ctrl.MaxRecent(),
	})
}

func (h *WeatherHandler) SelectRecent(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)
	reqLogger := utils.RequestLogger(c, h.logger)

	var req RecentIndexRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid recent search index",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
		})
		return
	}
	if fields := utils.ValidateStruct(req); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid recent search index",
			Code:   "INVALID_PARAMS",
			Fields: fields,
		})
		return
	}

	h.submit(c, reqLogger, func() (widget.State, error) {
		return h.ctrl.SelectRecent(ctx, req.Index)
	})
}

// ClearRecent needs confirm=true; without it nothing is cleared and the
// answer is 412.
func (h *WeatherHandler) ClearRecent(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)
	confirmed := c.Query("confirm") == "true"

	cleared, err := h.ctrl.ClearHistory(ctx, recent.ConfirmFunc(func(context.Context, string) (bool, error) {
		return confirmed, nil
	}))
	if err != nil {
		utils.RequestLogger(c, h.logger).Error("Failed to clear recent searches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to clear recent searches",
			Code:  "STORAGE_ERROR",
		})
		return
	}
	if !cleared {
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{
			Error:   "Clearing recent searches needs confirmation",
			Code:    "CONFIRMATION_REQUIRED",
			Details: recent.ClearPrompt + " Repeat with confirm=true.",
		})
		return
	}

	c.JSON(http.StatusOK, ClearResponse{Cleared: true, Recent: nonNil(h.ctrl.Recent())})
}

func (h *WeatherHandler) submit(c *gin.Context, reqLogger *zap.Logger, run func() (widget.State, error)) {
	state, err := run()
	switch {
	case errors.Is(err, widget.ErrSearchInProgress):
		utils.SetSearchOutcome(c, utils.SearchOutcome{View: widget.ViewLoading, Rejected: true})
		reqLogger.Info("Search rejected, another is loading", zap.String("loading_city", state.City))
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "A search is already in progress",
			Code:  "SEARCH_IN_PROGRESS",
		})
		return
	case errors.Is(err, widget.ErrNoSuchRecent):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No recent search at that position",
			Code:  "RECENT_NOT_FOUND",
		})
		return
	case err != nil:
		reqLogger.Error("Search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Search failed",
			Code:  "SEARCH_ERROR",
		})
		return
	}

	view := h.ctrl.Describe(state)
	utils.SetSearchOutcome(c, utils.SearchOutcome{View: view.Kind, ErrorKind: view.ErrorKind})
	c.JSON(http.StatusOK, view)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
