package featuredfix

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/featuredfix/migration"
)

// batchRequest is the body of a batch call. Bounds are checked here so the
// controller only sees sane values.
type batchRequest struct {
	Offset int `json:"offset" form:"offset"`
	Limit  int `json:"limit" form:"limit"`
}

type countResponse struct {
	Total int `json:"total"`
}

type statusResponse struct {
	migration.State
	ShowNotice bool `json:"show_notice"`
	Total      int  `json:"total"`
	PageSize   int  `json:"page_size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) handleCount(c echo.Context) error {
	total, err := a.counts.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Total: total})
}

func (a *App) handleBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid batch request")
	}
	if req.Offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
	}
	if req.Limit < 0 || req.Limit > MaxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "limit out of range")
	}
	res, err := a.Controller.ProcessPage(c.Request().Context(), req.Offset, req.Limit)
	if err != nil {
		return err
	}
	if res.Complete {
		a.counts.Invalidate()
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleDismiss(c echo.Context) error {
	if err := a.Controller.Dismiss(c.Request().Context()); err != nil {
		return err
	}
	return a.handleStatus(c)
}

func (a *App) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	state, err := a.Controller.State(ctx)
	if err != nil {
		return err
	}
	total, err := a.counts.Get(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{
		State:      state,
		ShowNotice: state.ShowNotice(),
		Total:      total,
		PageSize:   a.Config.PageSize,
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		a.Logger.Error("server error", "path", c.Request().URL.Path, "error", err)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/admin/migration/") {
		_ = c.JSON(code, errorResponse{Error: msg})
		return
	}
	_ = c.String(code, msg)
}
