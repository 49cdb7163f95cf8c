package featuredfix

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, loginPage(false, CsrfToken(c)))
	}
	ctx := c.Request().Context()
	state, err := a.Controller.State(ctx)
	if err != nil {
		return err
	}
	total, err := a.counts.Get(ctx)
	if err != nil {
		return err
	}
	return Render(c, dashboardPage(dashboardData{
		State:     state,
		Total:     total,
		PageSize:  a.Config.PageSize,
		DelayMS:   a.Config.PageDelay.Milliseconds(),
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.Logger.Warn("admin login failed", "ip", c.RealIP())
	return RenderStatus(c, http.StatusUnauthorized, loginPage(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}
