package httpapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/forgebase/forge/acl"
	"github.com/forgebase/forge/dashboard"
	"github.com/forgebase/forge/oauth"
)

// New builds the Echo server with the middleware stack cli/root.go's
// runServer assembles (Logger, Recover, CORS), the stable error envelope,
// and the decision endpoint. Per-kind CRUD routes are mounted separately
// via RegisterCRUD by the caller, since the set of kinds varies by
// deployment. hub may be nil to disable the live dashboard feed.
func New(enforcer *acl.Enforcer, hub *dashboard.Hub) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(SubjectFromHeaders)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	e.POST("/v1/check", CheckHandler(enforcer))

	if hub != nil {
		e.GET("/v1/dashboard/ws", func(c echo.Context) error {
			return hub.ServeWS(c.Response(), c.Request())
		})
	}

	return e
}

// RegisterOAuth mounts the authorization-code grant endpoints under
// /v1/oauth. Kept separate from New, like RegisterCRUD, since not every
// deployment of this server needs the oauth consumer package wired in.
func RegisterOAuth(e *echo.Echo, exchange *oauth.Exchange) {
	e.POST("/v1/oauth/authorize", AuthorizeHandler(exchange))
	e.POST("/v1/oauth/token", TokenHandler(exchange))
}
