package acl

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// contextKeySubject is the echo.Context key RequireCheck stores the
// resolved SubjectRef under, grounded on api/authorization.go's
// contextKeyUser pattern.
const contextKeySubject = "acl.subject"

// SetSubject stores the authenticated caller's SubjectRef in the Echo
// context, mirroring api/authorization.go's SetUser.
func SetSubject(c echo.Context, subject SubjectRef) {
	c.Set(contextKeySubject, subject)
}

// GetSubject retrieves the SubjectRef stored by SetSubject.
func GetSubject(c echo.Context) (SubjectRef, bool) {
	subject, ok := c.Get(contextKeySubject).(SubjectRef)
	return subject, ok
}

// ObjectResolver extracts the ObjectRef and action a request targets, so
// RequireCheck can stay generic across endpoints.
type ObjectResolver func(c echo.Context) (ObjectRef, string)

// RequireCheck returns Echo middleware enforcing Enforcer.Check for the
// object/action ObjectResolver extracts from the request, mirroring
// api/authorization.go's RequireScope shape (middleware wrapping one
// authorization decision instead of a static scope list).
func RequireCheck(enforcer *Enforcer, resolve ObjectResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, ok := GetSubject(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			object, action := resolve(c)
			if err := enforcer.Check(subject, object, action); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}

			return next(c)
		}
	}
}
