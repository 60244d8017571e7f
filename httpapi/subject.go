package httpapi

import (
	"github.com/labstack/echo/v4"

	"github.com/forgebase/forge/acl"
)

// subjectHeaderKind and subjectHeaderName carry the caller's resolved
// identity onto the request, the way api/authorization.go's JWT
// middleware populates AuthUser from validated claims upstream of
// RequireScope. Nothing in this module sets these headers or checks a
// bearer token against them; the middleware takes their values as given.
const (
	subjectHeaderKind = "X-Forge-Subject-Kind"
	subjectHeaderName = "X-Forge-Subject-Name"
)

// SubjectFromHeaders populates the Echo context's acl.SubjectRef from the
// upstream-authenticated identity headers, defaulting to an anonymous
// subject that every Policy denies unless the Enforcer's root short
// circuit applies.
func SubjectFromHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind := c.Request().Header.Get(subjectHeaderKind)
		name := c.Request().Header.Get(subjectHeaderName)
		if kind == "" {
			kind = "User"
		}
		if name == "" {
			name = "anonymous"
		}
		acl.SetSubject(c, acl.SubjectRef{Kind: kind, Name: name})
		return next(c)
	}
}
