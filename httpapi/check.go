package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgebase/forge/acl"
)

// checkRequest mirrors the Decision API's subjectRef/objectRef/action
// shape (spec §6).
type checkRequest struct {
	Subject struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	} `json:"subject"`
	Object struct {
		Group     string `json:"group"`
		Version   string `json:"version"`
		KindPlural string `json:"kindPlural"`
		Name      string `json:"name"`
	} `json:"object"`
	Action string `json:"action"`
}

type checkResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// CheckHandler exposes the Enforcer's check(subject, object, action) over
// HTTP as a standalone decision endpoint (spec §6, "Decision API (boundary
// with HTTP layer)"), distinct from RequireCheck which gates other routes.
func CheckHandler(enforcer *acl.Enforcer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req checkRequest
		if err := c.Bind(&req); err != nil {
			return errInvalidRequest("malformed check request body")
		}
		if req.Action == "" || req.Subject.Name == "" {
			return errInvalidRequest("subject.name and action are required")
		}

		subject := acl.SubjectRef{Kind: req.Subject.Kind, Name: req.Subject.Name}
		object := acl.ObjectRef{
			Group:      req.Object.Group,
			Version:    req.Object.Version,
			KindPlural: req.Object.KindPlural,
			Name:       req.Object.Name,
		}

		if err := enforcer.Check(subject, object, req.Action); err != nil {
			var denied *acl.Denied
			if errors.As(err, &denied) {
				return c.JSON(http.StatusOK, checkResponse{Decision: "denied", Reason: denied.Error()})
			}
			return err
		}

		return c.JSON(http.StatusOK, checkResponse{Decision: "granted"})
	}
}
