package httpapi

import (
	"net/http"
	"reflect"

	"github.com/labstack/echo/v4"

	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/resource"
	"github.com/forgebase/forge/store"
)

// isNil reports whether a generic resource.Object holds a nil pointer.
// A direct `item == nil` comparison on a type parameter constrained only
// by an interface is unreliable (a typed nil pointer boxed into T is
// itself non-nil), so this inspects the underlying value instead.
func isNil[T resource.Object](v T) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// RegisterCRUD mounts List/Get/Put/Delete handlers for one resource kind
// under group, generic over every kind the Resource Manager serves (spec
// §9, "never per-kind duplicated CRUD code"). newT must return a fresh
// zero value for JSON decoding on Put.
func RegisterCRUD[T resource.Object](group *echo.Group, rm *manager.RM[T], newT func() T) {
	group.GET("", func(c echo.Context) error {
		items, err := rm.List(c.Request().Context())
		if err != nil {
			return storeErr(err)
		}
		return c.JSON(http.StatusOK, items)
	})

	group.GET("/:name", func(c echo.Context) error {
		item, err := rm.Get(c.Request().Context(), c.Param("name"))
		if err != nil {
			return storeErr(err)
		}
		if isNil(item) {
			return errNotFound("resource not found")
		}
		return c.JSON(http.StatusOK, item)
	})

	group.PUT("/:name", func(c echo.Context) error {
		entity := newT()
		if err := c.Bind(entity); err != nil {
			return errInvalidRequest("malformed request body")
		}
		meta := entity.GetMetadata()
		meta.Name = c.Param("name")
		entity.SetMetadata(meta)

		stored, err := rm.Put(c.Request().Context(), entity)
		if err != nil {
			return storeErr(err)
		}
		return c.JSON(http.StatusOK, stored)
	})

	group.DELETE("/:name", func(c echo.Context) error {
		existing, err := rm.Get(c.Request().Context(), c.Param("name"))
		if err != nil {
			return storeErr(err)
		}
		if isNil(existing) {
			return errNotFound("resource not found")
		}
		if _, err := rm.MarkTombstoned(c.Request().Context(), existing); err != nil {
			return storeErr(err)
		}
		return c.NoContent(http.StatusAccepted)
	})
}

// storeErr maps a Store/Resource Manager error to the stable HTTP envelope.
func storeErr(err error) error {
	switch {
	case store.IsNotFound(err):
		return errNotFound(err.Error())
	case store.IsConflict(err), store.IsTransient(err):
		return newError(http.StatusServiceUnavailable, CodeUnknown, err.Error())
	default:
		return newError(http.StatusInternalServerError, CodeUnknown, err.Error())
	}
}
