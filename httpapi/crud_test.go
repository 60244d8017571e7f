package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/store/storetest"
)

func newUsersGroup(t *testing.T) (*echo.Echo, *manager.RM[*v1alpha1.User]) {
	t.Helper()
	rm := manager.New(storetest.New(), new(v1alpha1.User).GetTypeMeta(), func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	RegisterCRUD(e.Group("/v1/users"), rm, func() *v1alpha1.User { return &v1alpha1.User{} })
	return e, rm
}

func TestRegisterCRUD_PutThenGet(t *testing.T) {
	e, _ := newUsersGroup(t)

	body := `{"spec":{"email":"bob@example.com"}}`
	req := httptest.NewRequest(http.MethodPut, "/v1/users/bob", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"email":"bob@example.com"`)

	req = httptest.NewRequest(http.MethodGet, "/v1/users/bob", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"email":"bob@example.com"`)
}

func TestRegisterCRUD_GetMissingReturnsNotFound(t *testing.T) {
	e, _ := newUsersGroup(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/nobody", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterCRUD_List(t *testing.T) {
	e, rm := newUsersGroup(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_, err = rm.Put(context.Background(), v1alpha1.NewUser("alice", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"bob"`)
	require.Contains(t, rec.Body.String(), `"alice"`)
}

func TestRegisterCRUD_DeleteTombstonesWithoutRemoving(t *testing.T) {
	e, rm := newUsersGroup(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/bob", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	stored, err := rm.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, stored.GetMetadata().IsTombstoned())
}

func TestRegisterCRUD_DeleteMissingReturnsNotFound(t *testing.T) {
	e, _ := newUsersGroup(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/nobody", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterCRUD_PutMalformedBodyReturnsInvalidRequest(t *testing.T) {
	e, _ := newUsersGroup(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/users/bob", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"invalid_request"`)
}
