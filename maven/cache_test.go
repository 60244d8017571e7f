package maven

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/forgebase/forge/manager"
	v1alpha1 "github.com/forgebase/forge/maven/v1alpha1"
	"github.com/forgebase/forge/store/storetest"
)

func newTestCache(t *testing.T) (*Cache, *manager.RM[*v1alpha1.Artifact], *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rm := manager.New(storetest.New(), new(v1alpha1.Artifact).GetTypeMeta(), func() *v1alpha1.Artifact { return &v1alpha1.Artifact{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))

	cache, err := NewCache(context.Background(), CacheConfig{RedisURL: "redis://" + mr.Addr() + "/0", TTL: time.Minute}, rm)
	require.NoError(t, err)
	return cache, rm, mr
}

func TestCache_GetFallsBackToResourceManagerThenPopulatesCache(t *testing.T) {
	cache, rm, mr := newTestCache(t)
	coordinate := "com.example:widget:1.0.0"
	_, err := rm.Put(context.Background(), v1alpha1.NewArtifact(coordinate, v1alpha1.ArtifactSpec{
		GroupID: "com.example", ArtifactID: "widget", Version: "1.0.0", StoreKey: "widget-1.0.0.jar",
	}))
	require.NoError(t, err)

	require.False(t, mr.Exists(cacheKey(coordinate)))

	artifact, err := cache.Get(context.Background(), coordinate)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	require.Equal(t, "widget-1.0.0.jar", artifact.Spec.StoreKey)

	require.True(t, mr.Exists(cacheKey(coordinate)))
}

func TestCache_GetServesFromCacheWithoutTouchingResourceManager(t *testing.T) {
	cache, rm, mr := newTestCache(t)
	coordinate := "com.example:widget:1.0.0"
	_, err := rm.Put(context.Background(), v1alpha1.NewArtifact(coordinate, v1alpha1.ArtifactSpec{StoreKey: "widget-1.0.0.jar"}))
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), coordinate)
	require.NoError(t, err)

	require.NoError(t, rm.Delete(context.Background(), coordinate))

	artifact, err := cache.Get(context.Background(), coordinate)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	_ = mr
}

func TestCache_GetReturnsNilForUnknownCoordinate(t *testing.T) {
	cache, _, _ := newTestCache(t)

	artifact, err := cache.Get(context.Background(), "does.not:exist:1.0.0")
	require.NoError(t, err)
	require.Nil(t, artifact)
}

func TestCache_InvalidateClearsEntry(t *testing.T) {
	cache, rm, mr := newTestCache(t)
	coordinate := "com.example:widget:1.0.0"
	_, err := rm.Put(context.Background(), v1alpha1.NewArtifact(coordinate, v1alpha1.ArtifactSpec{StoreKey: "widget-1.0.0.jar"}))
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), coordinate)
	require.NoError(t, err)
	require.True(t, mr.Exists(cacheKey(coordinate)))

	cache.Invalidate(context.Background(), coordinate)
	require.False(t, mr.Exists(cacheKey(coordinate)))
}

func TestArtifactReconciler_StampsAndInvalidatesCache(t *testing.T) {
	cache, rm, mr := newTestCache(t)
	r := &ArtifactReconciler{RM: rm, Cache: cache}

	coordinate := "com.example:widget:1.0.0"
	artifact := v1alpha1.NewArtifact(coordinate, v1alpha1.ArtifactSpec{StoreKey: "widget-1.0.0.jar"})
	stored, err := rm.Put(context.Background(), artifact)
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), coordinate)
	require.NoError(t, err)
	require.True(t, mr.Exists(cacheKey(coordinate)))

	require.NoError(t, r.Reconcile(context.Background(), stored))

	require.False(t, mr.Exists(cacheKey(coordinate)))
}
