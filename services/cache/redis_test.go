package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_NilClient(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisCache(nil, time.Minute)

	require.NoError(t, cache.Set(ctx, "analytics:overview", map[string]int{"totalStudents": 3}))

	var dest map[string]int
	ok, err := cache.Get(ctx, "analytics:overview", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dest)
	assert.NoError(t, cache.Delete(ctx, "analytics:overview"))
}
