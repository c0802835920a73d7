package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
)

type mapCache struct {
	data      map[string][]byte
	deleteErr error
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	c.data[key] = data
	return err
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// countingRepo serves a fixed number of students and counts the overview computations.
type countingRepo struct {
	Repository
	students int64
	computed int
}

func (r *countingRepo) CountStudents(context.Context, string) (int64, error) {
	r.computed++
	return r.students, nil
}
func (r *countingRepo) CountCourses(context.Context) (int64, error)            { return 1, nil }
func (r *countingRepo) CountTeachers(context.Context, []string) (int64, error) { return 0, nil }
func (r *countingRepo) QueryProgress(context.Context, Scope) ([]progress.Progress, error) {
	return nil, nil
}
func (r *countingRepo) QuerySubmissions(context.Context, Scope, time.Time) ([]submission.Submission, error) {
	return nil, nil
}

type warnLogger struct {
	warnings []string
}

func (l *warnLogger) Debug(string, ...interface{}) {}
func (l *warnLogger) Info(string, ...interface{})  {}
func (l *warnLogger) Error(string, ...interface{}) {}
func (l *warnLogger) Fatal(string, ...interface{}) {}
func (l *warnLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

func TestService_Overview_invalidation(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{students: 2}
	cache := &mapCache{data: map[string][]byte{}}
	logger := &warnLogger{}
	svc := NewService(repo, cache, logger, nil, nil, nil, nil)
	stats := NewCacheInvalidator(cache, logger)

	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ov.StudentCount)

	repo.students = 3
	ov, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ov.StudentCount, "served from the cache")
	assert.Equal(t, 1, repo.computed)

	stats.Invalidate(ctx)
	ov, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ov.StudentCount)
	assert.Equal(t, 2, repo.computed)

	repo.students = 4
	svc.Invalidate(ctx)
	ov, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), ov.StudentCount)
	assert.Empty(t, logger.warnings)
}

func TestCacheInvalidator_deleteFailure(t *testing.T) {
	cache := &mapCache{data: map[string][]byte{overviewCacheKey: []byte(`{}`)}, deleteErr: fmt.Errorf("redis down")}
	logger := &warnLogger{}

	NewCacheInvalidator(cache, logger).Invalidate(context.Background())
	assert.Equal(t, []string{"invalidating analytics cache"}, logger.warnings)
}
