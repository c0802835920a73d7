package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

var ann = user.User{ID: "u-ann", FirstName: "Ann", LastName: "Test", Email: "ann@test.test", Role: user.RoleStudent, CourseCode: "BM"}

func TestNewEntry(t *testing.T) {
	smtpDown := errors.New("smtp down")
	e := newEntry(rollbar.ERR, "grade notification", []interface{}{
		errors.Wrap(smtpDown, "fetching graded student"),
		errors.New("second"),
		map[string]interface{}{"submissionId": "s-1"},
		ann,
		&user.User{ID: "u-other"},
		42,
	})

	require.Error(t, e.err)
	assert.Equal(t, smtpDown, errors.Cause(e.err))
	require.NotNil(t, e.person)
	assert.Equal(t, &rollbar.Person{
		Id:       "u-ann",
		Username: "Ann Test",
		Email:    "ann@test.test",
		Extra:    map[string]string{"role": user.RoleStudent, "course": "BM"},
	}, e.person)
	assert.Equal(t, map[string]interface{}{
		"submissionId": "s-1",
		"args":         []interface{}{"second", 42},
	}, e.extras)
}

func TestRollbarLogger(t *testing.T) {
	conf := core.NewTestConfig()
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)

	logger.Debug("hidden")
	logger.Info("Application initializing", map[string]interface{}{"version": "test"})
	logger.Error("grade notification", errors.Wrap(errors.New("smtp down"), "sending"), map[string]interface{}{"submissionId": "s-1", "asmt": "essay"}, ann)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[INFO] Application initializing version=test", lines[0])
	assert.Equal(t, `[ERROR] grade notification asmt=essay submissionId=s-1 user=u-ann error="sending: smtp down" cause=*errors.fundamental`, lines[1])

	buf.Reset()
	logger.debug = true
	logger.Debug("shown")
	assert.Equal(t, "[DEBUG] shown\n", buf.String())
}
