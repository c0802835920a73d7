// Package logsvc reports application events to Rollbar and mirrors them on a standard logger.
package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

// RollbarLogger writes every message to std and reports it to Rollbar when enabled.
// Debug messages are only written in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is one log call. Args are sorted out as:
// the first error is the reported item, a user is the person behind the request,
// maps are merged into the extras and anything else is kept under "args".
type entry struct {
	level  string
	msg    string
	err    error
	person *rollbar.Person
	extras map[string]interface{}
}

func newEntry(level, msg string, args []interface{}) entry {
	e := entry{level: level, msg: msg, extras: map[string]interface{}{}}
	var rest []interface{}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if e.err == nil {
				e.err = a
			} else {
				rest = append(rest, a.Error())
			}
		case user.User:
			e.setPerson(a)
		case *user.User:
			if a != nil {
				e.setPerson(*a)
			}
		case map[string]interface{}:
			for k, v := range a {
				e.extras[k] = v
			}
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) > 0 {
		e.extras["args"] = rest
	}
	return e
}

func (e *entry) setPerson(usr user.User) {
	if e.person != nil {
		return
	}
	e.person = &rollbar.Person{
		Id:       usr.ID,
		Username: usr.FullName(),
		Email:    usr.Email,
		Extra:    map[string]string{"role": usr.Role, "course": usr.CourseCode},
	}
}

func (e entry) report() {
	ctx := context.Background()
	if e.person != nil {
		ctx = rollbar.NewPersonContext(ctx, e.person)
	}
	if e.err == nil {
		rollbar.MessageWithExtrasAndContext(ctx, e.level, e.msg, e.extras)
		return
	}
	extras := make(map[string]interface{}, len(e.extras)+1)
	for k, v := range e.extras {
		extras[k] = v
	}
	extras["message"] = e.msg
	rollbar.ErrorWithExtrasAndContext(ctx, e.level, e.err, extras)
}

// String renders the entry on one line: level, message, sorted extras, user and error.
func (e entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(e.level), e.msg)

	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.extras[k])
	}
	if e.person != nil {
		fmt.Fprintf(&b, " user=%s", e.person.Id)
	}
	if e.err != nil {
		fmt.Fprintf(&b, " error=%q", e.err.Error())
		if cause := pkgerrors.Cause(e.err); cause != e.err {
			fmt.Fprintf(&b, " cause=%T", cause)
		}
	}
	return b.String()
}

func (l RollbarLogger) write(level, msg string, args []interface{}) {
	e := newEntry(level, msg, args)
	e.report()
	l.std.Println(e.String())
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.write(rollbar.DEBUG, msg, args)
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.write(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.write(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.write(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.write(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
