// Package dbtest provides in-memory sqlite databases and fixtures for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/analytics"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/course"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
	"github.com/trezcool/imajine/storage/database"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
	sqlxrepos "github.com/trezcool/imajine/storage/database/sqlx"
)

const Password = "Pwd.12345"

var dbSeq int64

type DB struct {
	Gorm *gorm.DB
	Sqlx *sqlx.DB
}

// Open returns a fresh migrated database private to t.
func Open(t *testing.T) *DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", strings.ReplaceAll(t.Name(), "/", "_"), atomic.AddInt64(&dbSeq, 1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	gdb, err := gorm.Open(sqlite.Open(dsn), database.NewGormConfig(core.NewTestConfig()))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(gdb))
	return &DB{Gorm: gdb, Sqlx: sqlx.NewDb(sqlDB, "sqlite3")}
}

func (db *DB) AnalyticsRepository() analytics.Repository {
	return sqlxrepos.NewAnalyticsRepository(db.Sqlx)
}

func (db *DB) CreateCourse(t *testing.T, code, name string) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := gormrepos.NewCourseRepository(db.Gorm).CreateCourse(context.Background(), course.Course{
		Code: code, Name: name, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return c
}

func (db *DB) CreateUnit(t *testing.T, code, courseCode string) unit.Unit {
	t.Helper()
	now := time.Now().UTC()
	u, err := gormrepos.NewUnitRepository(db.Gorm).CreateUnit(context.Background(), unit.Unit{
		Code: code, Name: "Unit " + code, CourseCode: courseCode, CurrentWeek: 1, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return u
}

func (db *DB) CreateAssignment(t *testing.T, name, unitCode string, deadline time.Time) assignment.Assignment {
	t.Helper()
	now := time.Now().UTC()
	a, err := gormrepos.NewAssignmentRepository(db.Gorm).CreateAssignment(context.Background(), assignment.Assignment{
		Name:        name,
		UnitCode:    unitCode,
		Deadline:    deadline.UTC(),
		PublishedAt: now,
		Status:      assignment.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return a
}

// CreateUser stores a user with the Password password. courseCode is ignored for coordinators.
func (db *DB) CreateUser(t *testing.T, firstName, email, role, courseCode string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		FirstName: firstName,
		LastName:  "Test",
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role == user.RoleStudent {
		usr.CourseCode = courseCode
		usr.Year = 1
	} else {
		usr.Title = "Dr"
		usr.AccessLevel = "FULL"
	}
	require.NoError(t, usr.SetPassword(Password))
	usr, err := gormrepos.NewUserRepository(db.Gorm).CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}
