package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/academic"
	"github.com/trezcool/imajine/core/analytics"
	"github.com/trezcool/imajine/core/assignment"
	"github.com/trezcool/imajine/core/course"
	"github.com/trezcool/imajine/core/progress"
	"github.com/trezcool/imajine/core/submission"
	"github.com/trezcool/imajine/core/teacher"
	"github.com/trezcool/imajine/core/unit"
	"github.com/trezcool/imajine/core/user"
	emailsvc "github.com/trezcool/imajine/services/email"
	logsvc "github.com/trezcool/imajine/services/logger"
	"github.com/trezcool/imajine/storage/database/dbtest"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
)

// memCache keeps JSON encoded values in memory, the way Redis would.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ analytics.Cache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type testApp struct {
	srv     *Server
	db      *dbtest.DB
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	// set up DB & repos
	db := dbtest.Open(t)
	sqlDB, err := db.Gorm.DB()
	require.NoError(t, err)
	usrRepo := gormrepos.NewUserRepository(db.Gorm)
	courseRepo := gormrepos.NewCourseRepository(db.Gorm)
	unitRepo := gormrepos.NewUnitRepository(db.Gorm)
	asmtRepo := gormrepos.NewAssignmentRepository(db.Gorm)
	teacherRepo := gormrepos.NewTeacherRepository(db.Gorm)
	progRepo := gormrepos.NewProgressRepository(db.Gorm)
	subRepo := gormrepos.NewSubmissionRepository(db.Gorm)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	statsCache := newMemCache()
	stats := analytics.NewCacheInvalidator(statsCache, logger)
	usrSvc := user.NewService(usrRepo, stats)
	courseSvc := course.NewService(courseRepo, stats)
	unitSvc := unit.NewService(unitRepo, courseSvc, stats)
	asmtSvc := assignment.NewService(asmtRepo, unitSvc, stats)
	teacherSvc := teacher.NewService(teacherRepo, unitSvc, stats)
	progSvc := progress.NewService(progRepo, usrSvc, unitSvc, stats)
	subSvc := submission.NewService(conf, logger, subRepo, asmtSvc, usrSvc, mailSvc, stats)
	analyticsSvc := analytics.NewService(
		db.AnalyticsRepository(), statsCache, logger, unitSvc, usrSvc, subSvc, progSvc,
	)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	progress.InitValidators(validate, translator)
	submission.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		DB:            sqlDB,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		UnitSvc:       unitSvc,
		AssignmentSvc: asmtSvc,
		TeacherSvc:    teacherSvc,
		ProgressSvc:   progSvc,
		SubmissionSvc: subSvc,
		AnalyticsSvc:  analyticsSvc,
		AcademicSvc: &academic.Service{
			Courses:     courseSvc,
			Units:       unitSvc,
			Assignments: asmtSvc,
			Teachers:    teacherSvc,
			Users:       usrSvc,
			Progress:    progSvc,
			Submissions: subSvc,
		},
		DisableReqLogs: true,
	})
	return &testApp{srv: srv, db: db, mailSvc: mailSvc}
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	pair, err := app.srv.tokens.Issue(usr)
	require.NoError(t, err)
	return pair.AccessToken
}

func (app *testApp) do(t *testing.T, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the status code, and the whole body when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func errBody(t *testing.T, msg string) []byte {
	return marshalObj(t, Response{Error: msg})
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, dest interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), dest)
}

// decodeData unmarshals the data of a successful envelope into dest.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func fixedDeadline(days int) time.Time {
	return time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Second)
}

// fixtures is the small school most handler tests run against.
type fixtures struct {
	coordinator user.User
	ann         user.User // BM
	bob         user.User // BM
	cleo        user.User // CS
	essay       assignment.Assignment
	report      assignment.Assignment
}

func (app *testApp) seed(t *testing.T) fixtures {
	t.Helper()
	db := app.db
	db.CreateCourse(t, "BM", "Business Management")
	db.CreateCourse(t, "CS", "Computer Science")
	db.CreateUnit(t, "BM001", "BM")
	db.CreateUnit(t, "BM002", "BM")
	db.CreateUnit(t, "CS001", "CS")
	return fixtures{
		coordinator: db.CreateUser(t, "Dana", "dana@test.test", user.RoleCoordinator, ""),
		ann:         db.CreateUser(t, "Ann", "ann@test.test", user.RoleStudent, "BM"),
		bob:         db.CreateUser(t, "Bob", "bob@test.test", user.RoleStudent, "BM"),
		cleo:        db.CreateUser(t, "Cleo", "cleo@test.test", user.RoleStudent, "CS"),
		essay:       db.CreateAssignment(t, "Essay", "BM001", fixedDeadline(1)),
		report:      db.CreateAssignment(t, "Report", "CS001", fixedDeadline(2)),
	}
}
