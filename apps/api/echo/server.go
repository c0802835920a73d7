package echoapi

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

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
	"github.com/trezcool/imajine/storage/database"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         *sql.DB
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc       *user.Service
		CourseSvc     *course.Service
		UnitSvc       *unit.Service
		AssignmentSvc *assignment.Service
		TeacherSvc    *teacher.Service
		ProgressSvc   *progress.Service
		SubmissionSvc *submission.Service
		AnalyticsSvc  *analytics.Service
		AcademicSvc   *academic.Service

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		tokens   *tokenIssuer
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}

	// api is embedded by every group of handlers.
	api struct {
		deps *ServerDeps
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   newTokenIssuer(deps.Conf.Auth),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	s.app.Use(s.metrics.middleware)

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)
	s.app.GET("/metrics", s.metrics.handler())

	a := api{deps: &s.deps}
	g := s.app.Group("")
	authed := authMiddleware(s.tokens, s.deps.UserSvc)
	coordinator := roleMiddleware(user.RoleCoordinator)

	registerAuthAPI(g, a, s.tokens, authed)
	registerUserAPI(g, a, authed)
	registerCourseAPI(g, a, authed, coordinator)
	registerUnitAPI(g, a, authed, coordinator)
	registerAssignmentAPI(g, a, authed, coordinator)
	registerStudentAPI(g, a, authed, coordinator)
	registerTeacherAPI(g, a, authed, coordinator)
	registerProgressAPI(g, a, authed, coordinator)
	registerSubmissionAPI(g, a, authed, coordinator)
	registerAnalyticsAPI(g, a, authed, coordinator)
	registerAcademicAPI(g, a, authed)
}

// Start listens on the configured address; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the Server to stop it gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	status := http.StatusOK
	data := echo.Map{"status": "ok", "build": s.deps.Conf.Build}
	if err := database.StatusCheck(ctx.Request().Context(), s.deps.DB); err != nil {
		status = http.StatusServiceUnavailable
		data["status"] = "db not ready"
	}
	return ctx.JSON(status, Response{Success: status == http.StatusOK, Data: data})
}
