package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	echoapi "github.com/trezcool/imajine/apps/api/echo"
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
	cachesvc "github.com/trezcool/imajine/services/cache"
	emailsvc "github.com/trezcool/imajine/services/email"
	logsvc "github.com/trezcool/imajine/services/logger"
	"github.com/trezcool/imajine/storage/database"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
	sqlxrepos "github.com/trezcool/imajine/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	if err := conf.Validate(); err != nil {
		logger.Fatal(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	// set up DB
	db, gdb, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	redisClient, err := cachesvc.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Warn(fmt.Sprintf("analytics cache disabled: %v", err), err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	statsCache := cachesvc.NewRedisCache(redisClient, conf.Redis.AnalyticsCacheTTL)
	stats := analytics.NewCacheInvalidator(statsCache, logger)

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	usrSvc := user.NewService(gormrepos.NewUserRepository(gdb), stats)
	courseSvc := course.NewService(gormrepos.NewCourseRepository(gdb), stats)
	unitSvc := unit.NewService(gormrepos.NewUnitRepository(gdb), courseSvc, stats)
	asmtSvc := assignment.NewService(gormrepos.NewAssignmentRepository(gdb), unitSvc, stats)
	teacherSvc := teacher.NewService(gormrepos.NewTeacherRepository(gdb), unitSvc, stats)
	progSvc := progress.NewService(gormrepos.NewProgressRepository(gdb), usrSvc, unitSvc, stats)
	subSvc := submission.NewService(conf, logger, gormrepos.NewSubmissionRepository(gdb), asmtSvc, usrSvc, mailSvc, stats)
	analyticsSvc := analytics.NewService(
		sqlxrepos.NewAnalyticsRepository(sqlx.NewDb(db, "postgres")),
		statsCache,
		logger,
		unitSvc,
		usrSvc,
		subSvc,
		progSvc,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	progress.InitValidators(validate, translator)
	submission.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			DB:            db,
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
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, *gorm.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}

	gdb, err := database.OpenGorm(db, conf)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err = database.Migrate(gdb); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, gdb, nil
}
