package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/analytics"
	"github.com/trezcool/imajine/core/user"
	cachesvc "github.com/trezcool/imajine/services/cache"
	logsvc "github.com/trezcool/imajine/services/logger"
	"github.com/trezcool/imajine/storage/database"
	gormrepos "github.com/trezcool/imajine/storage/database/gorm"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// createdb runs before the app database exists
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		cli := commandLine{conf: conf}
		exit(logger, cli.run(os.Args))
		return
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	gdb, err := database.OpenGorm(db, conf)
	if err != nil {
		logger.Fatal("opening gorm", err)
	}

	// users saved here change the API dashboards
	redisClient, err := cachesvc.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Warn(fmt.Sprintf("analytics cache unreachable: %v", err), err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	stats := analytics.NewCacheInvalidator(cachesvc.NewRedisCache(redisClient, conf.Redis.AnalyticsCacheTTL), logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		gdb:      gdb,
		usrSvc:   user.NewService(gormrepos.NewUserRepository(gdb), stats),
		validate: validate,
	}
	exit(logger, cli.run(os.Args))
}

func exit(logger core.Logger, err error) {
	if err == nil {
		return
	}
	if err != errHelp {
		logger.Error("command failed", err)
	}
	os.Exit(1)
}
