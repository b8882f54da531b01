package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/config"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/gelf"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/handler"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/router"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

const (
	serviceName     = "oxisurvey"
	version         = "1.0.0"
	shutdownTimeout = 15 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}

	// GELF UDP logging
	var sinks []zapcore.WriteSyncer
	var gelfErr error
	if cfg.GelfAddr != "" {
		gw, err := gelf.New(cfg.GelfAddr, serviceName)
		if err != nil {
			gelfErr = err
		} else {
			defer gw.Close()
			sinks = append(sinks, gw)
		}
	}
	log, err := logging.New(cfg.LogMode, cfg.LogLevel, sinks...)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}
	defer log.Sync()
	if gelfErr != nil {
		log.Warn("GELF init failed", zap.String("addr", cfg.GelfAddr), zap.Error(gelfErr))
	} else if cfg.GelfAddr != "" {
		log.Info("GELF logging enabled", zap.String("addr", cfg.GelfAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := store.Open(ctx, store.Options{
		Driver:        cfg.StoreDriver,
		MongoURL:      cfg.MongoURL,
		Database:      cfg.DatabaseName,
		OxiDBHost:     cfg.OxiDBHost,
		OxiDBPort:     cfg.OxiDBPort,
		OxiDBPoolSize: cfg.OxiDBPoolSize,
		SQLitePath:    cfg.SQLitePath,
		PostgresURL:   cfg.PostgresURL,
		Timeout:       cfg.StoreTimeout.Duration(),
	}, log)
	if err != nil {
		log.Error("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Close(closeCtx); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}()
	log.Info("store connected", zap.String("driver", cfg.StoreDriver))

	// Repositories
	surveyRepo := repository.NewSurveyRepo(database)
	responseRepo := repository.NewResponseRepo(database)

	indexCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout.Duration()*6)
	err = surveyRepo.EnsureIndexes(indexCtx)
	if err == nil {
		err = responseRepo.EnsureIndexes(indexCtx)
	}
	cancel()
	if err != nil {
		log.Error("failed to create indexes", zap.Error(err))
		return 1
	}

	// Services
	ids := ident.Random{}
	surveySvc := service.NewSurveyService(surveyRepo, ids, log.Named("surveys"))
	responseSvc := service.NewResponseService(responseRepo, surveyRepo, ids, log.Named("responses"))
	aggSvc := service.NewAggregationService(surveyRepo, responseRepo, log.Named("aggregation"))

	// Handlers
	httpLog := log.Named("http")
	r := router.New(router.Handlers{
		Surveys:   handler.NewSurveyHandler(surveySvc, httpLog),
		Responses: handler.NewResponseHandler(responseSvc, httpLog),
		Stats:     handler.NewStatsHandler(aggSvc, httpLog),
		Health:    handler.NewHealthHandler(database, cfg.StoreDriver, version, httpLog),
	}, cfg.CORSOrigins, httpLog)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}
	return 0
}
