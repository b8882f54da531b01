// Command surveyseed fills the configured store with generated surveys and
// responses.
//
//	surveyseed -surveys 200 -responses 25 -- -store sqlite
//
// Arguments after "--" are passed to the server configuration loader.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/config"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

func main() {
	fs := flag.NewFlagSet("surveyseed", flag.ExitOnError)
	surveys := fs.Int("surveys", 100, "number of surveys to create")
	perSurvey := fs.Int("responses", 10, "maximum responses per survey")
	seed := fs.Uint64("seed", 42, "random seed")
	wipe := fs.Bool("clear", false, "delete existing surveys first")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(context.Background(), cfg, log, *surveys, *perSurvey, *seed, *wipe); err != nil {
		log.Error("seeding failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, surveys, perSurvey int, seed uint64, wipe bool) error {
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
		return err
	}
	defer database.Close(context.Background())

	surveyRepo := repository.NewSurveyRepo(database)
	responseRepo := repository.NewResponseRepo(database)
	if err := surveyRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := responseRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	nop := zap.NewNop()
	surveySvc := service.NewSurveyService(surveyRepo, ident.Random{}, nop)
	responseSvc := service.NewResponseService(responseRepo, surveyRepo, ident.Random{}, nop)
	agg := service.NewAggregationService(surveyRepo, responseRepo, nop)

	if wipe {
		n, err := surveySvc.Clear(ctx)
		if err != nil {
			return err
		}
		log.Info("cleared surveys", zap.Int64("deleted", n))
	}

	sum, err := seedSurveys(ctx, surveySvc, responseSvc, rand.New(rand.NewPCG(seed, seed)), surveys, perSurvey, log)
	if err != nil {
		return err
	}

	stats, err := agg.StorageStats(ctx)
	if err != nil {
		return err
	}
	log.Info("seeding done",
		zap.Int("surveys", sum.surveys),
		zap.Int("responses", sum.responses),
		zap.Duration("elapsed", sum.elapsed.Round(time.Millisecond)),
		zap.Int("totalSurveys", stats.TotalSurveys),
		zap.Int("totalVersions", stats.TotalVersions),
		zap.String("storageMB", stats.StorageSizeMB),
	)
	return nil
}

type summary struct {
	surveys   int
	responses int
	elapsed   time.Duration
}

func seedSurveys(ctx context.Context, surveys *service.SurveyService, responses *service.ResponseService, rng *rand.Rand, n, perSurvey int, log *zap.Logger) (summary, error) {
	var sum summary
	start := time.Now()
	lastReport := start
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		versions := surveyVersions(rng, base.Add(time.Duration(i)*24*time.Hour))
		s, err := surveys.Create(ctx, "", versions)
		if err != nil {
			return sum, fmt.Errorf("create survey %d: %w", i, err)
		}
		sum.surveys++

		latest := versions[len(versions)-1]
		for j := rng.IntN(perSurvey + 1); j > 0; j-- {
			took := 30 + rng.Float64()*600
			_, err := responses.Submit(ctx, service.SubmitInput{
				SurveyID:       s.SurveyID,
				VersionID:      s.Versions[len(s.Versions)-1].VersionID,
				RespondentInfo: respondentInfo(rng),
				Answers:        answers(rng, latest),
				CompletionTime: &took,
			})
			if err != nil {
				return sum, fmt.Errorf("submit response for %s: %w", s.SurveyID, err)
			}
			sum.responses++
		}

		if time.Since(lastReport) >= 3*time.Second || i == n-1 {
			elapsed := time.Since(start)
			log.Info("progress",
				zap.Int("surveys", sum.surveys),
				zap.Int("of", n),
				zap.Int("responses", sum.responses),
				zap.Float64("surveysPerSec", float64(sum.surveys)/elapsed.Seconds()),
			)
			lastReport = time.Now()
		}
	}
	sum.elapsed = time.Since(start)
	return sum, nil
}
