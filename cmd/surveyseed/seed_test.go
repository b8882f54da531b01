package main

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

func TestGeneratedVersionsTranslate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tr := service.NewVersionTranslator()
	for i := 0; i < 200; i++ {
		versions := surveyVersions(rng, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		if _, err := tr.TranslateAll("1000", versions); err != nil {
			t.Fatalf("generated survey %d does not translate: %v", i, err)
		}
		if got := answers(rng, versions[0]); len(got) == 0 {
			t.Fatalf("no answers generated for %v", versions[0])
		}
	}
}

func TestSeedSurveys(t *testing.T) {
	ctx := context.Background()
	database := store.NewMemory()
	surveyRepo := repository.NewSurveyRepo(database)
	responseRepo := repository.NewResponseRepo(database)
	log := zap.NewNop()
	surveys := service.NewSurveyService(surveyRepo, ident.Random{}, log)
	responses := service.NewResponseService(responseRepo, surveyRepo, ident.Random{}, log)

	sum, err := seedSurveys(ctx, surveys, responses, rand.New(rand.NewPCG(7, 7)), 20, 5, log)
	if err != nil {
		t.Fatal(err)
	}
	if sum.surveys != 20 {
		t.Fatalf("surveys = %d", sum.surveys)
	}
	stats, err := service.NewAggregationService(surveyRepo, responseRepo, log).StorageStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSurveys != 20 || stats.TotalVersions < 20 {
		t.Fatalf("stats = %+v", stats)
	}
}
