package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/config"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/museum-staffing/shift-manager/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	var op string
	var n int
	var fixture string

	flag.StringVar(&op, "op", "", "operation to run (guards: random guards, exhibitions: random exhibitions, fixture: demo fixture)")
	flag.IntVar(&n, "n", 5, "number of records to insert")
	flag.StringVar(&fixture, "fixture", "", "fixture file, defaults to SEED_FIXTURE_PATH")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	seeder := seed.NewSeeder(repo, cfg.Seed.User.Password, cfg.Location())

	switch op {
	case "":
		logger.Error("no operation given")
	case "guards", "exhibitions":
		if n <= 0 {
			logger.Error("n must be positive", slog.Int("n", n))
			return
		}
		var created int
		if op == "guards" {
			created, err = seeder.RandomGuards(n, cfg.Email.UserDomain)
		} else {
			created, err = seeder.RandomExhibitions(n)
		}
		if err != nil {
			logger.Error("seeding failed", slog.String("op", op), slog.String("error", err.Error()))
			return
		}
		logger.Info("records inserted", slog.String("op", op), slog.Int("count", created))
	case "fixture":
		if fixture == "" {
			fixture = cfg.Seed.FixturePath
		}
		f, err := seed.LoadFixture(fixture)
		if err != nil {
			logger.Error("failed to load fixture", slog.String("error", err.Error()))
			return
		}
		res, err := seeder.Apply(f)
		if err != nil {
			logger.Error("failed to apply fixture", slog.String("error", err.Error()))
			return
		}
		logger.Info("fixture applied",
			slog.Int("guards", res.Guards),
			slog.Int("exhibitions", res.Exhibitions),
			slog.Int("non_working_days", res.NonWorkingDays))
	default:
		logger.Error("unknown operation", slog.String("op", op))
	}
}
