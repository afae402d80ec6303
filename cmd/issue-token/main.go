package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/database"
	"github.com/lotuseval/placement-backend/internal/event"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/logger"
	"github.com/lotuseval/placement-backend/internal/repository"
	"github.com/lotuseval/placement-backend/internal/service"
)

// issue-token creates exam links from the command line, one per line on stdout.
func main() {
	var (
		examType string
		count    int
		ttl      time.Duration
		issuer   string
	)
	flag.StringVar(&examType, "exam", "", "Exam type the links grant (required)")
	flag.IntVar(&count, "n", 1, "Number of links to issue")
	flag.DurationVar(&ttl, "ttl", 0, "Link lifetime (default: TOKEN_TTL)")
	flag.StringVar(&issuer, "issuer", "cli", "Recorded as the issuing admin")
	flag.Parse()

	if examType == "" || count < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	rules, err := exam.LoadRuleset(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam rules")
	}
	r, err := rules.Get(examType)
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown exam type")
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Links are issued offline, so nobody needs notifying.
	publisher, _ := event.NewEventPublisher("", "", log)
	gate := service.NewAccessGate(cfg, repository.NewTokenRepository(pool), repository.NewApprovalRepository(pool), publisher, log)

	for i := 0; i < count; i++ {
		issued, err := gate.IssueToken(ctx, r.ExamType, issuer, ttl)
		if err != nil {
			log.Fatal().Err(err).Int("issued", i).Msg("Failed to issue token")
		}
		fmt.Printf("%s\t%s\n", issued.Link, issued.ExpiresAt.Format(time.RFC3339))
	}
}
