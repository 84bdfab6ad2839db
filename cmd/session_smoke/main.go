package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"calm_games/internal/apiclient"
	"calm_games/internal/config"
	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/session"
	"calm_games/internal/wallet"
)

type printNotifier struct{}

func (printNotifier) Notify(msg string) { fmt.Println("toast:", msg) }

type printNavigator struct{}

func (printNavigator) Navigate(to string) { fmt.Println("navigate:", to) }

// session_smoke plays one game against a running backend and checks that
// the wallet moved by exactly the reported reward.
func main() {
	gameID := flag.String("game", "brain-smoke-test", "game id")
	levels := flag.Int("levels", 5, "total levels")
	coins := flag.Int64("coins", 5, "coins offered")
	score := flag.Int("score", 5, "raw score to finish with")
	flag.Parse()

	cfg := config.LoadClient()
	if cfg.APIToken == "" {
		logger.Fatal("API_TOKEN not set (see cmd/create_test_user)")
	}

	client := apiclient.New(cfg.APIBaseURL, cfg.APIToken)
	bus := wallet.NewBus()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	feed, err := apiclient.NewFeed(cfg.APIBaseURL, cfg.APIToken, bus)
	if err != nil {
		logger.Fatal("feed", "error", err)
	}
	go func() { _ = feed.Run(ctx) }()

	store := wallet.NewStore(client)
	header := wallet.NewDisplay("header", store, bus)
	header.Mount(ctx)
	defer header.Unmount()

	if err := store.Refresh(ctx); err != nil {
		logger.Fatal("initial wallet read", "error", err)
	}
	before := store.Balance()

	gameCfg := session.Config{
		GameID:      *gameID,
		GameType:    domain.GameTypeBrain,
		TotalLevels: *levels,
		TotalCoins:  *coins,
	}
	if err := gameCfg.Validate(); err != nil {
		logger.Fatal("bad game definition", "error", err)
	}

	c := session.NewController(gameCfg, session.Deps{
		API:           client,
		Publisher:     bus,
		Notifier:      printNotifier{},
		Navigator:     printNavigator{},
		BackDelay:     cfg.BackDelay,
		DefaultReturn: cfg.DefaultReturn,
		SubmitTimeout: cfg.SubmitTimeout,
	})

	c.Finish(ctx, *score)
	v, err := c.Wait(ctx)
	if err != nil {
		logger.Fatal("wait for result", "error", err)
	}
	fmt.Printf("%s %s (%d/%d) saved=%v\n", v.Title, v.CoinsLine, v.Score, v.TotalLevels, v.Saved)

	if err := store.Refresh(ctx); err != nil {
		logger.Fatal("wallet read", "error", err)
	}
	after := store.Balance()
	fmt.Printf("wallet %d -> %d\n", before, after)

	if v.Saved && after-before != v.CoinsEarned {
		fmt.Fprintf(os.Stderr, "wallet moved by %d, expected %d\n", after-before, v.CoinsEarned)
		os.Exit(1)
	}

	if _, err := c.Back(ctx); err != nil {
		logger.Fatal("back", "error", err)
	}
}
