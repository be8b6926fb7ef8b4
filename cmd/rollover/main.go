package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/mirror"
	"kada-backend/internal/rollover"
)

func main() {
	date := flag.String("date", "", "Optional: business date to roll over (YYYY-MM-DD). Defaults to today in BUSINESS_TIMEZONE.")
	force := flag.Bool("force", false, "Run even if the date was already rolled over")
	flag.Parse()

	os.Exit(run(*date, *force))
}

// run returns the process exit code so deferred cleanup happens before exit.
func run(date string, force bool) int {
	cfg := config.Load()
	logger := config.GetLogger()

	day := strings.TrimSpace(date)
	if day == "" {
		day = time.Now().In(cfg.Location()).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --date %q: %v\n", day, err)
		return 1
	}

	if cfg.FirestoreProjectID == "" {
		fmt.Fprintln(os.Stderr, "FIRESTORE_PROJECT_ID is required")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	database.Init(cfg)
	cache.Connect(ctx, cfg.RedisAddress)
	defer cache.Close()

	store, err := mirror.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "firestore: %v\n", err)
		return 1
	}
	defer store.Close()

	job := rollover.NewJob(rollover.DBVendors{DB: database.DB}, store, rollover.NewRedisLocker(cache.GetLocker()), logger)
	res, err := job.Run(ctx, day, force)
	if errors.Is(err, rollover.ErrAlreadyDone) {
		fmt.Printf("rollover for %s already done\n", day)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollover %s failed: %v\n", day, err)
		return 1
	}
	fmt.Printf("rolled over %d vendors for %s\n", res.Vendors, res.Date)
	return 0
}
