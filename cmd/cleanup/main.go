// Command cleanup runs one marketplace cleanup pass against the configured
// database and image store and prints the resulting stats as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shinyyama/strata-community/internal/config"
	"github.com/shinyyama/strata-community/internal/db"
	"github.com/shinyyama/strata-community/internal/imagestore"
	"github.com/shinyyama/strata-community/internal/logging"
	"github.com/shinyyama/strata-community/internal/repository"
	"github.com/shinyyama/strata-community/internal/service"
)

type output struct {
	DryRun         bool   `json:"dryRun"`
	PostsDeleted   int    `json:"postsDeleted"`
	RepliesDeleted int    `json:"repliesDeleted"`
	ImagesDeleted  int    `json:"imagesDeleted"`
	SpaceFreed     string `json:"spaceFreed"`
	Message        string `json:"message"`
}

func main() {
	opts := service.DefaultCleanupOptions()
	flag.IntVar(&opts.DeleteOlderThanDays, "older-than-days", opts.DeleteOlderThanDays, "only posts created more than this many days ago (0 disables)")
	flag.BoolVar(&opts.DeleteSoldItems, "sold", opts.DeleteSoldItems, "only sold posts")
	flag.BoolVar(&opts.DeleteInactivePosts, "inactive", opts.DeleteInactivePosts, "only inactive posts")
	flag.BoolVar(&opts.DeleteOrphanedImages, "images", opts.DeleteOrphanedImages, "delete images of removed posts and unreferenced files")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "report what would be removed without changing anything")
	flag.BoolVar(&opts.MatchAny, "match-any", false, "remove posts matching any enabled filter instead of all")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
}

func run(ctx context.Context, opts service.CleanupOptions) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	images, closeImages, err := imagestore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeImages() }()

	svc := service.NewCleanupService(repository.NewMarketplaceRepository(gdb), images, logger)
	stats, err := svc.Run(ctx, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		DryRun:         stats.DryRun,
		PostsDeleted:   stats.PostsDeleted,
		RepliesDeleted: stats.RepliesDeleted,
		ImagesDeleted:  stats.ImagesDeleted,
		SpaceFreed:     stats.SpaceFreed,
		Message:        stats.Message,
	})
}
