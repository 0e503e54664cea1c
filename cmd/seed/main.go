// Command seed fills an empty marketplace with sample posts and replies.
// Set FORCE_SEED=true to wipe existing posts first.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/strata-community/internal/config"
	"github.com/shinyyama/strata-community/internal/db"
	"github.com/shinyyama/strata-community/internal/logging"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/shinyyama/strata-community/internal/repository"
	"github.com/shinyyama/strata-community/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedPost struct {
	Title    string
	Category string
	Type     model.PostType
	Price    float64
	Unit     string
	Replies  []string
	Sold     bool
	Inactive bool
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
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
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		logger.Info("posts already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}
	if err := wipe(ctx, gdb); err != nil {
		return err
	}

	svc := service.NewMarketplaceService(repository.NewMarketplaceRepository(gdb), logger)
	posts := buildSeedPosts()
	for idx, sp := range posts {
		if err := insertPost(ctx, svc, idx+1, sp); err != nil {
			return err
		}
	}
	logger.Info("seeded marketplace", zap.Int("posts", len(posts)))
	return nil
}

func buildSeedPosts() []seedPost {
	return []seedPost{
		{Title: "Road bike, 54cm frame", Category: "sports", Type: model.PostTypeSell, Price: 180, Unit: "Unit 402",
			Replies: []string{"Is it still available?", "Would you take 150?"}},
		{Title: "Oak dining table", Category: "furniture", Type: model.PostTypeSell, Price: 250, Unit: "Unit 115", Sold: true,
			Replies: []string{"Can I pick it up Saturday?"}},
		{Title: "Looking for a pram", Category: "baby-kids", Type: model.PostTypeBuy, Unit: "Unit 708"},
		{Title: "Swap: board games for puzzles", Category: "toys-hobbies", Type: model.PostTypeTrade, Unit: "Unit 301",
			Replies: []string{"I have three 1000 piece puzzles."}},
		{Title: "Standing desk frame", Category: "office", Type: model.PostTypeSell, Price: 120, Unit: "Unit 220"},
		{Title: "Kids scooter", Category: "baby-kids", Type: model.PostTypeSell, Price: 30, Unit: "Unit 512", Inactive: true},
		{Title: "Spare parking bay keys", Category: "others", Type: model.PostTypeBuy, Unit: "Unit 9"},
	}
}

func insertPost(ctx context.Context, svc service.MarketplaceService, idx int, sp seedPost) error {
	in := service.CreatePostInput{
		Title:       sp.Title,
		Description: fmt.Sprintf("%s. Collect from the lobby, message first.", sp.Title),
		Category:    sp.Category,
		Type:        sp.Type,
		AuthorName:  sp.Unit,
		AuthorEmail: fmt.Sprintf("resident%d@example.com", idx),
		Images:      []string{picsumURL(sp.Category, idx)},
	}
	if sp.Type == model.PostTypeSell {
		price := sp.Price
		in.Price = &price
	}
	post, err := svc.CreatePost(ctx, in)
	if err != nil {
		return fmt.Errorf("insert post %q: %w", sp.Title, err)
	}
	for i, content := range sp.Replies {
		_, err := svc.AddReply(ctx, post.ID, service.CreateReplyInput{
			Content:     content,
			AuthorName:  fmt.Sprintf("Unit %d", 100+idx*10+i),
			AuthorEmail: fmt.Sprintf("neighbour%d-%d@example.com", idx, i),
		})
		if err != nil {
			return fmt.Errorf("insert reply on %q: %w", sp.Title, err)
		}
	}
	if sp.Sold {
		if _, err := svc.MarkSold(ctx, post.ID); err != nil {
			return fmt.Errorf("mark %q sold: %w", sp.Title, err)
		}
	}
	if sp.Inactive {
		if err := svc.SoftDeletePost(ctx, post.ID); err != nil {
			return fmt.Errorf("deactivate %q: %w", sp.Title, err)
		}
	}
	return nil
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Post{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count posts: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func wipe(ctx context.Context, gdb *gorm.DB) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Reply{}).Error; err != nil {
			return fmt.Errorf("clear replies: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		return nil
	})
}

func picsumURL(category string, idx int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", category, idx)
}
