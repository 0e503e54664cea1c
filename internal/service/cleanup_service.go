package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shinyyama/strata-community/internal/imagestore"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/shinyyama/strata-community/internal/repository"
	"go.uber.org/zap"
)

// averageImageBytes is the fixed per-image estimate behind SpaceFreed.
const averageImageBytes = 200_000

// CleanupOptions selects what a cleanup run removes. The enabled post
// filters (age, sold, inactive) must all hold for a post to be removed
// unless MatchAny is set, in which case any one of them suffices.
type CleanupOptions struct {
	DeleteOlderThanDays  int
	DeleteSoldItems      bool
	DeleteInactivePosts  bool
	DeleteOrphanedImages bool
	DryRun               bool
	MatchAny             bool
}

func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		DeleteOlderThanDays:  90,
		DeleteSoldItems:      false,
		DeleteInactivePosts:  true,
		DeleteOrphanedImages: true,
	}
}

type CleanupStats struct {
	PostsDeleted   int
	RepliesDeleted int
	ImagesDeleted  int
	SpaceFreed     string
	DryRun         bool
	Message        string
}

// CleanupService removes stale marketplace rows and unreferenced images.
//
// Runs are best effort and unsynchronised: rows are selected, deleted, then
// the image store is swept against whatever is referenced at sweep time. An
// image uploaded but not yet attached to a post when the sweep runs can be
// removed as an orphan, and concurrent runs may race on the same files.
type CleanupService interface {
	Run(ctx context.Context, opts CleanupOptions) (*CleanupStats, error)
}

type cleanupService struct {
	repo  repository.MarketplaceRepository
	store imagestore.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewCleanupService(repo repository.MarketplaceRepository, store imagestore.Store, log *zap.Logger) CleanupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &cleanupService{repo: repo, store: store, log: log, now: time.Now}
}

func (s *cleanupService) Run(ctx context.Context, opts CleanupOptions) (*CleanupStats, error) {
	if opts.DeleteOlderThanDays < 0 {
		return nil, &ValidationError{Field: "deleteOlderThanDays", Message: "must not be negative"}
	}
	filter := repository.CleanupFilter{
		SoldOnly:     opts.DeleteSoldItems,
		InactiveOnly: opts.DeleteInactivePosts,
		MatchAny:     opts.MatchAny,
	}
	if opts.DeleteOlderThanDays > 0 {
		cutoff := s.now().UTC().AddDate(0, 0, -opts.DeleteOlderThanDays)
		filter.CreatedBefore = &cutoff
	}

	candidates, err := s.repo.FindCleanupCandidates(ctx, filter)
	if err != nil {
		return nil, storageErr("select cleanup candidates", err)
	}

	stats := &CleanupStats{DryRun: opts.DryRun}
	ids := make([]string, 0, len(candidates))
	var images []string
	seen := make(map[string]bool)
	collect := func(kind, id, raw string) {
		list, err := model.ParseImageList(raw)
		if err != nil {
			s.log.Warn("skipping images of record with malformed images column",
				zap.String("kind", kind), zap.String("id", id), zap.Error(err))
			return
		}
		for _, img := range list {
			if !seen[img] {
				seen[img] = true
				images = append(images, img)
			}
		}
	}
	for _, c := range candidates {
		ids = append(ids, c.Post.ID)
		stats.PostsDeleted++
		stats.RepliesDeleted += len(c.Replies)
		collect("post", c.Post.ID, c.Post.Images)
		for _, r := range c.Replies {
			collect("reply", r.ID, r.Images)
		}
	}

	if !opts.DryRun {
		if err := s.repo.DeletePosts(ctx, ids); err != nil {
			return nil, storageErr("delete cleanup candidates", err)
		}
	}

	if opts.DeleteOrphanedImages {
		s.removeImages(ctx, stats, images, ids)
	}

	s.finish(stats)
	if !opts.DryRun {
		s.log.Info("marketplace cleanup finished",
			zap.Int("posts_deleted", stats.PostsDeleted),
			zap.Int("replies_deleted", stats.RepliesDeleted),
			zap.Int("images_deleted", stats.ImagesDeleted))
	}
	return stats, nil
}

// removeImages deletes the images of removed posts that nothing else still
// uses, then sweeps unreferenced files. A dry run only counts the former.
// Without a trustworthy reference set no file is touched.
func (s *cleanupService) removeImages(ctx context.Context, stats *CleanupStats, images, removedIDs []string) {
	removed := make(map[string]bool, len(removedIDs))
	for _, id := range removedIDs {
		removed[id] = true
	}
	referenced, err := s.referencedNames(ctx, removed)
	if err != nil {
		s.log.Error("image cleanup skipped", zap.Error(err))
		return
	}

	for _, img := range images {
		if !s.store.Owns(img) {
			continue
		}
		if name, err := imagestore.NameFromURL(img); err != nil || referenced[name] {
			continue
		}
		if stats.DryRun {
			stats.ImagesDeleted++
			continue
		}
		if s.deleteImage(ctx, img) {
			stats.ImagesDeleted++
		}
	}
	if stats.DryRun {
		return
	}

	swept, err := s.sweepOrphans(ctx, referenced)
	if err != nil {
		s.log.Error("orphaned image sweep skipped", zap.Error(err))
	}
	stats.ImagesDeleted += swept
}

// referencedNames collects the file names used by active posts and by any
// reply, ignoring rows of posts in exclude. A malformed images column is an
// error, since the files it points at cannot be told apart from orphans.
func (s *cleanupService) referencedNames(ctx context.Context, exclude map[string]bool) (map[string]bool, error) {
	refs, err := s.repo.ReferencedImageColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load referenced images: %w", err)
	}
	referenced := make(map[string]bool)
	for _, ref := range refs {
		if exclude[ref.PostID] {
			continue
		}
		list, err := model.ParseImageList(ref.Images)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", ref.PostID, err)
		}
		for _, img := range list {
			if name, err := imagestore.NameFromURL(img); err == nil {
				referenced[name] = true
			}
		}
	}
	return referenced, nil
}

// sweepOrphans deletes every stored file not in referenced.
func (s *cleanupService) sweepOrphans(ctx context.Context, referenced map[string]bool) (int, error) {
	names, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored images: %w", err)
	}
	deleted := 0
	for _, name := range names {
		if referenced[name] {
			continue
		}
		if s.deleteImage(ctx, name) {
			deleted++
		}
	}
	return deleted, nil
}

func (s *cleanupService) deleteImage(ctx context.Context, img string) bool {
	err := s.store.Delete(ctx, img)
	switch {
	case err == nil:
		return true
	case errors.Is(err, imagestore.ErrNotExist):
		s.log.Debug("image already gone", zap.String("image", img))
	default:
		s.log.Warn("failed to delete image", zap.String("image", img), zap.Error(err))
	}
	return false
}

func (s *cleanupService) finish(stats *CleanupStats) {
	stats.SpaceFreed = humanize.Bytes(uint64(stats.ImagesDeleted) * averageImageBytes)
	stats.Message = FormatCleanupStats(stats)
}

func FormatCleanupStats(stats *CleanupStats) string {
	var parts []string
	if stats.PostsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d posts", stats.PostsDeleted))
	}
	if stats.RepliesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d replies", stats.RepliesDeleted))
	}
	if stats.ImagesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d images", stats.ImagesDeleted))
	}
	if len(parts) == 0 {
		return "No items found for cleanup"
	}
	prefix := "Cleaned up: "
	if stats.DryRun {
		prefix = "Preview: would clean up "
	}
	return prefix + strings.Join(parts, ", ") + " | Space freed: " + stats.SpaceFreed
}
