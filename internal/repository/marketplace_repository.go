package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/strata-community/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// idChunk bounds the size of IN (...) lists sent to the database.
const idChunk = 500

// CleanupFilter selects posts for physical removal. Enabled conditions are
// AND-ed unless MatchAny is set. A filter with no enabled condition matches
// nothing.
type CleanupFilter struct {
	CreatedBefore *time.Time
	SoldOnly      bool
	InactiveOnly  bool
	MatchAny      bool
}

func (f CleanupFilter) Empty() bool {
	return f.CreatedBefore == nil && !f.SoldOnly && !f.InactiveOnly
}

type MarketplaceRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	FindPostByID(ctx context.Context, id string, withReplies bool) (*model.Post, error)
	ListActivePosts(ctx context.Context) ([]model.Post, error)
	UpdatePost(ctx context.Context, id string, fields map[string]any) error
	CreateReply(ctx context.Context, reply *model.Reply) error
	ListReplies(ctx context.Context, postID string) ([]model.Reply, error)
	DeleteReply(ctx context.Context, postID, replyID string) (bool, error)
	FindCleanupCandidates(ctx context.Context, filter CleanupFilter) ([]model.CleanupCandidate, error)
	DeletePosts(ctx context.Context, ids []string) error
	ReferencedImageColumns(ctx context.Context) ([]model.ImageRef, error)
}

type marketplaceRepository struct {
	db *gorm.DB
}

func NewMarketplaceRepository(db *gorm.DB) MarketplaceRepository {
	return &marketplaceRepository{db: db}
}

func (r *marketplaceRepository) CreatePost(ctx context.Context, post *model.Post) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *marketplaceRepository) FindPostByID(ctx context.Context, id string, withReplies bool) (*model.Post, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx)
	if withReplies {
		q = q.Preload("Replies", orderByCreatedAsc)
	}
	var post model.Post
	if err := q.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *marketplaceRepository) ListActivePosts(ctx context.Context) ([]model.Post, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var posts []model.Post
	if err := r.db.WithContext(ctx).
		Preload("Replies", orderByCreatedAsc).
		Where("is_active = ?", true).
		Order("created_at desc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *marketplaceRepository) UpdatePost(ctx context.Context, id string, fields map[string]any) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *marketplaceRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *marketplaceRepository) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var replies []model.Reply
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at asc").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *marketplaceRepository) DeleteReply(ctx context.Context, postID, replyID string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", replyID, postID).
		Delete(&model.Reply{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *marketplaceRepository) FindCleanupCandidates(ctx context.Context, filter CleanupFilter) ([]model.CleanupCandidate, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if filter.Empty() {
		return nil, nil
	}

	var posts []model.PostImages
	if err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("id", "images").
		Where(cleanupScope(r.db, filter)).
		Order("created_at asc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	byPost := make(map[string][]model.ReplyImages, len(posts))
	for _, chunk := range chunkIDs(ids) {
		var replies []model.ReplyImages
		if err := r.db.WithContext(ctx).
			Model(&model.Reply{}).
			Select("id", "post_id", "images").
			Where("post_id IN ?", chunk).
			Find(&replies).Error; err != nil {
			return nil, err
		}
		for _, rp := range replies {
			byPost[rp.PostID] = append(byPost[rp.PostID], rp)
		}
	}

	out := make([]model.CleanupCandidate, 0, len(posts))
	for _, p := range posts {
		out = append(out, model.CleanupCandidate{Post: p, Replies: byPost[p.ID]})
	}
	return out, nil
}

// DeletePosts removes the posts and their replies in one transaction.
func (r *marketplaceRepository) DeletePosts(ctx context.Context, ids []string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, chunk := range chunkIDs(ids) {
			if err := tx.Where("post_id IN ?", chunk).Delete(&model.Reply{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", chunk).Delete(&model.Post{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReferencedImageColumns returns the raw images column of every active post
// and of every reply. NULL columns are skipped.
func (r *marketplaceRepository) ReferencedImageColumns(ctx context.Context) ([]model.ImageRef, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var postRefs, replyRefs []model.ImageRef
	if err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("id AS post_id", "images").
		Where("is_active = ? AND images IS NOT NULL", true).
		Scan(&postRefs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Reply{}).
		Select("post_id", "images").
		Where("images IS NOT NULL").
		Scan(&replyRefs).Error; err != nil {
		return nil, err
	}
	return append(postRefs, replyRefs...), nil
}

func orderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}

func cleanupScope(db *gorm.DB, f CleanupFilter) *gorm.DB {
	type cond struct {
		query string
		arg   any
	}
	var conds []cond
	if f.CreatedBefore != nil {
		conds = append(conds, cond{"created_at < ?", *f.CreatedBefore})
	}
	if f.SoldOnly {
		conds = append(conds, cond{"is_sold = ?", true})
	}
	if f.InactiveOnly {
		conds = append(conds, cond{"is_active = ?", false})
	}

	scope := db.Session(&gorm.Session{NewDB: true})
	for i, c := range conds {
		if i > 0 && f.MatchAny {
			scope = scope.Or(c.query, c.arg)
			continue
		}
		scope = scope.Where(c.query, c.arg)
	}
	return scope
}

func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += idChunk {
		end := start + idChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
