package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shinyyama/strata-community/internal/db"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestRepo(t *testing.T) (MarketplaceRepository, *gorm.DB) {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewMarketplaceRepository(gdb), gdb
}

func newPost(title string, images ...string) *model.Post {
	return &model.Post{
		Title:       title,
		Description: "desc",
		Type:        model.PostTypeSell,
		AuthorName:  "Resident",
		AuthorEmail: "resident@example.com",
		Images:      model.ImageList(images),
		IsActive:    true,
	}
}

func backdate(t *testing.T, gdb *gorm.DB, postID string, days int) {
	t.Helper()
	at := time.Now().UTC().AddDate(0, 0, -days)
	require.NoError(t, gdb.Model(&model.Post{}).Where("id = ?", postID).UpdateColumn("created_at", at).Error)
}

func TestNilDB(t *testing.T) {
	repo := NewMarketplaceRepository(nil)
	_, err := repo.ListActivePosts(context.Background())
	assert.ErrorIs(t, err, ErrDBNotReady)
	assert.ErrorIs(t, repo.CreatePost(context.Background(), newPost("x")), ErrDBNotReady)
}

func TestCreateAndListActivePosts(t *testing.T) {
	repo, gdb := setupTestRepo(t)
	ctx := context.Background()

	older := newPost("older", "/uploads/marketplace/a.jpg")
	require.NoError(t, repo.CreatePost(ctx, older))
	backdate(t, gdb, older.ID, 2)
	newer := newPost("newer")
	require.NoError(t, repo.CreatePost(ctx, newer))
	hidden := newPost("hidden")
	require.NoError(t, repo.CreatePost(ctx, hidden))
	require.NoError(t, repo.UpdatePost(ctx, hidden.ID, map[string]any{"is_active": false}))

	first := &model.Reply{PostID: older.ID, Content: "first", AuthorName: "A", AuthorEmail: "a@example.com"}
	require.NoError(t, repo.CreateReply(ctx, first))
	second := &model.Reply{PostID: older.ID, Content: "second", AuthorName: "B", AuthorEmail: "b@example.com"}
	require.NoError(t, repo.CreateReply(ctx, second))
	require.NoError(t, gdb.Model(&model.Reply{}).Where("id = ?", first.ID).
		UpdateColumn("created_at", time.Now().UTC().Add(-time.Hour)).Error)

	posts, err := repo.ListActivePosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newer", posts[0].Title)
	assert.Equal(t, "older", posts[1].Title)
	assert.Equal(t, model.ImageList{"/uploads/marketplace/a.jpg"}, posts[1].Images)
	require.Len(t, posts[1].Replies, 2)
	assert.Equal(t, "first", posts[1].Replies[0].Content)
	assert.Equal(t, "second", posts[1].Replies[1].Content)
	assert.NotEmpty(t, posts[0].ID)
}

func TestListActivePostsToleratesMalformedImages(t *testing.T) {
	repo, gdb := setupTestRepo(t)
	ctx := context.Background()

	bad := newPost("bad images")
	require.NoError(t, repo.CreatePost(ctx, bad))
	require.NoError(t, gdb.Model(&model.Post{}).Where("id = ?", bad.ID).UpdateColumn("images", "not json").Error)
	good := newPost("good images", "/uploads/marketplace/g.jpg")
	require.NoError(t, repo.CreatePost(ctx, good))

	posts, err := repo.ListActivePosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	byID := map[string]model.Post{posts[0].ID: posts[0], posts[1].ID: posts[1]}
	assert.Empty(t, byID[bad.ID].Images)
	assert.Equal(t, model.ImageList{"/uploads/marketplace/g.jpg"}, byID[good.ID].Images)
}

func TestFindPostByIDNotFound(t *testing.T) {
	repo, _ := setupTestRepo(t)
	_, err := repo.FindPostByID(context.Background(), "missing", false)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDeleteReply(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()
	post := newPost("p")
	require.NoError(t, repo.CreatePost(ctx, post))
	reply := &model.Reply{PostID: post.ID, Content: "hi", AuthorName: "A", AuthorEmail: "a@example.com"}
	require.NoError(t, repo.CreateReply(ctx, reply))

	deleted, err := repo.DeleteReply(ctx, "other-post", reply.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteReply(ctx, post.ID, reply.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteReply(ctx, post.ID, reply.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFindCleanupCandidates(t *testing.T) {
	repo, gdb := setupTestRepo(t)
	ctx := context.Background()

	oldInactive := newPost("old-inactive", "/uploads/marketplace/a.jpg")
	oldActive := newPost("old-active")
	newInactive := newPost("new-inactive")
	oldSold := newPost("old-sold")
	for _, p := range []*model.Post{oldInactive, oldActive, newInactive, oldSold} {
		require.NoError(t, repo.CreatePost(ctx, p))
	}
	backdate(t, gdb, oldInactive.ID, 100)
	backdate(t, gdb, oldActive.ID, 100)
	backdate(t, gdb, oldSold.ID, 100)
	require.NoError(t, repo.UpdatePost(ctx, oldInactive.ID, map[string]any{"is_active": false}))
	require.NoError(t, repo.UpdatePost(ctx, newInactive.ID, map[string]any{"is_active": false}))
	require.NoError(t, repo.UpdatePost(ctx, oldSold.ID, map[string]any{"is_sold": true}))
	require.NoError(t, repo.CreateReply(ctx, &model.Reply{PostID: oldInactive.ID, Content: "c", AuthorName: "A", AuthorEmail: "a@example.com", Images: model.ImageList{"/uploads/marketplace/r.jpg"}}))

	cutoff := time.Now().UTC().AddDate(0, 0, -90)
	titles := func(f CleanupFilter) []string {
		got, err := repo.FindCleanupCandidates(ctx, f)
		require.NoError(t, err)
		var ids []string
		for _, c := range got {
			ids = append(ids, c.Post.ID)
		}
		return ids
	}

	t.Run("age and inactive", func(t *testing.T) {
		got, err := repo.FindCleanupCandidates(ctx, CleanupFilter{CreatedBefore: &cutoff, InactiveOnly: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, oldInactive.ID, got[0].Post.ID)
		assert.Equal(t, `["/uploads/marketplace/a.jpg"]`, got[0].Post.Images)
		require.Len(t, got[0].Replies, 1)
		assert.Equal(t, `["/uploads/marketplace/r.jpg"]`, got[0].Replies[0].Images)
	})
	t.Run("age and sold", func(t *testing.T) {
		assert.Equal(t, []string{oldSold.ID}, titles(CleanupFilter{CreatedBefore: &cutoff, SoldOnly: true}))
	})
	t.Run("age or inactive", func(t *testing.T) {
		assert.ElementsMatch(t, []string{oldInactive.ID, oldActive.ID, oldSold.ID, newInactive.ID},
			titles(CleanupFilter{CreatedBefore: &cutoff, InactiveOnly: true, MatchAny: true}))
	})
	t.Run("empty filter matches nothing", func(t *testing.T) {
		assert.Empty(t, titles(CleanupFilter{}))
	})
}

func TestDeletePostsCascadesReplies(t *testing.T) {
	repo, gdb := setupTestRepo(t)
	ctx := context.Background()
	post := newPost("gone")
	keep := newPost("keep")
	require.NoError(t, repo.CreatePost(ctx, post))
	require.NoError(t, repo.CreatePost(ctx, keep))
	require.NoError(t, repo.CreateReply(ctx, &model.Reply{PostID: post.ID, Content: "c", AuthorName: "A", AuthorEmail: "a@example.com"}))
	require.NoError(t, repo.CreateReply(ctx, &model.Reply{PostID: keep.ID, Content: "c", AuthorName: "A", AuthorEmail: "a@example.com"}))

	require.NoError(t, repo.DeletePosts(ctx, []string{post.ID}))

	var posts, replies int64
	require.NoError(t, gdb.Model(&model.Post{}).Count(&posts).Error)
	require.NoError(t, gdb.Model(&model.Reply{}).Count(&replies).Error)
	assert.Equal(t, int64(1), posts)
	assert.Equal(t, int64(1), replies)
}

func TestReferencedImageColumns(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()
	active := newPost("active", "/uploads/marketplace/a.jpg")
	inactive := newPost("inactive", "/uploads/marketplace/b.jpg")
	require.NoError(t, repo.CreatePost(ctx, active))
	require.NoError(t, repo.CreatePost(ctx, inactive))
	require.NoError(t, repo.UpdatePost(ctx, inactive.ID, map[string]any{"is_active": false}))
	require.NoError(t, repo.CreateReply(ctx, &model.Reply{PostID: inactive.ID, Content: "c", AuthorName: "A", AuthorEmail: "a@example.com", Images: model.ImageList{"/uploads/marketplace/c.jpg"}}))

	refs, err := repo.ReferencedImageColumns(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.ImageRef{
		{PostID: active.ID, Images: `["/uploads/marketplace/a.jpg"]`},
		{PostID: inactive.ID, Images: `["/uploads/marketplace/c.jpg"]`},
	}, refs)
}
