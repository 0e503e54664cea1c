package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shinyyama/strata-community/internal/db"
	"github.com/shinyyama/strata-community/internal/imagestore"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/shinyyama/strata-community/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	gdb     *gorm.DB
	repo    repository.MarketplaceRepository
	store   *imagestore.LocalStore
	svc     MarketplaceService
	cleanup CleanupService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store, err := imagestore.NewLocalStore(filepath.Join(t.TempDir(), "marketplace"), "/uploads/marketplace")
	require.NoError(t, err)
	repo := repository.NewMarketplaceRepository(gdb)
	return &testEnv{
		gdb:     gdb,
		repo:    repo,
		store:   store,
		svc:     NewMarketplaceService(repo, nil),
		cleanup: NewCleanupService(repo, store, nil),
	}
}

func validPost() CreatePostInput {
	price := 25.0
	return CreatePostInput{
		Title:       "Bike for sale",
		Description: "Barely used commuter bike",
		Category:    "sports",
		Type:        model.PostTypeSell,
		Price:       &price,
		AuthorName:  "Unit 402",
		AuthorEmail: "user@example.com",
	}
}

func validReply() CreateReplyInput {
	return CreateReplyInput{
		Content:     "Is it still available?",
		AuthorName:  "Unit 101",
		AuthorEmail: "neighbour@example.com",
	}
}

func (e *testEnv) createPost(t *testing.T, images ...string) *model.Post {
	t.Helper()
	in := validPost()
	in.Images = images
	post, err := e.svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return post
}

func (e *testEnv) addReply(t *testing.T, postID string, images ...string) *model.Reply {
	t.Helper()
	in := validReply()
	in.Images = images
	reply, err := e.svc.AddReply(context.Background(), postID, in)
	require.NoError(t, err)
	return reply
}

func (e *testEnv) backdate(t *testing.T, postID string, days int) {
	t.Helper()
	at := time.Now().UTC().AddDate(0, 0, -days)
	require.NoError(t, e.gdb.Model(&model.Post{}).Where("id = ?", postID).UpdateColumn("created_at", at).Error)
}

func (e *testEnv) deactivate(t *testing.T, postID string) {
	t.Helper()
	require.NoError(t, e.svc.SoftDeletePost(context.Background(), postID))
}

// writeImage places a file in the upload directory and returns its URL.
func (e *testEnv) writeImage(t *testing.T, name string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.store.Dir(), name), []byte("img"), 0o644))
	return "/uploads/marketplace/" + name
}

func (e *testEnv) imageExists(name string) bool {
	_, err := os.Stat(filepath.Join(e.store.Dir(), name))
	return err == nil
}

func (e *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.gdb.Model(m).Count(&n).Error)
	return n
}

type MockMarketplaceRepository struct {
	mock.Mock
}

func (m *MockMarketplaceRepository) CreatePost(ctx context.Context, post *model.Post) error {
	args := m.Called(post)
	return args.Error(0)
}

func (m *MockMarketplaceRepository) FindPostByID(ctx context.Context, id string, withReplies bool) (*model.Post, error) {
	args := m.Called(id, withReplies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockMarketplaceRepository) ListActivePosts(ctx context.Context) ([]model.Post, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockMarketplaceRepository) UpdatePost(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(id, fields)
	return args.Error(0)
}

func (m *MockMarketplaceRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	args := m.Called(reply)
	return args.Error(0)
}

func (m *MockMarketplaceRepository) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	args := m.Called(postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reply), args.Error(1)
}

func (m *MockMarketplaceRepository) DeleteReply(ctx context.Context, postID, replyID string) (bool, error) {
	args := m.Called(postID, replyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMarketplaceRepository) FindCleanupCandidates(ctx context.Context, filter repository.CleanupFilter) ([]model.CleanupCandidate, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CleanupCandidate), args.Error(1)
}

func (m *MockMarketplaceRepository) DeletePosts(ctx context.Context, ids []string) error {
	args := m.Called(ids)
	return args.Error(0)
}

func (m *MockMarketplaceRepository) ReferencedImageColumns(ctx context.Context) ([]model.ImageRef, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImageRef), args.Error(1)
}

var _ repository.MarketplaceRepository = (*MockMarketplaceRepository)(nil)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	args := m.Called(name, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, imageURL string) error {
	args := m.Called(imageURL)
	return args.Error(0)
}

func (m *MockImageStore) List(ctx context.Context) ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Owns mirrors LocalStore with the default URL prefix.
func (m *MockImageStore) Owns(imageURL string) bool {
	return strings.HasPrefix(imageURL, "/uploads/marketplace/")
}

var _ imagestore.Store = (*MockImageStore)(nil)
