package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/shinyyama/strata-community/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreatePostInput struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"required"`
	Category    string         `json:"category" validate:"max=64"`
	Type        model.PostType `json:"type" validate:"omitempty,oneof=sell buy trade"`
	Price       *float64       `json:"price" validate:"omitnil,gte=0,lte=99999999.99"`
	AuthorName  string         `json:"authorName" validate:"required,max=120"`
	AuthorEmail string         `json:"authorEmail" validate:"required,max=255,looseemail"`
	AuthorPhone string         `json:"authorPhone" validate:"omitempty,phone"`
	Images      []string       `json:"images" validate:"max=3,dive,imageurl"`
}

type UpdatePostInput struct {
	Title       *string         `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string         `json:"description" validate:"omitnil,min=1"`
	Category    *string         `json:"category" validate:"omitnil,max=64"`
	Type        *model.PostType `json:"type" validate:"omitnil,oneof=sell buy trade"`
	Price       *float64        `json:"price" validate:"omitnil,gte=0,lte=99999999.99"`
	IsActive    *bool           `json:"isActive"`
}

type CreateReplyInput struct {
	Content     string   `json:"content" validate:"required"`
	AuthorName  string   `json:"authorName" validate:"required,max=120"`
	AuthorEmail string   `json:"authorEmail" validate:"required,max=255,looseemail"`
	AuthorPhone string   `json:"authorPhone" validate:"omitempty,phone"`
	Images      []string `json:"images" validate:"max=2,dive,imageurl"`
}

type MarketplaceService interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*model.Post, error)
	MarkSold(ctx context.Context, id string) (*model.Post, error)
	SoftDeletePost(ctx context.Context, id string) error
	AddReply(ctx context.Context, postID string, in CreateReplyInput) (*model.Reply, error)
	ListReplies(ctx context.Context, postID string) ([]model.Reply, error)
	DeleteReply(ctx context.Context, postID, replyID string) error
}

type marketplaceService struct {
	repo     repository.MarketplaceRepository
	validate *validator.Validate
	log      *zap.Logger
}

func NewMarketplaceService(repo repository.MarketplaceRepository, log *zap.Logger) MarketplaceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &marketplaceService{repo: repo, validate: newValidator(), log: log}
}

func (s *marketplaceService) ListPosts(ctx context.Context) ([]model.Post, error) {
	posts, err := s.repo.ListActivePosts(ctx)
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	return posts, nil
}

func (s *marketplaceService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return s.findPost(ctx, id, true)
}

func (s *marketplaceService) CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	in.AuthorPhone = strings.TrimSpace(in.AuthorPhone)
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = model.PostTypeSell
	}

	post := &model.Post{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Type:        in.Type,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		AuthorPhone: in.AuthorPhone,
		Images:      model.ImageList(in.Images),
		IsActive:    true,
		IsSold:      false,
	}
	if in.Type == model.PostTypeSell {
		post.Price = in.Price
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, storageErr("create post", err)
	}
	s.log.Info("marketplace post created", zap.String("post_id", post.ID), zap.String("type", string(post.Type)))
	return post, nil
}

func (s *marketplaceService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*model.Post, error) {
	in.Title = trimmed(in.Title)
	in.Description = trimmed(in.Description)
	in.Category = trimmed(in.Category)
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	current, err := s.findPost(ctx, id, false)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	postType := current.Type
	if in.Type != nil {
		postType = *in.Type
		fields["type"] = postType
	}
	switch {
	case postType != model.PostTypeSell:
		if current.Price != nil || in.Price != nil {
			fields["price"] = nil
		}
	case in.Price != nil:
		fields["price"] = *in.Price
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	if err := s.repo.UpdatePost(ctx, id, fields); err != nil {
		return nil, storageErr("update post", err)
	}
	return s.findPost(ctx, id, false)
}

// MarkSold is idempotent; marking an already sold post again is not an error.
func (s *marketplaceService) MarkSold(ctx context.Context, id string) (*model.Post, error) {
	current, err := s.findPost(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return nil, ErrPostInactive
	}
	if err := s.repo.UpdatePost(ctx, id, map[string]any{"is_sold": true}); err != nil {
		return nil, storageErr("mark post sold", err)
	}
	s.log.Info("marketplace post marked sold", zap.String("post_id", id))
	return s.findPost(ctx, id, false)
}

// SoftDeletePost hides a post from listings. Replies and images stay until
// cleanup removes them.
func (s *marketplaceService) SoftDeletePost(ctx context.Context, id string) error {
	if _, err := s.findPost(ctx, id, false); err != nil {
		return err
	}
	if err := s.repo.UpdatePost(ctx, id, map[string]any{"is_active": false}); err != nil {
		return storageErr("soft delete post", err)
	}
	s.log.Info("marketplace post deactivated", zap.String("post_id", id))
	return nil
}

func (s *marketplaceService) AddReply(ctx context.Context, postID string, in CreateReplyInput) (*model.Reply, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	in.AuthorPhone = strings.TrimSpace(in.AuthorPhone)
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	if _, err := s.findPost(ctx, postID, false); err != nil {
		return nil, err
	}

	reply := &model.Reply{
		PostID:      postID,
		Content:     in.Content,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		AuthorPhone: in.AuthorPhone,
		Images:      model.ImageList(in.Images),
	}
	if err := s.repo.CreateReply(ctx, reply); err != nil {
		return nil, storageErr("create reply", err)
	}
	s.log.Info("marketplace reply created", zap.String("post_id", postID), zap.String("reply_id", reply.ID))
	return reply, nil
}

func (s *marketplaceService) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	if _, err := s.findPost(ctx, postID, false); err != nil {
		return nil, err
	}
	replies, err := s.repo.ListReplies(ctx, postID)
	if err != nil {
		return nil, storageErr("list replies", err)
	}
	return replies, nil
}

func (s *marketplaceService) DeleteReply(ctx context.Context, postID, replyID string) error {
	deleted, err := s.repo.DeleteReply(ctx, postID, replyID)
	if err != nil {
		return storageErr("delete reply", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.log.Info("marketplace reply deleted", zap.String("post_id", postID), zap.String("reply_id", replyID))
	return nil
}

func (s *marketplaceService) findPost(ctx context.Context, id string, withReplies bool) (*model.Post, error) {
	post, err := s.repo.FindPostByID(ctx, id, withReplies)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("find post", err)
	}
	return post, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
