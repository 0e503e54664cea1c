package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/strata-community/internal/model"
	"github.com/shinyyama/strata-community/internal/service"
	"go.uber.org/zap"
)

type MarketplaceHandler struct {
	svc service.MarketplaceService
	errorWriter
}

func NewMarketplaceHandler(svc service.MarketplaceService, log *zap.Logger, production bool) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, errorWriter: newErrorWriter(log, production)}
}

type ReplyResponse struct {
	ID          string   `json:"id"`
	PostID      string   `json:"postId"`
	Content     string   `json:"content"`
	AuthorName  string   `json:"authorName"`
	AuthorEmail string   `json:"authorEmail,omitempty"`
	AuthorPhone string   `json:"authorPhone,omitempty"`
	Images      []string `json:"images"`
	CreatedAt   string   `json:"createdAt"`
}

type PostResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Price       *float64        `json:"price"`
	AuthorName  string          `json:"authorName"`
	AuthorEmail string          `json:"authorEmail"`
	AuthorPhone string          `json:"authorPhone,omitempty"`
	Images      []string        `json:"images"`
	IsActive    bool            `json:"isActive"`
	IsSold      bool            `json:"isSold"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	Replies     []ReplyResponse `json:"replies"`
}

type CreatePostRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Type           string   `json:"type"`
	Price          Price    `json:"price"`
	AuthorName     string   `json:"authorName"`
	AuthorEmail    string   `json:"authorEmail"`
	AuthorPhone    string   `json:"authorPhone"`
	Images         []string `json:"images"`
	RecaptchaToken string   `json:"recaptchaToken"`
}

type UpdatePostRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Type        *string `json:"type"`
	Price       Price   `json:"price"`
	IsActive    *bool   `json:"isActive"`
}

type CreateReplyRequest struct {
	Content        string   `json:"content"`
	AuthorName     string   `json:"authorName"`
	AuthorEmail    string   `json:"authorEmail"`
	AuthorPhone    string   `json:"authorPhone"`
	Images         []string `json:"images"`
	RecaptchaToken string   `json:"recaptchaToken"`
}

// List is the public listing; reply contact details are left out.
func (h *MarketplaceHandler) List(c echo.Context) error {
	posts, err := h.svc.ListPosts(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "posts")
	}
	resp := make([]PostResponse, 0, len(posts))
	for i := range posts {
		resp = append(resp, toPostResponse(&posts[i], false))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *MarketplaceHandler) Get(c echo.Context) error {
	post, err := h.svc.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusOK, toPostResponse(post, true))
}

func (h *MarketplaceHandler) Create(c echo.Context) error {
	var req CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	post, err := h.svc.CreatePost(c.Request().Context(), service.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        model.PostType(req.Type),
		Price:       req.Price.Value,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		AuthorPhone: req.AuthorPhone,
		Images:      req.Images,
	})
	if err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusCreated, toPostResponse(post, true))
}

func (h *MarketplaceHandler) Update(c echo.Context) error {
	var req UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	in := service.UpdatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price.Value,
		IsActive:    req.IsActive,
	}
	if req.Type != nil {
		t := model.PostType(*req.Type)
		in.Type = &t
	}
	post, err := h.svc.UpdatePost(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusOK, toPostResponse(post, true))
}

func (h *MarketplaceHandler) MarkSold(c echo.Context) error {
	post, err := h.svc.MarkSold(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusOK, toPostResponse(post, true))
}

func (h *MarketplaceHandler) Delete(c echo.Context) error {
	if err := h.svc.SoftDeletePost(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *MarketplaceHandler) CreateReply(c echo.Context) error {
	var req CreateReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	reply, err := h.svc.AddReply(c.Request().Context(), c.Param("id"), service.CreateReplyInput{
		Content:     req.Content,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		AuthorPhone: req.AuthorPhone,
		Images:      req.Images,
	})
	if err != nil {
		return h.fail(c, err, "post")
	}
	return c.JSON(http.StatusCreated, toReplyResponse(reply, true))
}

func (h *MarketplaceHandler) ListReplies(c echo.Context) error {
	replies, err := h.svc.ListReplies(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "post")
	}
	resp := make([]ReplyResponse, 0, len(replies))
	for i := range replies {
		resp = append(resp, toReplyResponse(&replies[i], true))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *MarketplaceHandler) DeleteReply(c echo.Context) error {
	if err := h.svc.DeleteReply(c.Request().Context(), c.Param("id"), c.Param("replyId")); err != nil {
		return h.fail(c, err, "reply")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func toPostResponse(p *model.Post, withContacts bool) PostResponse {
	resp := PostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Type:        string(p.Type),
		Price:       p.Price,
		AuthorName:  p.AuthorName,
		AuthorEmail: p.AuthorEmail,
		AuthorPhone: p.AuthorPhone,
		Images:      imagesOrEmpty(p.Images),
		IsActive:    p.IsActive,
		IsSold:      p.IsSold,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
		Replies:     make([]ReplyResponse, 0, len(p.Replies)),
	}
	for i := range p.Replies {
		resp.Replies = append(resp.Replies, toReplyResponse(&p.Replies[i], withContacts))
	}
	return resp
}

func toReplyResponse(r *model.Reply, withContacts bool) ReplyResponse {
	resp := ReplyResponse{
		ID:         r.ID,
		PostID:     r.PostID,
		Content:    r.Content,
		AuthorName: r.AuthorName,
		Images:     imagesOrEmpty(r.Images),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
	if withContacts {
		resp.AuthorEmail = r.AuthorEmail
		resp.AuthorPhone = r.AuthorPhone
	}
	return resp
}

func imagesOrEmpty(l model.ImageList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
