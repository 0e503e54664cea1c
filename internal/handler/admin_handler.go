package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/strata-community/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	cleanup service.CleanupService
	errorWriter
}

func NewAdminHandler(cleanup service.CleanupService, log *zap.Logger, production bool) *AdminHandler {
	return &AdminHandler{cleanup: cleanup, errorWriter: newErrorWriter(log, production)}
}

// CleanupRequest fields are optional; omitted ones take the defaults.
type CleanupRequest struct {
	DeleteOlderThanDays  *int  `json:"deleteOlderThanDays"`
	DeleteSoldItems      *bool `json:"deleteSoldItems"`
	DeleteInactivePosts  *bool `json:"deleteInactivePosts"`
	DeleteOrphanedImages *bool `json:"deleteOrphanedImages"`
	DryRun               *bool `json:"dryRun"`
	MatchAny             *bool `json:"matchAny"`
}

func (r CleanupRequest) options() service.CleanupOptions {
	opts := service.DefaultCleanupOptions()
	if r.DeleteOlderThanDays != nil {
		opts.DeleteOlderThanDays = *r.DeleteOlderThanDays
	}
	if r.DeleteSoldItems != nil {
		opts.DeleteSoldItems = *r.DeleteSoldItems
	}
	if r.DeleteInactivePosts != nil {
		opts.DeleteInactivePosts = *r.DeleteInactivePosts
	}
	if r.DeleteOrphanedImages != nil {
		opts.DeleteOrphanedImages = *r.DeleteOrphanedImages
	}
	if r.DryRun != nil {
		opts.DryRun = *r.DryRun
	}
	if r.MatchAny != nil {
		opts.MatchAny = *r.MatchAny
	}
	return opts
}

type CleanupResponse struct {
	Success        bool   `json:"success"`
	DryRun         bool   `json:"dryRun"`
	PostsDeleted   int    `json:"postsDeleted"`
	RepliesDeleted int    `json:"repliesDeleted"`
	ImagesDeleted  int    `json:"imagesDeleted"`
	SpaceFreed     string `json:"spaceFreed"`
	Message        string `json:"message"`
}

func (h *AdminHandler) Cleanup(c echo.Context) error {
	var req CleanupRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
		}
	}
	stats, err := h.cleanup.Run(c.Request().Context(), req.options())
	if err != nil {
		return h.fail(c, err, "cleanup")
	}
	return c.JSON(http.StatusOK, CleanupResponse{
		Success:        true,
		DryRun:         stats.DryRun,
		PostsDeleted:   stats.PostsDeleted,
		RepliesDeleted: stats.RepliesDeleted,
		ImagesDeleted:  stats.ImagesDeleted,
		SpaceFreed:     stats.SpaceFreed,
		Message:        stats.Message,
	})
}
