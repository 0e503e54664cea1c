package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/strata-community/internal/imagestore"
	"go.uber.org/zap"
)

type UploadHandler struct {
	store    imagestore.Store
	maxBytes int64
	errorWriter
}

func NewUploadHandler(store imagestore.Store, maxBytes int64, log *zap.Logger, production bool) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes, errorWriter: newErrorWriter(log, production)}
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Message  string `json:"message"`
}

type DeleteImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// UploadImage accepts a multipart "image" field, normalises it to a bounded
// JPEG and stores it under a random name.
func (h *UploadHandler) UploadImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "no image file provided"))
	}
	if fh.Size > h.maxBytes {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "file too large"))
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, err, "image")
	}
	defer f.Close()

	data, err := imagestore.ReadLimited(f, h.maxBytes)
	if err != nil {
		if errors.Is(err, imagestore.ErrTooLarge) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "file too large"))
		}
		return h.fail(c, err, "image")
	}
	out, err := imagestore.Process(data)
	if err != nil {
		if errors.Is(err, imagestore.ErrUnsupportedType) || errors.Is(err, imagestore.ErrTooManyPixels) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "could not read image"))
	}

	name := uuid.NewString() + imagestore.OutputExt
	url, err := h.store.Save(c.Request().Context(), name, out, imagestore.OutputType)
	if err != nil {
		return h.fail(c, err, "image")
	}
	h.log.Info("image uploaded", zap.String("url", url), zap.Int("bytes", len(out)))
	return c.JSON(http.StatusOK, UploadResponse{Success: true, ImageURL: url, Message: "Image uploaded successfully"})
}

func (h *UploadHandler) DeleteImage(c echo.Context) error {
	var req DeleteImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "imageUrl is required"))
	}
	err := h.store.Delete(c.Request().Context(), req.ImageURL)
	switch {
	case errors.Is(err, imagestore.ErrNotExist):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "image not found"))
	case errors.Is(err, imagestore.ErrInvalidName):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	case err != nil:
		return h.fail(c, err, "image")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Image deleted successfully"})
}
