// internal/handlers/video.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

type VideoHandler struct {
	videoService *services.VideoService
}

func NewVideoHandler(videoService *services.VideoService) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
	}
}

// POST /api/video/upload-video
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file uploaded", nil)
		return
	}
	if max := h.videoService.MaxUploadSize(); max > 0 && fileHeader.Size > max {
		utils.BadRequestResponse(c, "File exceeds maximum upload size", nil)
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalErrorResponse(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	video, receipt, err := h.videoService.Upload(c.Request.Context(), file, fileHeader.Filename, title, description)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"video": video,
		"transaction": gin.H{
			"hash":   receipt.Hash,
			"sender": receipt.Sender,
		},
	})
}

// GET /api/video/list
func (h *VideoHandler) ListVideos(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	videos, total, err := h.videoService.List(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(gin.H{
		"count":  len(videos),
		"videos": videos,
	}, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /api/video/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid video ID", nil)
		return
	}

	video, err := h.videoService.Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrVideoMissing) {
			utils.NotFoundResponse(c, "video")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"video": video})
}
