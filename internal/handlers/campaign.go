// internal/handlers/campaign.go
package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/models"
	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

type CampaignHandler struct {
	accounting *services.AccountingService
	content    services.ContentStore
	ledger     services.Ledger
}

func NewCampaignHandler(accounting *services.AccountingService, content services.ContentStore, ledger services.Ledger) *CampaignHandler {
	return &CampaignHandler{
		accounting: accounting,
		content:    content,
		ledger:     ledger,
	}
}

type trackViewRequest struct {
	CampaignID    *uint  `json:"campaign_id"`
	VideoID       *uint  `json:"video_id"`
	WatchDuration *int64 `json:"watch_duration"`
	Viewer        string `json:"viewer"`
}

// POST /api/campaign/create
//
// Multipart: ad asset file plus video_id, ad_title, budget and
// reward_per_second fields. The ad asset is stored first, the create_campaign
// entry function second, the mirror row last; a failure at any step aborts
// the rest of the pipeline.
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	videoID, err := strconv.ParseUint(c.PostForm("video_id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "video_id, budget and reward_per_second required", nil)
		return
	}
	budget, err := strconv.ParseInt(c.PostForm("budget"), 10, 64)
	if err != nil || budget < 0 {
		utils.BadRequestResponse(c, "video_id, budget and reward_per_second required", nil)
		return
	}
	rewardPerSecond, err := strconv.ParseInt(c.PostForm("reward_per_second"), 10, 64)
	if err != nil || rewardPerSecond < 0 {
		utils.BadRequestResponse(c, "video_id, budget and reward_per_second required", nil)
		return
	}
	adTitle := c.PostForm("ad_title")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No ad asset uploaded", nil)
		return
	}
	if max := h.content.MaxFileSize(); max > 0 && fileHeader.Size > max {
		utils.BadRequestResponse(c, "File exceeds maximum upload size", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalErrorResponse(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	stored, err := h.content.Store(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	receipt, err := h.ledger.SubmitEntryFunction(c.Request.Context(),
		h.ledger.EntryPoint(services.EntryCreateCampaign),
		[]interface{}{videoID, budget, rewardPerSecond})
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	campaign, err := h.accounting.RecordCampaign(&services.RecordCampaignRequest{
		VideoID:         uint(videoID),
		AdCID:           stored.CID,
		AdTitle:         adTitle,
		Budget:          budget,
		RewardPerSecond: rewardPerSecond,
		Advertiser:      receipt.Sender,
		TxHash:          receipt.Hash,
	})
	if err != nil {
		if errors.Is(err, services.ErrVideoNotFound) {
			utils.BadRequestResponse(c, "video does not exist", nil)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	h.enrich(campaign)
	utils.SuccessResponse(c, gin.H{
		"campaign": campaign,
		"tx": gin.H{
			"hash":   receipt.Hash,
			"sender": receipt.Sender,
		},
	})
}

// GET /api/campaign/:videoId
//
// Absent is a successful zero result: the viewer player falls back to direct
// playback when hasCampaign is false. This endpoint never 404s.
func (h *CampaignHandler) GetCampaignForVideo(c *gin.Context) {
	videoID, err := strconv.ParseUint(c.Param("videoId"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid video ID", nil)
		return
	}

	campaign, err := h.accounting.GetCampaignForVideo(uint(videoID))
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	if campaign == nil {
		utils.SuccessResponse(c, gin.H{
			"hasCampaign": false,
			"campaign":    nil,
		})
		return
	}

	h.enrich(campaign)
	utils.SuccessResponse(c, gin.H{
		"hasCampaign": true,
		"campaign":    campaign,
	})
}

// POST /api/campaign/track-view
func (h *CampaignHandler) TrackView(c *gin.Context) {
	var req trackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "campaign_id, video_id and watch_duration required", err.Error())
		return
	}

	if req.CampaignID == nil || req.VideoID == nil || req.WatchDuration == nil {
		utils.BadRequestResponse(c, "campaign_id, video_id and watch_duration required", nil)
		return
	}
	if *req.WatchDuration < 0 {
		utils.BadRequestResponse(c, "watch_duration must be non-negative", nil)
		return
	}

	// Logged-in viewers are attributed by username unless the body names one.
	viewer := req.Viewer
	if viewer == "" {
		viewer, _ = utils.GetUsernameFromContext(c)
	}

	reward, err := h.accounting.TrackView(*req.CampaignID, *req.VideoID, *req.WatchDuration, viewer)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCampaignNotFound):
			// A missing campaign is a success:false business result, not an
			// HTTP error; player clients branch on the flag.
			utils.BusinessFailureResponse(c, "campaign not found")
		case errors.Is(err, services.ErrVideoMismatch):
			utils.BadRequestResponse(c, "campaign does not belong to the given video", nil)
		case errors.Is(err, services.ErrBudgetExhausted):
			utils.BadRequestResponse(c, "campaign budget exhausted", nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"reward_earned": reward,
		"message":       fmt.Sprintf("view tracked, %d units earned", reward),
	})
}

// GET /api/campaign/list
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	campaigns, total, err := h.accounting.ListCampaigns(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	for i := range campaigns {
		h.enrich(&campaigns[i])
	}

	result := utils.CreatePaginationResult(gin.H{
		"count":     len(campaigns),
		"campaigns": campaigns,
	}, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /api/campaign/:videoId/views
func (h *CampaignHandler) ListViews(c *gin.Context) {
	videoID, err := strconv.ParseUint(c.Param("videoId"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid video ID", nil)
		return
	}

	campaign, err := h.accounting.GetCampaignForVideo(uint(videoID))
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if campaign == nil {
		utils.SuccessResponse(c, gin.H{"views": []models.AdView{}})
		return
	}

	views, err := h.accounting.ListViewsByCampaign(campaign.ID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"views": views})
}

// POST /api/campaign/:id/recount
//
// Recovery endpoint: rebuilds a campaign's cached counters from the ad_views
// fact log.
func (h *CampaignHandler) RecountCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid campaign ID", nil)
		return
	}

	campaign, err := h.accounting.RecountCampaign(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			utils.NotFoundResponse(c, "campaign")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	h.enrich(campaign)
	utils.SuccessResponse(c, gin.H{"campaign": campaign})
}

func (h *CampaignHandler) enrich(campaign *models.Campaign) {
	if campaign.AdCID != "" {
		campaign.AdURL = h.content.GatewayURL(campaign.AdCID)
	}
}
