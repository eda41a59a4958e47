// internal/handlers/dashboard.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

const recentVideoLimit = 5

type DashboardHandler struct {
	accounting   *services.AccountingService
	videoService *services.VideoService
}

func NewDashboardHandler(accounting *services.AccountingService, videoService *services.VideoService) *DashboardHandler {
	return &DashboardHandler{
		accounting:   accounting,
		videoService: videoService,
	}
}

// GET /api/dashboard/creator/:address
//
// The balance is recomputed from the ad_views fact log on every call; it is
// never a stored field.
func (h *DashboardHandler) GetCreatorDashboard(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		utils.BadRequestResponse(c, "creator address required", nil)
		return
	}

	videos, err := h.videoService.ListByCreator(address)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	balance, err := h.accounting.GetCreatorBalance(address)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"creator": address,
		"stats": gin.H{
			"totalVideos":      len(videos),
			"balance":          balance.Display,
			"balanceUnits":     balance.Units,
			"balanceFormatted": balance.Formatted,
		},
		"videos": videos,
	})
}

// GET /api/dashboard/stats
func (h *DashboardHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.accounting.GetPlatformStats(recentVideoLimit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	for i := range stats.RecentVideos {
		if stats.RecentVideos[i].CID != "" {
			stats.RecentVideos[i].URL = h.videoService.GatewayURL(stats.RecentVideos[i].CID)
		}
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}
