// internal/handlers/attester.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

// AttesterHandler submits attested watch-time to the ledger. Only users
// holding the attester capability reach it (enforced in the router).
type AttesterHandler struct {
	ledger services.Ledger
}

func NewAttesterHandler(ledger services.Ledger) *AttesterHandler {
	return &AttesterHandler{
		ledger: ledger,
	}
}

type recordWatchTimeRequest struct {
	VideoID *uint  `json:"video_id"`
	Seconds *int64 `json:"seconds"`
}

// POST /api/attester/record
func (h *AttesterHandler) RecordWatchTime(c *gin.Context) {
	var req recordWatchTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "video_id and seconds required", err.Error())
		return
	}
	if req.VideoID == nil || req.Seconds == nil {
		utils.BadRequestResponse(c, "video_id and seconds required", nil)
		return
	}
	if *req.Seconds < 0 {
		utils.BadRequestResponse(c, "seconds must be non-negative", nil)
		return
	}

	receipt, err := h.ledger.SubmitEntryFunction(c.Request.Context(),
		h.ledger.EntryPoint(services.EntryRecordWatchTime),
		[]interface{}{*req.VideoID, *req.Seconds})
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"tx": receipt})
}
