// internal/handlers/creator.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

// CreatorHandler covers the ledger-facing creator operations: withdrawing
// accrued rewards and reading the on-chain balance. The mirror's tracked
// balance lives on the dashboard endpoints; this is the chain's view.
type CreatorHandler struct {
	ledger services.Ledger
	viewer services.LedgerViewer
}

func NewCreatorHandler(ledger services.Ledger, viewer services.LedgerViewer) *CreatorHandler {
	return &CreatorHandler{
		ledger: ledger,
		viewer: viewer,
	}
}

// POST /api/creator/withdraw
func (h *CreatorHandler) Withdraw(c *gin.Context) {
	receipt, err := h.ledger.SubmitEntryFunction(c.Request.Context(),
		h.ledger.EntryPoint(services.EntryWithdrawRewards), nil)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"tx": receipt})
}

// GET /api/creator/balance/:addr
func (h *CreatorHandler) OnChainBalance(c *gin.Context) {
	addr := c.Param("addr")
	if addr == "" {
		utils.BadRequestResponse(c, "creator address required", nil)
		return
	}

	values, err := h.viewer.View(c.Request.Context(),
		h.ledger.EntryPoint(services.ViewCreatorBalance),
		[]interface{}{addr})
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"balance": values})
}
