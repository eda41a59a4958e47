// internal/handlers/roles.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

// RolesHandler forwards on-chain role registrations to the ledger module.
type RolesHandler struct {
	ledger services.Ledger
}

func NewRolesHandler(ledger services.Ledger) *RolesHandler {
	return &RolesHandler{
		ledger: ledger,
	}
}

// POST /api/roles/register_creator
func (h *RolesHandler) RegisterCreator(c *gin.Context) {
	h.submit(c, services.EntryRegisterCreator, nil)
}

// POST /api/roles/register_advertiser
func (h *RolesHandler) RegisterAdvertiser(c *gin.Context) {
	h.submit(c, services.EntryRegisterAdvertiser, nil)
}

type addAttesterRequest struct {
	AttesterAddress string `json:"attester_address" validate:"required,ledger_address"`
}

// POST /api/roles/add_attester
func (h *RolesHandler) AddAttester(c *gin.Context) {
	var req addAttesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "attester_address required", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	h.submit(c, services.EntryAddAttester, []interface{}{req.AttesterAddress})
}

func (h *RolesHandler) submit(c *gin.Context, entry string, args []interface{}) {
	receipt, err := h.ledger.SubmitEntryFunction(c.Request.Context(), h.ledger.EntryPoint(entry), args)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"tx": receipt})
}
