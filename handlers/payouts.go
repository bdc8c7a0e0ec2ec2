package handlers

import (
	"net/http"

	transferRepo "meetwise/database/repository/transfer"
	"meetwise/models"
	"meetwise/services/payout"
	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// Wired in main.
var (
	PayoutService payout.Scheduler
	TransferRepo  transferRepo.TransferRepository
)

// GetTransfer returns one payout transfer, the audit view.
func GetTransfer(c *gin.Context) {
	transfer, err := TransferRepo.GetByID(c.Request.Context(), models.TransferID(c.Param("id")))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

// ApproveTransfer releases a transfer from manual review. Approval bypasses
// the aging delay on the next sweep.
func ApproveTransfer(c *gin.Context) {
	if err := PayoutService.Approve(c.Request.Context(), models.TransferID(c.Param("id"))); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
