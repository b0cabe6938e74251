package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shelfwise/api/models"
	"shelfwise/api/store"
	"shelfwise/api/utils"
)

type LeadHandlers struct {
	LeadStore *store.LeadStore
}

func NewLeadHandlers(leadStore *store.LeadStore) *LeadHandlers {
	return &LeadHandlers{LeadStore: leadStore}
}

// CaptureLead records a lead from a lead magnet or newsletter form. Public.
func (h *LeadHandlers) CaptureLead(c *gin.Context) {
	var req models.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, "Invalid request body", nil)
		return
	}

	lead, err := h.LeadStore.CreateLead(c.Request.Context(), &req)
	if err != nil {
		log.Printf("Error creating lead: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to capture lead")
		return
	}

	utils.RespondCreated(c, "Lead captured successfully", gin.H{"lead": lead})
}

func (h *LeadHandlers) ListLeads(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.IsValidLeadStatus(status) {
		utils.RespondValidationError(c, "Validation failed", map[string]string{"status": "unrecognized status: " + status})
		return
	}

	leads, err := h.LeadStore.ListLeads(c.Request.Context(), status)
	if err != nil {
		log.Printf("Error listing leads: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve leads")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"leads": leads})
}
