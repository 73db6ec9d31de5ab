package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"voice-campaign/internal/campaign"
	"voice-campaign/internal/database"
	"voice-campaign/internal/logger"
	pm "voice-campaign/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Campaign is the scheduler surface driven by the panel.
// *campaign.Scheduler satisfies it.
type Campaign interface {
	Start(ctx context.Context, contacts []pm.Contact) error
	Stop() error
	HangUp() error
	Status() pm.CampaignStatus
}

type CampaignHandler struct {
	Campaign Campaign
	Leads    *database.LeadStore
}

func NewCampaignHandler(c Campaign, leads *database.LeadStore) *CampaignHandler {
	return &CampaignHandler{Campaign: c, Leads: leads}
}

// StartRequest optionally carries the contacts to call. Without it the
// pending leads are used.
type StartRequest struct {
	Contacts []pm.Contact `json:"contacts"`
}

func (h *CampaignHandler) StartCampaign(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	list := req.Contacts
	if len(list) == 0 {
		pending, err := h.Leads.Pending(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		list = pending
	}
	if len(list) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No contacts to call"})
		return
	}

	h.start(c, list)
}

// SingleCallRequest dials one number outside the lead list.
type SingleCallRequest struct {
	Phone    string `json:"phone" binding:"required"`
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

func (h *CampaignHandler) SingleCall(c *gin.Context) {
	var req SingleCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact := pm.Contact{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  req.Address,
	}
	h.start(c, []pm.Contact{contact})
}

func (h *CampaignHandler) start(c *gin.Context, list []pm.Contact) {
	// the campaign outlives the request
	err := h.Campaign.Start(context.Background(), list)
	if errors.Is(err, campaign.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "A campaign is already running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Info("Campaign started from panel", zap.Int("contacts", len(list)))
	c.JSON(http.StatusAccepted, gin.H{"status": "Campaign started", "total": len(list)})
}

func (h *CampaignHandler) StopCampaign(c *gin.Context) {
	if err := h.Campaign.Stop(); errors.Is(err, campaign.ErrNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "No campaign is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Campaign stopping"})
}

func (h *CampaignHandler) HangUp(c *gin.Context) {
	if err := h.Campaign.HangUp(); errors.Is(err, campaign.ErrNoCall) {
		c.JSON(http.StatusConflict, gin.H{"error": "No call in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Hanging up"})
}

func (h *CampaignHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Campaign.Status())
}
