package api

import (
	"net/http"
	"time"

	"voice-campaign/internal/config"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Config  *config.Config
	Clients func() int
	started time.Time
}

func NewDashboardHandler(cfg *config.Config, clients func() int) *DashboardHandler {
	return &DashboardHandler{Config: cfg, Clients: clients, started: time.Now()}
}

func (h *DashboardHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"telephony": h.Config.TelephonyMode,
		"stt":       h.Config.STTProvider,
		"tts":       h.Config.TTSProvider,
		"llm_model": h.Config.LLMModel,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	if h.Clients != nil {
		resp["ws_clients"] = h.Clients()
	}
	c.JSON(http.StatusOK, resp)
}
