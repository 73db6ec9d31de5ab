package webhook

import (
	"encoding/xml"
	"net/http"

	"voice-campaign/internal/config"
	"voice-campaign/internal/logger"
	"voice-campaign/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

const signatureHeader = "X-Twilio-Signature"

// Dispatcher routes call status updates to the session waiting on them.
// telephony.TwilioGateway satisfies it.
type Dispatcher interface {
	Dispatch(callSID, status string)
}

type Handler struct {
	Config     *config.Config
	Dispatcher Dispatcher
	validator  *client.RequestValidator
	log        *zap.Logger
}

func NewHandler(cfg *config.Config, d Dispatcher) *Handler {
	h := &Handler{
		Config:     cfg,
		Dispatcher: d,
		log:        logger.Named("webhook"),
	}
	if cfg.TwilioAuthToken != "" {
		v := client.NewRequestValidator(cfg.TwilioAuthToken)
		h.validator = &v
	}
	return h
}

// Register mounts the Twilio callbacks on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/twilio/status", h.HandleStatus)
	r.POST("/twilio/voice", h.HandleVoice)
}

func (h *Handler) HandleStatus(c *gin.Context) {
	if !h.verify(c, h.Config.StatusCallbackURL()) {
		c.Status(http.StatusForbidden)
		return
	}

	var cb models.StatusCallback
	if err := c.ShouldBind(&cb); err != nil || cb.CallSid == "" {
		h.log.Warn("Malformed status callback", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	h.log.Info("Call status",
		zap.String("call_sid", cb.CallSid),
		zap.String("status", cb.CallStatus),
		zap.String("to", cb.To),
		zap.String("duration", cb.CallDuration))

	if h.Dispatcher != nil {
		h.Dispatcher.Dispatch(cb.CallSid, cb.CallStatus)
	}
	c.Status(http.StatusNoContent)
}

// HandleVoice answers with the TwiML that bridges the callee to the agent's
// SIP endpoint, where the audio device sits.
func (h *Handler) HandleVoice(c *gin.Context) {
	if !h.verify(c, h.Config.VoiceURL()) {
		c.Status(http.StatusForbidden)
		return
	}

	var req models.VoiceRequest
	_ = c.ShouldBind(&req)
	h.log.Info("Call answered, bridging", zap.String("call_sid", req.CallSid), zap.String("to", req.To))

	resp := BridgeResponse(h.Config.BridgeSIPURI, h.Config.AnswerTimeout.Seconds())
	body, err := xml.Marshal(resp)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/xml", append([]byte(xml.Header), body...))
}

func (h *Handler) verify(c *gin.Context, url string) bool {
	if h.validator == nil {
		return true
	}
	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	if !h.validator.Validate(url, params, c.GetHeader(signatureHeader)) {
		h.log.Warn("Rejected request with invalid Twilio signature", zap.String("path", c.FullPath()))
		return false
	}
	return true
}
