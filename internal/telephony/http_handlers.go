package telephony

import (
	"context"
	"net/http"

	"carecall-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorMessage is spoken when the conversation cannot continue.
const ErrorMessage = "죄송합니다. 일시적인 오류로 통화를 종료합니다."

// Conversation is the call flow driven by the voice webhooks.
type Conversation interface {
	Start(ctx context.Context, callID string) (string, error)
	HandleUtterance(ctx context.Context, callID, utterance string) (string, error)
	HandleProviderStatus(ctx context.Context, callID, providerStatus string) error
}

// TwilioVoiceHandler converts Twilio webhooks to conversation calls and
// writes TwiML.
//
// No business logic here.
type TwilioVoiceHandler struct {
	Conversation Conversation
	Renderer     TwiMLRenderer
}

func (h TwilioVoiceHandler) Register(rg gin.IRoutes) {
	rg.POST(WelcomePath, h.HandleWelcome)
	rg.POST(RespondPath, h.HandleRespond)
	rg.POST(StatusPath, h.HandleStatus)
}

func (h TwilioVoiceHandler) parse(c *gin.Context) (TwilioVoiceForm, bool) {
	if h.Conversation == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "conversation not configured"})
		return TwilioVoiceForm{}, false
	}
	form, err := ParseTwilioVoiceForm(c.Request)
	if err != nil {
		logger.FromGin(c).Warn("twilio webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return TwilioVoiceForm{}, false
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid is required"})
		return TwilioVoiceForm{}, false
	}
	return form, true
}

func (h TwilioVoiceHandler) writeTwiML(c *gin.Context, doc string) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, doc)
}

// HandleWelcome answers the call with the greeting.
func (h TwilioVoiceHandler) HandleWelcome(c *gin.Context) {
	form, ok := h.parse(c)
	if !ok {
		return
	}
	log := logger.FromGin(c).With("call_sid", form.CallSid)

	doc, err := h.Conversation.Start(c.Request.Context(), form.CallSid)
	if err != nil {
		log.Error("conversation start failed", "err", err)
		doc = h.Renderer.RenderTermination(ErrorMessage)
	}
	h.writeTwiML(c, doc)
}

// HandleRespond feeds gathered speech into the conversation.
func (h TwilioVoiceHandler) HandleRespond(c *gin.Context) {
	form, ok := h.parse(c)
	if !ok {
		return
	}
	log := logger.FromGin(c).With("call_sid", form.CallSid)

	doc, err := h.Conversation.HandleUtterance(c.Request.Context(), form.CallSid, form.SpeechResult)
	if err != nil {
		log.Error("utterance handling failed", "err", err)
		doc = h.Renderer.RenderTermination(ErrorMessage)
	}
	h.writeTwiML(c, doc)
}

// HandleStatus acknowledges provider status callbacks.
func (h TwilioVoiceHandler) HandleStatus(c *gin.Context) {
	form, ok := h.parse(c)
	if !ok {
		return
	}
	if err := h.Conversation.HandleProviderStatus(c.Request.Context(), form.CallSid, form.CallStatus); err != nil {
		logger.FromGin(c).Error("status callback failed", "call_sid", form.CallSid, "call_status", form.CallStatus, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status handling failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
