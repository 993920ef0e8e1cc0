package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajitpratap0/moneymind/internal/user"
	"github.com/ajitpratap0/moneymind/internal/validation"
)

const (
	defaultChatUser = "default_user"

	emptyMessageDetail = "Message cannot be empty"
	whatsappPrefix     = "whatsapp:"

	emptyBodyReply  = "Please send a text message or an image to get started."
	mediaOnlyReply  = "Sorry, I can only read text messages right now. Please type your question."
	goodbyeReply    = "Thank you for using MoneyMind. Goodbye!"
	appRedirectText = "This feature is best accessed in our app. Please visit: %s to continue."
	processingError = "Error processing your request: %v"
)

// appOnlyCommands are redirected to the app instead of being routed
var appOnlyCommands = []string{"/portfolio", "/profile", "/generate_portfolio"}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /api/chat
type ChatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

// UserResponse is the stored record plus where the user is in the questionnaire
type UserResponse struct {
	*user.Record
	ProfileState string `json:"profile_state"`
}

// handleRoot returns service information
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "MoneyMind",
		"version": s.version,
		"status":  "running",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth runs each registered dependency check
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handleChat routes one web chat message
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": emptyMessageDetail})
		return
	}
	if req.UserID == "" {
		req.UserID = defaultChatUser
	}
	v := validation.NewChatRequestValidator()
	v.ValidateUserID(req.UserID)
	v.ValidateMessage(req.Message)
	if err := v.Err(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	ctx, cancel := s.turnContext(c.Request.Context())
	defer cancel()

	reply, err := s.route(ctx, req.UserID, req.Message)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("Chat turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: reply, Status: "success"})
}

// handleWhatsAppWebhook answers Twilio's inbound message callback. Twilio
// only needs a 200; the reply travels back through the Sender.
func (s *Server) handleWhatsAppWebhook(c *gin.Context) {
	defer c.String(http.StatusOK, "OK")

	from := strings.TrimPrefix(c.PostForm("From"), whatsappPrefix)
	if from == "" {
		s.log.Warn().Msg("WhatsApp webhook without sender")
		return
	}
	body := validation.SanitizeInput(c.PostForm("Body"))
	mediaURL := c.PostForm("MediaUrl0")

	ctx, cancel := s.turnContext(c.Request.Context())
	reply := s.whatsAppReply(ctx, from, body, mediaURL)
	cancel()
	s.send(c.Request.Context(), from, reply)
}

func (s *Server) whatsAppReply(ctx context.Context, from, body, mediaURL string) string {
	switch {
	case body == "" && mediaURL != "":
		return mediaOnlyReply
	case body == "":
		return emptyBodyReply
	case strings.EqualFold(body, "exit"):
		return goodbyeReply
	case isAppOnlyCommand(body):
		return fmt.Sprintf(appRedirectText, s.appLink)
	}

	reply, err := s.route(ctx, from, body)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", from).Msg("WhatsApp turn failed")
		return fmt.Sprintf(processingError, err)
	}
	return reply
}

func isAppOnlyCommand(body string) bool {
	cmd := strings.ToLower(strings.Fields(body)[0])
	for _, c := range appOnlyCommands {
		if cmd == c {
			return true
		}
	}
	return false
}

func (s *Server) send(ctx context.Context, to, text string) {
	if s.sender == nil {
		s.log.Warn().Str("to", to).Msg("No WhatsApp sender configured, dropping reply")
		return
	}
	if !s.sender.Send(ctx, to, text) {
		s.log.Error().Str("to", to).Msg("Failed to deliver WhatsApp reply")
	}
}

// handleGetUser returns the stored record and where the user is in the questionnaire
func (s *Server) handleGetUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user id is required"})
		return
	}
	rec := s.store.Load(c.Request.Context(), id)
	c.JSON(http.StatusOK, UserResponse{
		Record:       rec,
		ProfileState: s.questionnaire.StateOf(rec).String(),
	})
}

// turnContext bounds one routed turn so the reply is written before the
// server's write timeout
func (s *Server) turnContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.turnTimeout)
}

// route calls the router and turns a panic escaping it into an error
func (s *Server) route(ctx context.Context, userID, message string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.router.Route(ctx, userID, message), nil
}
