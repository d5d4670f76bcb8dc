package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vamshi726/food-scan-ai/services"

	"github.com/gin-gonic/gin"
)

type ChatInput struct {
	Message string `json:"message" binding:"required"`
}

// CoachChat streams the assistant reply as server-sent events:
// data: {"delta": "...", "content": "..."} frames, terminated by
// data: [DONE]. The transcript is persisted when the upstream stream ends.
func CoachChat(c *gin.Context) {
	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	userID := c.GetUint("userID")
	svc := services.NewCoachService(services.NewAIGatewayService())

	conv, err := svc.OpenConversation(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	profile, _ := services.GetHealthProfile(userID)

	started := false
	prev := ""
	onDelta := func(content string) {
		if !started {
			c.Writer.Header().Set("Content-Type", "text/event-stream")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
			c.Writer.WriteHeader(http.StatusOK)
			started = true
		}
		frame, _ := json.Marshal(gin.H{"delta": content[len(prev):], "content": content})
		prev = content
		fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
		c.Writer.Flush()
	}

	_, err = svc.StreamReply(c.Request.Context(), conv, profile, input.Message, onDelta)
	if err != nil && !started {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, services.ErrQuotaExceeded):
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if !started {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.WriteHeader(http.StatusOK)
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// CoachHistory returns the transcript of the caller's conversation in
// creation order.
func CoachHistory(c *gin.Context) {
	userID := c.GetUint("userID")
	svc := services.NewCoachService(services.NewAIGatewayService())

	conv, err := svc.OpenConversation(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history, err := svc.History(conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"messages":        history,
	})
}
