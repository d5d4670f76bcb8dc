package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vamshi726/food-scan-ai/config"
	"github.com/vamshi726/food-scan-ai/models"
)

const coachSystemPrompt = `You are 'NutriCoach', a kind, non-judgmental, and highly analytical AI nutrition partner. Your goal is to guide the user towards sustainable nutritional habits.

## Core Behavior:
1. **Tone:** Always maintain a supportive, motivational interviewing style. Use gentle questions instead of commands. Never shame or lecture.
2. **Memory:** The conversation history is paramount. Always reference the user's previous goals, recent struggles, and progress.
3. **Personalization:** You have access to the user's health preferences (allergies, dietary restrictions, health conditions). Always tailor advice to their specific situation.
4. **Actionable Guidance:** When appropriate, provide specific, achievable suggestions. Focus on small wins and sustainable changes rather than dramatic overhauls.
5. **Empathy First:** If a user expresses frustration or setback, acknowledge their feelings first before offering solutions.

## Response Style:
- Keep responses concise but warm (2-4 sentences typically)
- Ask one follow-up question to keep the conversation going
- Use emojis sparingly for warmth (1-2 max per message)
- Celebrate small victories enthusiastically`

const coachWelcomeMessage = "Hey there! I'm NutriCoach, your personal nutrition partner. I'm here to support you on your health journey - no judgment, just helpful guidance. What's on your mind today?"

// CoachService runs the conversational coach: one conversation per user,
// streaming replies, transcript persisted in creation order.
type CoachService struct {
	ai *AIGatewayService
}

func NewCoachService(ai *AIGatewayService) *CoachService {
	return &CoachService{ai: ai}
}

// OpenConversation returns the user's most recent conversation, creating
// one (with the welcome message) on first use.
func (s *CoachService) OpenConversation(userID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := config.DB.Where("user_id = ?", userID).
		Order("updated_at DESC").First(&conv).Error
	if err == nil {
		return &conv, nil
	}

	conv = models.Conversation{ID: uuid.NewString(), UserID: userID}
	if err := config.DB.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	welcome := models.ChatMessage{
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        coachWelcomeMessage,
	}
	if err := config.DB.Create(&welcome).Error; err != nil {
		return nil, fmt.Errorf("failed to seed conversation: %w", err)
	}
	return &conv, nil
}

// History loads the transcript ordered by creation time.
func (s *CoachService) History(conversationID string) ([]TranscriptMessage, error) {
	var rows []models.ChatMessage
	if err := config.DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]TranscriptMessage, 0, len(rows))
	for _, m := range rows {
		out = append(out, TranscriptMessage{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// StreamReply sends the transcript plus the new user turn to the model and
// streams the reply. onDelta receives the running accumulator after each
// delta; both turns are persisted once the stream closes.
func (s *CoachService) StreamReply(ctx context.Context, conv *models.Conversation, profile *HealthProfile, userMessage string, onDelta func(content string)) (string, error) {
	history, err := s.History(conv.ID)
	if err != nil {
		return "", err
	}

	messages := make([]GatewayMessage, 0, len(history)+2)
	messages = append(messages, TextMessage("system", s.systemPrompt(profile)))
	for _, m := range history {
		messages = append(messages, TextMessage(m.Role, m.Content))
	}
	messages = append(messages, TextMessage("user", userMessage))

	body, err := s.ai.Stream(ctx, messages)
	if err != nil {
		return "", err
	}
	defer body.Close()

	// The reply is underway: keep the user turn even if the stream dies.
	s.saveMessage(conv, "user", userMessage)

	assistantContent, err := ConsumeChatStream(body, onDelta)
	if err != nil {
		return assistantContent, err
	}

	s.saveMessage(conv, "assistant", assistantContent)
	return assistantContent, nil
}

func (s *CoachService) systemPrompt(profile *HealthProfile) string {
	if profile == nil {
		return coachSystemPrompt
	}
	var sb strings.Builder
	sb.WriteString(coachSystemPrompt)
	if len(profile.HealthIssues) > 0 {
		sb.WriteString("\n\nUser's Health Conditions: " + strings.Join(profile.HealthIssues, ", "))
	}
	if len(profile.Sensitivities) > 0 {
		sb.WriteString("\nUser's Food Sensitivities/Allergies: " + strings.Join(profile.Sensitivities, ", "))
	}
	if len(profile.Intolerances) > 0 {
		sb.WriteString("\nUser's Intolerances: " + strings.Join(profile.Intolerances, ", "))
	}
	if len(profile.DietaryPreferences) > 0 {
		sb.WriteString("\nUser's Dietary Preferences: " + strings.Join(profile.DietaryPreferences, ", "))
	}
	return sb.String()
}

func (s *CoachService) saveMessage(conv *models.Conversation, role, content string) {
	if content == "" {
		return
	}
	msg := models.ChatMessage{ConversationID: conv.ID, Role: role, Content: content}
	if err := config.DB.Create(&msg).Error; err != nil {
		log.Printf("failed to persist chat message: %v", err)
		return
	}
	if err := config.DB.Model(conv).Update("updated_at", time.Now()).Error; err != nil {
		log.Printf("failed to touch conversation %s: %v", conv.ID, err)
	}
}
