package flows

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sashabaranov/go-openai"

	"zapdesk/entity"
	"zapdesk/internal/lib/sl"
)

// historyLimit bounds how many past turns are replayed to the model per
// ticket.
const historyLimit = 20

// Assist is an AI-backed flow: customer messages on its department are
// answered by a chat model, with per-ticket conversation history kept
// in memory.
type Assist struct {
	log    *slog.Logger
	client *openai.Client
	name   string
	model  string
	prompt string

	mu      sync.Mutex
	history map[uint][]openai.ChatCompletionMessage
}

// NewAssist creates the provider. name is the department that activates
// it; prompt is the system instruction.
func NewAssist(apiKey, name, model, prompt string, log *slog.Logger) *Assist {
	return &Assist{
		log:     log.With(sl.Module("flows.assist")),
		client:  openai.NewClient(apiKey),
		name:    name,
		model:   model,
		prompt:  prompt,
		history: make(map[uint][]openai.ChatCompletionMessage),
	}
}

func (a *Assist) Name() string { return a.name }

// Handle sends the customer message with the ticket's recent history to
// the model and returns its reply.
func (a *Assist) Handle(ctx context.Context, ticket *entity.Ticket, message string) (string, error) {
	messages := a.appendTurn(ticket.ID, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	reply := resp.Choices[0].Message.Content
	a.appendTurn(ticket.ID, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})

	a.log.Debug("assist reply",
		slog.Uint64("ticket_id", uint64(ticket.ID)),
		slog.Int("history", len(messages)),
	)
	return reply, nil
}

// Forget drops a ticket's history. Called when its conversation cycle
// ends.
func (a *Assist) Forget(ticketID uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, ticketID)
}

// appendTurn records a turn and returns the prompt plus the trimmed
// history to send.
func (a *Assist) appendTurn(ticketID uint, turn openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := append(a.history[ticketID], turn)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	a.history[ticketID] = h

	messages := make([]openai.ChatCompletionMessage, 0, len(h)+1)
	if a.prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: a.prompt,
		})
	}
	return append(messages, h...)
}
