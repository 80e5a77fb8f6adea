package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/body"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/outbound"
)

// surveyPrompt asks the customer for a 1-3 score when a ticket closes
// with ratings enabled.
const surveyPrompt = "Por favor, avalie nosso atendimento de 1 a 3:\n\n*1* - Insatisfeito\n*2* - Satisfeito\n*3* - Muito satisfeito"

// transferNotice tells the customer their conversation moved to another
// department.
const transferNotice = "Seu atendimento foi transferido para o setor *{{queue}}*."

// ErrOpenTicketExists rejects reopening a closed ticket while the
// contact already has an active one; two live threads for one contact
// would split the conversation.
var ErrOpenTicketExists = errors.New("contact already has an active ticket")

// UpdateRequest carries the mutable ticket fields of an update call.
// Nil pointers leave the field untouched.
type UpdateRequest struct {
	Status  *string
	QueueID *uint
	UserID  *uint
	Chatbot *bool
}

// Updater applies agent-driven and flow-driven ticket updates,
// including the closing rating flow.
type Updater struct {
	log     *slog.Logger
	store   *database.Store
	manager *whatsapp.Manager
	sender  *outbound.Sender
	events  Events
}

func NewUpdater(store *database.Store, manager *whatsapp.Manager, sender *outbound.Sender, events Events, log *slog.Logger) *Updater {
	return &Updater{
		log:     log.With(sl.Module("tickets")),
		store:   store,
		manager: manager,
		sender:  sender,
		events:  events,
	}
}

// Update mutates a ticket. Closing with ratings enabled sends the
// survey and defers the close until the customer replies or the reaper
// gives up on them.
func (u *Updater) Update(ctx context.Context, ticketID, companyID uint, req UpdateRequest) (*entity.Ticket, error) {
	ticket, err := u.store.TicketByID(ctx, ticketID, companyID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status

	if req.QueueID != nil && ticket.QueueID != nil && *req.QueueID != *ticket.QueueID {
		if err := u.notifyTransfer(ctx, ticket, *req.QueueID); err != nil {
			u.log.Warn("transfer notice failed",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
	}
	if req.QueueID != nil {
		ticket.QueueID = req.QueueID
	}
	if req.UserID != nil {
		ticket.UserID = req.UserID
	}
	if req.Chatbot != nil {
		ticket.Chatbot = *req.Chatbot
	}

	if req.Status != nil && *req.Status != oldStatus {
		if oldStatus == entity.StatusClosed {
			other, err := u.store.ActiveTicket(ctx, ticket.ContactID, ticket.WhatsappID, companyID)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("checking active tickets: %w", err)
			}
			if other != nil && other.ID != ticket.ID {
				return nil, ErrOpenTicketExists
			}
		}

		switch *req.Status {
		case entity.StatusClosed:
			return u.close(ctx, ticket, oldStatus)
		case entity.StatusOpen:
			ticket.Status = entity.StatusOpen
			ticket.UnreadMessages = 0
			u.stampStarted(ctx, ticket)
		case entity.StatusPending:
			ticket.Status = entity.StatusPending
			ticket.UserID = nil
			u.stampQueued(ctx, ticket)
		default:
			ticket.Status = *req.Status
		}
	}

	if err := u.store.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("saving ticket: %w", err)
	}

	if ticket.Status != oldStatus {
		u.events.TicketDelete(companyID, ticket.ID, oldStatus)
	}
	u.events.TicketUpdate(ticket)
	return ticket, nil
}

// close finalizes a ticket, or sends the satisfaction survey and holds
// the ticket in nps when ratings are on and none was requested this
// cycle.
func (u *Updater) close(ctx context.Context, ticket *entity.Ticket, oldStatus string) (*entity.Ticket, error) {
	wpp, err := u.store.WhatsappByID(ctx, ticket.WhatsappID)
	if err != nil {
		return nil, fmt.Errorf("loading connection: %w", err)
	}

	ratingOn, err := u.ratingsEnabled(ctx, ticket.CompanyID)
	if err != nil {
		return nil, err
	}

	tracking, err := u.store.FindOrCreateTracking(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("loading tracking: %w", err)
	}

	if ratingOn && tracking.RatingAt == nil && ticket.UserID != nil && !ticket.IsGroup {
		if err := u.sendOnTicket(ctx, ticket, surveyPrompt); err != nil {
			u.log.Warn("survey send failed",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
		now := time.Now()
		tracking.RatingAt = &now
		if err := u.store.SaveTracking(ctx, tracking); err != nil {
			return nil, fmt.Errorf("stamping rating: %w", err)
		}

		ticket.Status = entity.StatusNPS
		if err := u.store.SaveTicket(ctx, ticket); err != nil {
			return nil, fmt.Errorf("saving ticket: %w", err)
		}
		u.events.TicketDelete(ticket.CompanyID, ticket.ID, oldStatus)
		u.events.TicketUpdate(ticket)
		return ticket, nil
	}

	if wpp.ComplationMessage != "" && !ticket.IsGroup {
		if err := u.sendOnTicket(ctx, ticket, body.Format(wpp.ComplationMessage, ticket.Contact)); err != nil {
			u.log.Warn("completion send failed",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
	}
	return u.finalize(ctx, ticket, tracking, oldStatus)
}

// HandleRating consumes a customer's numeric reply to the survey. Other
// replies are ignored; the survey stays pending.
func (u *Updater) HandleRating(ctx context.Context, ticket *entity.Ticket, reply string) (bool, error) {
	tracking, err := u.store.OpenTracking(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !tracking.AwaitingRating() {
		return false, nil
	}

	rate, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return true, nil
	}

	rating := &entity.UserRating{
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		UserID:    *tracking.UserID,
		Rate:      entity.ClampRate(rate),
	}
	if err := u.store.CreateRating(ctx, rating); err != nil {
		return true, fmt.Errorf("saving rating: %w", err)
	}
	tracking.Rated = true

	wpp, err := u.store.WhatsappByID(ctx, ticket.WhatsappID)
	if err == nil && wpp.ComplationMessage != "" {
		if err := u.sendOnTicket(ctx, ticket, body.Format(wpp.ComplationMessage, ticket.Contact)); err != nil {
			u.log.Warn("completion send failed",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
	}

	oldStatus := ticket.Status
	ticket.QueueID = nil
	ticket.UserID = nil
	ticket.Chatbot = false
	ticket.QueueOptionID = nil
	if _, err := u.finalize(ctx, ticket, tracking, oldStatus); err != nil {
		return true, err
	}
	return true, nil
}

// ForceClose closes a ticket without the survey. Used by the reaper.
func (u *Updater) ForceClose(ctx context.Context, ticket *entity.Ticket) error {
	tracking, err := u.store.FindOrCreateTracking(ctx, ticket)
	if err != nil {
		return fmt.Errorf("loading tracking: %w", err)
	}
	oldStatus := ticket.Status
	ticket.UserID = nil
	ticket.UnreadMessages = 0
	_, err = u.finalize(ctx, ticket, tracking, oldStatus)
	return err
}

func (u *Updater) finalize(ctx context.Context, ticket *entity.Ticket, tracking *entity.TicketTracking, oldStatus string) (*entity.Ticket, error) {
	now := time.Now()
	tracking.FinishedAt = &now
	if err := u.store.SaveTracking(ctx, tracking); err != nil {
		return nil, fmt.Errorf("finishing tracking: %w", err)
	}

	ticket.Status = entity.StatusClosed
	if err := u.store.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("saving ticket: %w", err)
	}

	if oldStatus != entity.StatusClosed {
		u.events.TicketDelete(ticket.CompanyID, ticket.ID, oldStatus)
	}
	u.events.TicketUpdate(ticket)
	return ticket, nil
}

// MarkRead flips unread state on a ticket and pushes read receipts to
// the provider.
func (u *Updater) MarkRead(ctx context.Context, ticket *entity.Ticket) error {
	wids, err := u.store.UnreadMessageWIDs(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if len(wids) > 0 {
		if session, err := u.manager.Get(ticket.WhatsappID); err == nil {
			if err := session.MarkRead(ctx, wids); err != nil {
				u.log.Warn("provider mark read failed",
					slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
			}
		}
	}
	if err := u.store.MarkMessagesRead(ctx, ticket.ID); err != nil {
		return err
	}

	ticket.UnreadMessages = 0
	if err := u.store.SaveTicket(ctx, ticket); err != nil {
		return err
	}
	u.events.TicketUpdate(ticket)
	return nil
}

func (u *Updater) stampStarted(ctx context.Context, ticket *entity.Ticket) {
	tracking, err := u.store.FindOrCreateTracking(ctx, ticket)
	if err != nil {
		u.log.Warn("failed to load tracking",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		return
	}
	if tracking.StartedAt != nil {
		return
	}
	now := time.Now()
	tracking.StartedAt = &now
	tracking.UserID = ticket.UserID
	if err := u.store.SaveTracking(ctx, tracking); err != nil {
		u.log.Warn("failed to stamp start",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
	}
}

// stampQueued resets the cycle to the waiting room: the agent handed
// the ticket back, so its start marks no longer apply.
func (u *Updater) stampQueued(ctx context.Context, ticket *entity.Ticket) {
	tracking, err := u.store.FindOrCreateTracking(ctx, ticket)
	if err != nil {
		u.log.Warn("failed to load tracking",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		return
	}
	now := time.Now()
	tracking.QueuedAt = &now
	tracking.StartedAt = nil
	tracking.UserID = nil
	if err := u.store.SaveTracking(ctx, tracking); err != nil {
		u.log.Warn("failed to stamp queued",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
	}
}

// ratingsEnabled reads the tenant-level survey switch.
func (u *Updater) ratingsEnabled(ctx context.Context, companyID uint) (bool, error) {
	value, err := u.store.SettingValue(ctx, entity.SettingUserRating, companyID)
	if err != nil {
		return false, fmt.Errorf("reading rating setting: %w", err)
	}
	return value == entity.SettingEnabled, nil
}

func (u *Updater) notifyTransfer(ctx context.Context, ticket *entity.Ticket, newQueueID uint) error {
	queue, err := u.store.QueueByID(ctx, newQueueID, ticket.CompanyID)
	if err != nil {
		return err
	}

	text := strings.ReplaceAll(transferNotice, "{{queue}}", queue.Name)
	if err := u.sendOnTicket(ctx, ticket, text); err != nil {
		return err
	}

	tracking, err := u.store.FindOrCreateTracking(ctx, ticket)
	if err != nil {
		return err
	}
	now := time.Now()
	tracking.QueuedAt = &now
	return u.store.SaveTracking(ctx, tracking)
}

func (u *Updater) sendOnTicket(ctx context.Context, ticket *entity.Ticket, text string) error {
	session, err := u.manager.Get(ticket.WhatsappID)
	if err != nil {
		return err
	}
	_, err = u.sender.Text(ctx, session, ticket, text)
	return err
}
