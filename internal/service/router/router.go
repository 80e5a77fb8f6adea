// Package router assigns a department to tickets that have none yet: a
// single configured department is assigned silently, otherwise the
// customer picks from a menu rendered in the tenant's configured style.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/body"
	"zapdesk/internal/lib/debounce"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/outbound"
)

// backToMenuSuffix is appended to the out-of-hours message so the
// customer knows how to get the menu again.
const backToMenuSuffix = "\n\nDigite *#* para voltar ao menu principal."

// Events is the fan-out surface the router emits on.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
}

type Router struct {
	log      *slog.Logger
	store    *database.Store
	sender   *outbound.Sender
	events   Events
	debounce *debounce.Group
	now      func() time.Time
}

func New(store *database.Store, sender *outbound.Sender, events Events, menuDelay time.Duration, log *slog.Logger) *Router {
	return &Router{
		log:      log.With(sl.Module("router")),
		store:    store,
		sender:   sender,
		events:   events,
		debounce: debounce.NewGroup(menuDelay),
		now:      time.Now,
	}
}

// SetClock overrides the router's time source. Test hook.
func (r *Router) SetClock(now func() time.Time) { r.now = now }

// Route handles one customer message on a ticket with no department.
// reply is the normalized message body.
func (r *Router) Route(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, reply string) error {
	wpp, err := r.store.WhatsappByID(ctx, ticket.WhatsappID)
	if err != nil {
		return fmt.Errorf("loading connection: %w", err)
	}
	queues := wpp.Queues
	if len(queues) == 0 {
		return nil
	}

	if len(queues) == 1 {
		return r.assign(ctx, session, ticket, wpp, &queues[0])
	}

	if idx := parseSelection(reply, len(queues)); idx >= 0 {
		return r.assign(ctx, session, ticket, wpp, &queues[idx])
	}

	r.presentMenu(ctx, session, ticket, wpp, queues)
	return nil
}

// assign sets the department, unless its schedule says the business is
// closed right now, in which case the selection is reverted and the
// customer told to retry later.
func (r *Router) assign(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, wpp *entity.Whatsapp, queue *entity.Queue) error {
	full, err := r.store.QueueByID(ctx, queue.ID, ticket.CompanyID)
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	gated, err := r.scheduleGated(ctx, ticket.CompanyID)
	if err != nil {
		return err
	}
	// The queue's own message wins; the connection-level one is the
	// tenant default.
	outOfHours := full.OutOfHoursMessage
	if outOfHours == "" {
		outOfHours = wpp.OutOfHoursMessage
	}
	if gated && !InHours(full.Schedules, r.now()) && outOfHours != "" {
		text := body.Format(outOfHours, ticket.Contact) + backToMenuSuffix
		r.debounce.Do(deferralKey(ticket), func() {
			if _, err := r.sender.Text(context.Background(), session, ticket, text); err != nil {
				r.log.Warn("out-of-hours send failed",
					slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
			}
		})
		// The selection is deferred, not taken.
		ticket.QueueID = nil
		if err := r.store.SaveTicket(ctx, ticket); err != nil {
			return fmt.Errorf("reverting queue: %w", err)
		}
		r.events.TicketUpdate(ticket)
		return nil
	}

	queueID := full.ID
	ticket.QueueID = &queueID
	ticket.Chatbot = len(full.Options) > 0
	if err := r.store.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("assigning queue: %w", err)
	}
	r.events.TicketUpdate(ticket)

	if full.GreetingMessage != "" && !ticket.Chatbot {
		text := body.Format(full.GreetingMessage, ticket.Contact)
		r.debounce.Do(greetingKey(ticket), func() {
			if _, err := r.sender.Text(context.Background(), session, ticket, text); err != nil {
				r.log.Warn("greeting send failed",
					slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
			}
		})
	}
	return nil
}

// presentMenu renders the department picker in the tenant's configured
// style. Bursts of triggers for the same ticket collapse into one send.
func (r *Router) presentMenu(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, wpp *entity.Whatsapp, queues []entity.Queue) {
	style, err := r.store.SettingValue(ctx, entity.SettingChatBotType, ticket.CompanyID)
	if err != nil {
		r.log.Warn("failed to read menu style", sl.Err(err))
	}
	if style == entity.ChatBotTypeButton && len(queues) > 4 {
		style = entity.ChatBotTypeText
	}

	greeting := body.Format(wpp.GreetingMessage, ticket.Contact)
	if greeting == "" {
		greeting = "Escolha um setor:"
	}

	r.debounce.Do(menuKey(ticket), func() {
		ctx := context.Background()
		var err error
		switch style {
		case entity.ChatBotTypeList:
			rows := make([]whatsapp.MenuRow, 0, len(queues))
			for i, q := range queues {
				rows = append(rows, whatsapp.MenuRow{
					ID:    strconv.Itoa(i + 1),
					Title: q.Name,
				})
			}
			_, err = r.sender.List(ctx, session, ticket, greeting, "Menu", rows)

		case entity.ChatBotTypeButton:
			buttons := make([]whatsapp.MenuButton, 0, len(queues))
			for i, q := range queues {
				buttons = append(buttons, whatsapp.MenuButton{
					ID:   strconv.Itoa(i + 1),
					Text: q.Name,
				})
			}
			_, err = r.sender.Buttons(ctx, session, ticket, greeting, buttons)

		default:
			var sb strings.Builder
			sb.WriteString(greeting)
			sb.WriteString("\n")
			for i, q := range queues {
				fmt.Fprintf(&sb, "\n*[ %d ]* - %s", i+1, q.Name)
			}
			_, err = r.sender.Text(ctx, session, ticket, sb.String())
		}
		if err != nil {
			r.log.Warn("menu send failed",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
	})
}

// scheduleGated reports whether queue-level business hours apply for
// this tenant.
func (r *Router) scheduleGated(ctx context.Context, companyID uint) (bool, error) {
	value, err := r.store.SettingValue(ctx, entity.SettingScheduleType, companyID)
	if err != nil {
		return false, fmt.Errorf("reading schedule type: %w", err)
	}
	return value == "queue", nil
}

// parseSelection maps a customer reply to a zero-based queue index, or
// -1 when the reply selects nothing.
func parseSelection(reply string, count int) int {
	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return -1
	}
	if n < 1 || n > count {
		return -1
	}
	return n - 1
}

func menuKey(t *entity.Ticket) string     { return fmt.Sprintf("menu-%d", t.ID) }
func greetingKey(t *entity.Ticket) string { return fmt.Sprintf("greet-%d", t.ID) }
func deferralKey(t *entity.Ticket) string { return fmt.Sprintf("hours-%d", t.ID) }
