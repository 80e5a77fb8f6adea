// Package chatbot walks a department's configured option tree: it sends
// the next prompt for the customer's position and advances that position
// on matching replies.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/body"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/outbound"
)

// backOption is the customer command that resets the conversation to
// department selection from any chatbot state.
const backOption = "#"

const menuFooter = "\n\n*[ # ]* - Menu inicial"

// Events is the fan-out surface the machine emits on.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
}

type Machine struct {
	log    *slog.Logger
	store  *database.Store
	sender *outbound.Sender
	events Events
}

func New(store *database.Store, sender *outbound.Sender, events Events, log *slog.Logger) *Machine {
	return &Machine{
		log:    log.With(sl.Module("chatbot")),
		store:  store,
		sender: sender,
		events: events,
	}
}

// SendRootMenu renders the department greeting and its root options.
// Called on the turn the department was assigned, so the message that
// triggered assignment is never misread as a menu selection.
func (m *Machine) SendRootMenu(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket) error {
	if ticket.QueueID == nil {
		return nil
	}
	queue, err := m.store.QueueByID(ctx, *ticket.QueueID, ticket.CompanyID)
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}
	options, err := m.store.QueueOptions(ctx, queue.ID, nil)
	if err != nil {
		return fmt.Errorf("loading root options: %w", err)
	}

	title := body.Format(queue.GreetingMessage, ticket.Contact)
	if title == "" {
		title = queue.Name
	}
	return m.renderMenu(ctx, session, ticket, title, options)
}

// Handle consumes one customer reply in chatbot state. It returns
// reset=true when the customer asked for the main menu; the caller then
// re-runs department selection.
func (m *Machine) Handle(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, reply string) (reset bool, err error) {
	if strings.TrimSpace(reply) == backOption {
		ticket.QueueID = nil
		ticket.QueueOptionID = nil
		ticket.Chatbot = false
		if err := m.store.SaveTicket(ctx, ticket); err != nil {
			return false, fmt.Errorf("resetting chatbot state: %w", err)
		}
		m.events.TicketUpdate(ticket)
		return true, nil
	}

	if ticket.QueueID == nil {
		return false, nil
	}

	if ticket.QueueOptionID == nil {
		return false, m.handleRoot(ctx, session, ticket, reply)
	}
	return false, m.handleNode(ctx, session, ticket, reply)
}

// handleRoot matches a reply against the root options of the assigned
// department.
func (m *Machine) handleRoot(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, reply string) error {
	options, err := m.store.QueueOptions(ctx, *ticket.QueueID, nil)
	if err != nil {
		return fmt.Errorf("loading root options: %w", err)
	}
	if len(options) == 0 {
		return nil
	}

	match := matchOption(options, reply)
	if match == nil {
		return m.SendRootMenu(ctx, session, ticket)
	}
	return m.descend(ctx, session, ticket, match)
}

// handleNode advances from a non-root position: auto-descend through
// single children, match the reply against multiple ones, re-render on
// no match.
func (m *Machine) handleNode(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, reply string) error {
	current, err := m.store.QueueOptionByID(ctx, *ticket.QueueOptionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ticket.QueueOptionID = nil
			return m.store.SaveTicket(ctx, ticket)
		}
		return fmt.Errorf("loading current option: %w", err)
	}

	children, err := m.store.QueueOptions(ctx, *ticket.QueueID, ticket.QueueOptionID)
	if err != nil {
		return fmt.Errorf("loading children: %w", err)
	}

	switch len(children) {
	case 0:
		return m.sendLeaf(ctx, session, ticket, current)
	case 1:
		return m.descend(ctx, session, ticket, &children[0])
	}

	match := matchOption(children, reply)
	if match == nil {
		title := body.Format(current.Message, ticket.Contact)
		if title == "" {
			title = current.Title
		}
		return m.renderMenu(ctx, session, ticket, title, children)
	}
	return m.descend(ctx, session, ticket, match)
}

// descend moves the ticket to an option and renders what that node
// shows: its children as a menu, or its message as a leaf response.
func (m *Machine) descend(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, node *entity.QueueOption) error {
	nodeID := node.ID
	ticket.QueueOptionID = &nodeID
	if err := m.store.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("saving position: %w", err)
	}
	m.events.TicketUpdate(ticket)

	children, err := m.store.QueueOptions(ctx, *ticket.QueueID, &nodeID)
	if err != nil {
		return fmt.Errorf("loading children: %w", err)
	}

	switch len(children) {
	case 0:
		return m.sendLeaf(ctx, session, ticket, node)
	case 1:
		return m.descend(ctx, session, ticket, &children[0])
	}

	title := body.Format(node.Message, ticket.Contact)
	if title == "" {
		title = node.Title
	}
	return m.renderMenu(ctx, session, ticket, title, children)
}

// sendLeaf renders a terminal node's message. A repeat of the previous
// business-sent body is suppressed so repeated customer pings do not
// loop the same answer.
func (m *Machine) sendLeaf(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, node *entity.QueueOption) error {
	text := body.Format(node.Message, ticket.Contact)
	if text == "" {
		return nil
	}

	last, err := m.store.LastBusinessMessage(ctx, ticket.ID)
	if err == nil && strings.TrimPrefix(last.Body, body.Marker) == text {
		return nil
	}

	_, err = m.sender.Text(ctx, session, ticket, text)
	return err
}

// renderMenu sends a node's options in the tenant's configured style.
func (m *Machine) renderMenu(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, title string, options []entity.QueueOption) error {
	if len(options) == 0 {
		return nil
	}

	style, err := m.store.SettingValue(ctx, entity.SettingChatBotType, ticket.CompanyID)
	if err != nil {
		m.log.Warn("failed to read menu style", sl.Err(err))
	}
	if style == entity.ChatBotTypeButton && len(options) > 4 {
		style = entity.ChatBotTypeText
	}

	switch style {
	case entity.ChatBotTypeList:
		rows := make([]whatsapp.MenuRow, 0, len(options)+1)
		for _, o := range options {
			rows = append(rows, whatsapp.MenuRow{ID: o.Option, Title: o.Title})
		}
		rows = append(rows, whatsapp.MenuRow{ID: backOption, Title: "Menu inicial"})
		_, err = m.sender.List(ctx, session, ticket, title, "Menu", rows)

	case entity.ChatBotTypeButton:
		buttons := make([]whatsapp.MenuButton, 0, len(options))
		for _, o := range options {
			buttons = append(buttons, whatsapp.MenuButton{ID: o.Option, Text: o.Title})
		}
		_, err = m.sender.Buttons(ctx, session, ticket, title, buttons)

	default:
		var sb strings.Builder
		sb.WriteString(title)
		sb.WriteString("\n")
		for _, o := range options {
			fmt.Fprintf(&sb, "\n*[ %s ]* - %s", o.Option, o.Title)
		}
		sb.WriteString(menuFooter)
		_, err = m.sender.Text(ctx, session, ticket, sb.String())
	}
	return err
}

func matchOption(options []entity.QueueOption, reply string) *entity.QueueOption {
	reply = strings.TrimSpace(reply)
	for i := range options {
		if options[i].Option == reply {
			return &options[i]
		}
	}
	return nil
}
