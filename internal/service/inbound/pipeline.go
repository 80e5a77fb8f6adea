// Package inbound is the entry point for protocol events: it normalizes
// each message, resolves its contact and ticket, persists it and hands
// the customer's turn to the rating flow, a flow provider, the queue
// router or the chatbot, in that order of precedence.
package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/body"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/chatbot"
	"zapdesk/internal/service/contacts"
	"zapdesk/internal/service/flows"
	"zapdesk/internal/service/normalizer"
	"zapdesk/internal/service/outbound"
	"zapdesk/internal/service/router"
	"zapdesk/internal/service/tickets"
	"zapdesk/internal/tracker"
)

// downloadFailedSuffix marks messages whose media could not be fetched;
// the message itself is still persisted so the thread keeps its place.
const downloadFailedSuffix = " (falha ao baixar mídia)"

// Events is the fan-out surface the pipeline emits on.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
	MessageCreate(msg *entity.Message, ticket *entity.Ticket, contact *entity.Contact)
	MessageUpdate(companyID uint, msg *entity.Message, ticket *entity.Ticket)
}

type Pipeline struct {
	log      *slog.Logger
	store    *database.Store
	tracker  *tracker.Tracker
	manager  *whatsapp.Manager
	contacts *contacts.Resolver
	tickets  *tickets.Resolver
	updater  *tickets.Updater
	router   *router.Router
	chatbot  *chatbot.Machine
	flows    *flows.Registry
	sender   *outbound.Sender
	events   Events
	queue    *dispatcher
	mediaDir string
}

type Deps struct {
	Store    *database.Store
	Tracker  *tracker.Tracker
	Manager  *whatsapp.Manager
	Contacts *contacts.Resolver
	Tickets  *tickets.Resolver
	Updater  *tickets.Updater
	Router   *router.Router
	Chatbot  *chatbot.Machine
	Flows    *flows.Registry
	Sender   *outbound.Sender
	Events   Events
	MediaDir string
}

func New(deps Deps, log *slog.Logger) *Pipeline {
	return &Pipeline{
		log:      log.With(sl.Module("inbound")),
		store:    deps.Store,
		tracker:  deps.Tracker,
		manager:  deps.Manager,
		contacts: deps.Contacts,
		tickets:  deps.Tickets,
		updater:  deps.Updater,
		router:   deps.Router,
		chatbot:  deps.Chatbot,
		flows:    deps.Flows,
		sender:   deps.Sender,
		events:   deps.Events,
		queue:    newDispatcher(),
		mediaDir: deps.MediaDir,
	}
}

// HandleEvents feeds a webhook batch into the per-conversation queues.
// Events of the same conversation run in arrival order; different
// conversations run concurrently.
func (p *Pipeline) HandleEvents(whatsappID uint, msgs []whatsapp.RawMessage, acks []whatsapp.AckEvent) {
	for i := range msgs {
		raw := msgs[i]
		p.queue.Dispatch(convKey(whatsappID, raw.RemoteJid), func() {
			p.processMessage(context.Background(), whatsappID, &raw)
		})
	}
	for i := range acks {
		ack := acks[i]
		p.queue.Dispatch(convKey(whatsappID, ack.RemoteJid), func() {
			p.processAck(context.Background(), whatsappID, &ack)
		})
	}
}

// ProcessMessage runs one event synchronously. Exposed for tests; the
// webhook path goes through HandleEvents.
func (p *Pipeline) ProcessMessage(ctx context.Context, whatsappID uint, raw *whatsapp.RawMessage) {
	p.processMessage(ctx, whatsappID, raw)
}

func (p *Pipeline) processMessage(ctx context.Context, whatsappID uint, raw *whatsapp.RawMessage) {
	if normalizer.Skippable(raw) {
		return
	}

	session, err := p.manager.Get(whatsappID)
	if err != nil {
		p.log.Warn("no session for event", slog.Uint64("whatsapp_id", uint64(whatsappID)), sl.Err(err))
		return
	}
	companyID := session.CompanyID()

	n, err := normalizer.Normalize(raw)
	if err != nil {
		p.tracker.Report("message classification failed", err, map[string]any{
			"wid":         raw.WID,
			"remote_jid":  raw.RemoteJid,
			"type":        raw.Type,
			"whatsapp_id": whatsappID,
		})
		return
	}

	if n.IsGroup {
		blocked, err := p.store.SettingValue(ctx, entity.SettingCheckMsgIsGroup, companyID)
		if err != nil {
			p.log.Warn("failed to read group setting", sl.Err(err))
		}
		if blocked == entity.SettingEnabled {
			return
		}
	}

	contact, err := p.contacts.Resolve(ctx, session, n)
	if err != nil {
		p.tracker.Report("contact resolution failed", err, map[string]any{"wid": n.WID})
		return
	}

	ticketContact := contact
	if n.IsGroup {
		if group, err := p.contacts.ResolveGroup(ctx, session, n); err == nil {
			ticketContact = group
		} else {
			p.log.Warn("group resolution failed", slog.String("jid", n.RemoteJid), sl.Err(err))
		}
	}

	// The farewell closes a conversation; its echo must not open the
	// next one.
	if n.FromMe && p.isFarewellEcho(ctx, whatsappID, ticketContact, n.Body) {
		return
	}

	ticket, err := p.tickets.Resolve(ctx, ticketContact, whatsappID, companyID, n.FromMe, n.IsGroup)
	if err != nil {
		p.tracker.Report("ticket resolution failed", err, map[string]any{"wid": n.WID})
		return
	}

	msg, created, err := p.persistMessage(ctx, session, n, ticket, contact)
	if err != nil {
		p.tracker.Report("message persistence failed", err, map[string]any{"wid": n.WID})
		return
	}
	if !created {
		// Redelivered event; everything below already happened.
		return
	}

	ticket.LastMessage = msg.Body
	if err := p.store.SaveTicket(ctx, ticket); err != nil {
		p.log.Warn("failed to update ticket preview",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
	}
	p.events.MessageCreate(msg, ticket, contact)
	p.events.TicketUpdate(ticket)

	if n.FromMe {
		// Business side: automatic echoes and agent-typed messages end
		// here, they never drive the menus.
		return
	}
	if n.IsGroup {
		return
	}

	p.route(ctx, session, ticket, n)
}

// route decides what handles the customer's turn.
func (p *Pipeline) route(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, n *normalizer.Normalized) {
	handled, err := p.updater.HandleRating(ctx, ticket, n.Body)
	if err != nil {
		p.tracker.Report("rating handling failed", err, map[string]any{"ticket_id": ticket.ID})
		return
	}
	if handled {
		return
	}

	// A human owns the conversation; the machines stay out.
	if ticket.Status == entity.StatusOpen && ticket.UserID != nil && !ticket.Chatbot {
		return
	}

	if ticket.QueueID != nil {
		if reply, ok := p.runFlow(ctx, session, ticket, n.Body); ok {
			if reply != "" {
				if _, err := p.sender.Text(ctx, session, ticket, reply); err != nil {
					p.log.Warn("flow reply failed",
						slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
				}
			}
			return
		}
	}

	if ticket.QueueID == nil {
		if err := p.router.Route(ctx, session, ticket, n.Body); err != nil {
			p.tracker.Report("queue routing failed", err, map[string]any{"ticket_id": ticket.ID})
			return
		}
		// The message that picked the department must not double as the
		// first menu selection; present the root menu instead.
		if ticket.QueueID != nil && ticket.Chatbot {
			if err := p.chatbot.SendRootMenu(ctx, session, ticket); err != nil {
				p.tracker.Report("root menu failed", err, map[string]any{"ticket_id": ticket.ID})
			}
		}
		return
	}

	if ticket.Chatbot {
		reset, err := p.chatbot.Handle(ctx, session, ticket, n.Body)
		if err != nil {
			p.tracker.Report("chatbot handling failed", err, map[string]any{"ticket_id": ticket.ID})
			return
		}
		if reset {
			if err := p.router.Route(ctx, session, ticket, n.Body); err != nil {
				p.tracker.Report("queue routing failed", err, map[string]any{"ticket_id": ticket.ID})
			}
		}
	}
}

// isFarewellEcho reports whether a business-side event carries the
// connection's automatic farewell text.
func (p *Pipeline) isFarewellEcho(ctx context.Context, whatsappID uint, contact *entity.Contact, text string) bool {
	wpp, err := p.store.WhatsappByID(ctx, whatsappID)
	if err != nil || wpp.FarewellMessage == "" {
		return false
	}
	return strings.TrimPrefix(text, body.Marker) == body.Format(wpp.FarewellMessage, contact)
}

// runFlow hands the turn to the department's flow provider, if one is
// registered. A provider error is reported and the turn ends silently.
func (p *Pipeline) runFlow(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, reply string) (string, bool) {
	if ticket.QueueID == nil {
		return "", false
	}
	queue, err := p.store.QueueByID(ctx, *ticket.QueueID, ticket.CompanyID)
	if err != nil {
		return "", false
	}
	provider, ok := p.flows.For(queue.Name)
	if !ok {
		return "", false
	}

	out, err := provider.Handle(ctx, ticket, reply)
	if err != nil {
		p.tracker.Report("flow provider failed", err, map[string]any{
			"ticket_id": ticket.ID,
			"flow":      provider.Name(),
		})
		return "", true
	}
	return out, true
}

// persistMessage stores the normalized event, downloading media first.
// A failed download keeps the message with a marked placeholder body.
func (p *Pipeline) persistMessage(ctx context.Context, session whatsapp.Session, n *normalizer.Normalized, ticket *entity.Ticket, contact *entity.Contact) (*entity.Message, bool, error) {
	msg := &entity.Message{
		WID:          n.WID,
		TicketID:     ticket.ID,
		Body:         n.Body,
		FromMe:       n.FromMe,
		Ack:          n.Ack,
		MediaType:    n.Kind,
		QuotedMsgWID: n.QuotedWID,
		RemoteJid:    n.RemoteJid,
		Participant:  n.Participant,
		CompanyID:    ticket.CompanyID,
	}
	if raw, err := json.Marshal(n); err == nil {
		msg.DataJSON = string(raw)
	}
	if !n.FromMe {
		contactID := contact.ID
		msg.ContactID = &contactID
	}
	if ticket.QueueID != nil {
		msg.QueueID = ticket.QueueID
	}

	if n.Media != nil && n.Media.MediaID != "" {
		url, err := p.saveMedia(ctx, session, n)
		if err != nil {
			p.log.Warn("media download failed", slog.String("wid", n.WID), sl.Err(err))
			msg.Body = n.Body + downloadFailedSuffix
		} else {
			msg.MediaUrl = url
		}
	}

	return p.store.CreateMessage(ctx, msg)
}

// saveMedia downloads a media payload and writes it under the public
// media directory, returning the relative URL.
func (p *Pipeline) saveMedia(ctx context.Context, session whatsapp.Session, n *normalizer.Normalized) (string, error) {
	data, mimeType, err := session.DownloadMedia(ctx, n.Media.MediaID)
	if err != nil {
		return "", err
	}

	name := n.WID + extensionFor(n.Media, mimeType)
	if p.mediaDir != "" {
		if err := os.MkdirAll(p.mediaDir, 0o755); err != nil {
			return "", fmt.Errorf("creating media dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(p.mediaDir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("writing media file: %w", err)
		}
	}
	return "/media/" + name, nil
}

func (p *Pipeline) processAck(ctx context.Context, whatsappID uint, ack *whatsapp.AckEvent) {
	session, err := p.manager.Get(whatsappID)
	if err != nil {
		return
	}
	companyID := session.CompanyID()

	msg, err := p.store.MessageByWID(ctx, ack.WID, companyID)
	if err != nil {
		return
	}
	// Receipts can arrive out of order; the ack only moves forward.
	if ack.Ack <= msg.Ack {
		return
	}

	msg.Ack = ack.Ack
	if ack.Ack >= entity.AckRead {
		msg.Read = true
	}
	if err := p.store.SaveMessage(ctx, msg); err != nil {
		p.log.Warn("failed to save ack", slog.String("wid", ack.WID), sl.Err(err))
		return
	}

	ticket, err := p.store.TicketByID(ctx, msg.TicketID, companyID)
	if err != nil {
		return
	}
	p.events.MessageUpdate(companyID, msg, ticket)
}

func extensionFor(m *whatsapp.MediaContent, mimeType string) string {
	if m.Filename != "" {
		if ext := filepath.Ext(m.Filename); ext != "" {
			return ext
		}
	}
	if mimeType == "" {
		mimeType = m.MimeType
	}
	if idx := strings.Index(mimeType, "/"); idx >= 0 {
		ext := mimeType[idx+1:]
		if semi := strings.Index(ext, ";"); semi >= 0 {
			ext = ext[:semi]
		}
		if ext != "" {
			return "." + ext
		}
	}
	return ".bin"
}

func convKey(whatsappID uint, remoteJid string) string {
	return fmt.Sprintf("%d:%s", whatsappID, remoteJid)
}
