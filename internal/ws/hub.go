package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"zapdesk/internal/lib/sl"
)

// Room names mirror the frontend's subscription model: one room per
// ticket status, one per open chat box and one for the notification
// badge.
const (
	RoomNotification = "notification"
)

// Event is one frame pushed to subscribed frontend clients.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active frontend connections and routes
// events to the rooms they joined. Rooms are scoped per company; a
// client never sees another company's traffic.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *frame
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

// frame is one event addressed to a set of rooms within a company.
type frame struct {
	companyID uint
	rooms     []string
	data      []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws")),
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case fr := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.companyID != fr.companyID || !client.inAny(fr.rooms) {
					continue
				}
				select {
				case client.send <- fr.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Emit pushes an event to the given rooms of one company. The event
// name is prefixed with the company id so multi-tab frontends can
// demultiplex.
func (h *Hub) Emit(companyID uint, rooms []string, name string, payload any) {
	data, err := json.Marshal(&Event{
		Name:    fmt.Sprintf("company-%d-%s", companyID, name),
		Payload: payload,
	})
	if err != nil {
		h.log.Warn("failed to marshal event", sl.Err(err))
		return
	}
	h.broadcast <- &frame{companyID: companyID, rooms: rooms, data: data}
}

// TicketRooms builds the room set an updated ticket should reach: its
// status room, its own chat box and the notification badge.
func TicketRooms(status string, ticketID uint) []string {
	return []string{status, TicketRoom(ticketID), RoomNotification}
}

// TicketRoom is the chat-box room of one ticket.
func TicketRoom(ticketID uint) string {
	return fmt.Sprintf("ticket-%d", ticketID)
}

// clientEvent is one incoming subscription verb from a frontend client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses a subscription verb and adjusts the
// client's room set.
func (h *Hub) HandleClientMessage(c *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	var room string
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &room); err != nil {
			h.log.Warn("failed to parse room data", sl.Err(err))
			return
		}
	}

	switch event.Type {
	case "joinTickets":
		// room is a ticket status: pending, open, nps, closed.
		c.join(room)
	case "joinChatBox":
		c.join("ticket-" + room)
	case "joinNotification":
		c.join(RoomNotification)
	case "leaveTickets":
		c.leave(room)
	case "leaveChatBox":
		c.leave("ticket-" + room)
	case "leaveNotification":
		c.leave(RoomNotification)
	}
}
