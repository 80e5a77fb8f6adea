package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapdesk/entity"
)

type emitted struct {
	companyID uint
	rooms     []string
	name      string
	payload   map[string]any
}

type fakeHub struct {
	events []emitted
}

func (f *fakeHub) Emit(companyID uint, rooms []string, name string, payload any) {
	f.events = append(f.events, emitted{
		companyID: companyID,
		rooms:     rooms,
		name:      name,
		payload:   payload.(map[string]any),
	})
}

func TestTicketUpdateReachesStatusChatBoxAndNotification(t *testing.T) {
	hub := &fakeHub{}
	f := New(hub)

	f.TicketUpdate(&entity.Ticket{ID: 42, Status: entity.StatusPending, CompanyID: 3})

	require.Len(t, hub.events, 1)
	ev := hub.events[0]
	assert.EqualValues(t, 3, ev.companyID)
	assert.Equal(t, "ticket", ev.name)
	assert.Equal(t, []string{"pending", "ticket-42", "notification"}, ev.rooms)
	assert.Equal(t, "update", ev.payload["action"])
}

func TestTicketDeleteTargetsPreviousStatusRoom(t *testing.T) {
	hub := &fakeHub{}
	f := New(hub)

	f.TicketDelete(3, 42, entity.StatusOpen)

	require.Len(t, hub.events, 1)
	ev := hub.events[0]
	assert.Equal(t, []string{"open", "ticket-42", "notification"}, ev.rooms)
	assert.Equal(t, "delete", ev.payload["action"])
	assert.EqualValues(t, 42, ev.payload["ticketId"])
}

func TestMessageCreateCarriesTicketAndContact(t *testing.T) {
	hub := &fakeHub{}
	f := New(hub)

	ticket := &entity.Ticket{ID: 7, Status: entity.StatusOpen, CompanyID: 1}
	msg := &entity.Message{ID: 9, TicketID: 7}
	contact := &entity.Contact{ID: 5}
	f.MessageCreate(msg, ticket, contact)

	require.Len(t, hub.events, 1)
	ev := hub.events[0]
	assert.Equal(t, "appMessage", ev.name)
	assert.Equal(t, "create", ev.payload["action"])
	assert.Same(t, msg, ev.payload["message"])
	assert.Same(t, ticket, ev.payload["ticket"])
	assert.Same(t, contact, ev.payload["contact"])
}

func TestWhatsappUpdateGoesToNotificationRoom(t *testing.T) {
	hub := &fakeHub{}
	f := New(hub)

	f.WhatsappUpdate(&entity.Whatsapp{ID: 1, CompanyID: 2})

	require.Len(t, hub.events, 1)
	assert.Equal(t, []string{"notification"}, hub.events[0].rooms)
	assert.Equal(t, "whatsapp", hub.events[0].name)
}
