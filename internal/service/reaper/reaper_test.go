package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/service/outbound"
	"zapdesk/internal/service/tickets"
)

func newTestDB(t *testing.T) (*database.Store, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store := database.New(db)
	require.NoError(t, store.Migrate())
	return store, db
}

type fakeEvents struct {
	mu      sync.Mutex
	deletes []string
	updates int
}

func (f *fakeEvents) TicketUpdate(*entity.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
}

func (f *fakeEvents) TicketDelete(_, ticketID uint, fromStatus string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fmt.Sprintf("%d:%s", ticketID, fromStatus))
}

func (f *fakeEvents) MessageCreate(*entity.Message, *entity.Ticket, *entity.Contact) {}

type fakeSession struct{}

func (s *fakeSession) ID() uint        { return 1 }
func (s *fakeSession) CompanyID() uint { return 1 }

func (s *fakeSession) SendText(context.Context, string, string) (string, error) {
	return "wamid.sent", nil
}

func (s *fakeSession) SendList(context.Context, string, string, string, []whatsapp.MenuRow) (string, error) {
	return "wamid.sent", nil
}

func (s *fakeSession) SendButtons(context.Context, string, string, []whatsapp.MenuButton) (string, error) {
	return "wamid.sent", nil
}

func (s *fakeSession) SendImage(context.Context, string, string, string) (string, error) {
	return "wamid.sent", nil
}

func (s *fakeSession) SendDocument(context.Context, string, string, string) (string, error) {
	return "wamid.sent", nil
}

func (s *fakeSession) ProfilePictureURL(context.Context, string) (string, error) { return "", nil }

func (s *fakeSession) GroupMetadata(context.Context, string) (*whatsapp.GroupMetadata, error) {
	return &whatsapp.GroupMetadata{}, nil
}

func (s *fakeSession) MarkRead(context.Context, []string) error { return nil }

func (s *fakeSession) DownloadMedia(context.Context, string) ([]byte, string, error) {
	return nil, "", nil
}

type fixture struct {
	store  *database.Store
	db     *gorm.DB
	events *fakeEvents
	reaper *Reaper
}

func newFixture(t *testing.T, wpp *entity.Whatsapp) *fixture {
	store, db := newTestDB(t)
	events := &fakeEvents{}
	log := slog.Default()

	manager := whatsapp.NewManager()
	manager.Register(&fakeSession{})
	sender := outbound.New(store, events, log)
	updater := tickets.NewUpdater(store, manager, sender, events, log)

	require.NoError(t, db.Create(wpp).Error)
	require.NoError(t, db.Create(&entity.Contact{
		ID: 1, Name: "Maria", Number: "5511999990000", CompanyID: 1,
	}).Error)

	return &fixture{
		store:  store,
		db:     db,
		events: events,
		reaper: New(store, updater, events, log),
	}
}

// seedTicket creates a ticket and backdates its last activity.
// UpdateColumn bypasses gorm's automatic updated_at stamping.
func (f *fixture) seedTicket(t *testing.T, status string, idleFor time.Duration) *entity.Ticket {
	ticket := &entity.Ticket{
		UUID:       fmt.Sprintf("uuid-%s-%d", status, time.Now().UnixNano()),
		Status:     status,
		ContactID:  1,
		WhatsappID: 1,
		CompanyID:  1,
	}
	require.NoError(t, f.db.Create(ticket).Error)
	require.NoError(t, f.db.Model(ticket).
		UpdateColumn("updated_at", time.Now().Add(-idleFor)).Error)
	return ticket
}

func (f *fixture) reload(t *testing.T, id uint) *entity.Ticket {
	var ticket entity.Ticket
	require.NoError(t, f.db.First(&ticket, id).Error)
	return &ticket
}

func TestSweepMovesIdleOpenToNPS(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{
		ID: 1, CompanyID: 1, ExpiresTicket: 4, UseNPS: true,
	})
	userID := uint(7)
	ticket := f.seedTicket(t, entity.StatusOpen, 5*time.Hour)
	require.NoError(t, f.db.Model(ticket).UpdateColumns(map[string]any{
		"user_id":         userID,
		"unread_messages": 3,
		"updated_at":      time.Now().Add(-5 * time.Hour),
	}).Error)

	f.reaper.Sweep(context.Background())

	after := f.reload(t, ticket.ID)
	assert.Equal(t, entity.StatusNPS, after.Status)
	assert.Nil(t, after.UserID)
	assert.Zero(t, after.UnreadMessages)
	assert.Equal(t, []string{fmt.Sprintf("%d:open", ticket.ID)}, f.events.deletes)
}

func TestSweepClosesIdleOpenWithoutNPS(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{
		ID: 1, CompanyID: 1, ExpiresTicket: 4, UseNPS: false,
	})
	ticket := f.seedTicket(t, entity.StatusOpen, 5*time.Hour)

	f.reaper.Sweep(context.Background())

	after := f.reload(t, ticket.ID)
	assert.Equal(t, entity.StatusClosed, after.Status)

	var tracking entity.TicketTracking
	require.NoError(t, f.db.Where("ticket_id = ?", after.ID).First(&tracking).Error)
	assert.NotNil(t, tracking.FinishedAt)
}

func TestSweepClosesStaleNPS(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{
		ID: 1, CompanyID: 1, ExpiresTicketNPS: 30,
	})
	ticket := f.seedTicket(t, entity.StatusNPS, time.Hour)

	f.reaper.Sweep(context.Background())

	after := f.reload(t, ticket.ID)
	assert.Equal(t, entity.StatusClosed, after.Status)
}

func TestSweepLeavesFreshTicketsAlone(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{
		ID: 1, CompanyID: 1, ExpiresTicket: 4, ExpiresTicketNPS: 30, UseNPS: true,
	})
	open := f.seedTicket(t, entity.StatusOpen, time.Hour)
	nps := f.seedTicket(t, entity.StatusNPS, 10*time.Minute)

	f.reaper.Sweep(context.Background())

	assert.Equal(t, entity.StatusOpen, f.reload(t, open.ID).Status)
	assert.Equal(t, entity.StatusNPS, f.reload(t, nps.ID).Status)
	assert.Empty(t, f.events.deletes)
}

func TestSweepDisabledWhenThresholdsUnset(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{ID: 1, CompanyID: 1})
	ticket := f.seedTicket(t, entity.StatusOpen, 100*time.Hour)

	f.reaper.Sweep(context.Background())

	assert.Equal(t, entity.StatusOpen, f.reload(t, ticket.ID).Status)
}

func TestSweepIgnoresGroupTickets(t *testing.T) {
	f := newFixture(t, &entity.Whatsapp{
		ID: 1, CompanyID: 1, ExpiresTicket: 4, UseNPS: true,
	})
	ticket := f.seedTicket(t, entity.StatusOpen, 5*time.Hour)
	require.NoError(t, f.db.Model(ticket).UpdateColumns(map[string]any{
		"is_group":   true,
		"updated_at": time.Now().Add(-5 * time.Hour),
	}).Error)

	f.reaper.Sweep(context.Background())

	assert.Equal(t, entity.StatusOpen, f.reload(t, ticket.ID).Status)
}
