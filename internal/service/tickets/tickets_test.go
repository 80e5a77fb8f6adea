package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/service/outbound"
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
	updates []uint
	deletes []string
}

func (f *fakeEvents) TicketUpdate(ticket *entity.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, ticket.ID)
}

func (f *fakeEvents) TicketDelete(_, ticketID uint, fromStatus string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fmt.Sprintf("%d:%s", ticketID, fromStatus))
}

func (f *fakeEvents) MessageCreate(*entity.Message, *entity.Ticket, *entity.Contact) {}

type fakeSession struct {
	mu    sync.Mutex
	texts []string
	seq   int
}

func (s *fakeSession) ID() uint        { return 1 }
func (s *fakeSession) CompanyID() uint { return 1 }

func (s *fakeSession) SendText(_ context.Context, _, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.seq++
	return fmt.Sprintf("wamid.sent.%d", s.seq), nil
}

func (s *fakeSession) SendList(_ context.Context, _, text, _ string, _ []whatsapp.MenuRow) (string, error) {
	return s.SendText(context.Background(), "", text)
}

func (s *fakeSession) SendButtons(_ context.Context, _, text string, _ []whatsapp.MenuButton) (string, error) {
	return s.SendText(context.Background(), "", text)
}

func (s *fakeSession) SendImage(_ context.Context, _, _, caption string) (string, error) {
	return s.SendText(context.Background(), "", caption)
}

func (s *fakeSession) SendDocument(_ context.Context, _, _, filename string) (string, error) {
	return s.SendText(context.Background(), "", filename)
}

func (s *fakeSession) ProfilePictureURL(context.Context, string) (string, error) {
	return "", fmt.Errorf("no picture")
}

func (s *fakeSession) GroupMetadata(context.Context, string) (*whatsapp.GroupMetadata, error) {
	return &whatsapp.GroupMetadata{Subject: "Grupo"}, nil
}

func (s *fakeSession) MarkRead(context.Context, []string) error { return nil }

func (s *fakeSession) DownloadMedia(context.Context, string) ([]byte, string, error) {
	return []byte("data"), "image/jpeg", nil
}

func (s *fakeSession) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fixture struct {
	store    *database.Store
	db       *gorm.DB
	events   *fakeEvents
	session  *fakeSession
	resolver *Resolver
	updater  *Updater
	contact  *entity.Contact
}

func newFixture(t *testing.T) *fixture {
	store, db := newTestDB(t)
	events := &fakeEvents{}
	session := &fakeSession{}
	log := slog.Default()

	manager := whatsapp.NewManager()
	manager.Register(session)
	sender := outbound.New(store, events, log)

	contact := &entity.Contact{Name: "Maria", Number: "5511999990000", CompanyID: 1}
	var err error
	contact, err = store.UpsertContact(context.Background(), contact)
	require.NoError(t, err)

	require.NoError(t, db.Create(&entity.Whatsapp{
		ID:                1,
		Name:              "main",
		CompanyID:         1,
		ComplationMessage: "Obrigado pelo contato!",
	}).Error)

	return &fixture{
		store:    store,
		db:       db,
		events:   events,
		session:  session,
		resolver: NewResolver(store, events, log),
		updater:  NewUpdater(store, manager, sender, events, log),
		contact:  contact,
	}
}

func TestResolveCreatesPendingTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPending, ticket.Status)
	assert.Nil(t, ticket.QueueID)
	assert.False(t, ticket.Chatbot)
	assert.Equal(t, 1, ticket.UnreadMessages)
}

func TestResolveReusesActiveTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)
	second, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.UnreadMessages)
}

func TestResolveCreatesNewTicketAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	first.Status = entity.StatusClosed
	require.NoError(t, f.store.SaveTicket(ctx, first))

	second, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, entity.StatusPending, second.Status)
}

func TestUnreadCounterResetsOnBusinessMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	ticket, err := f.resolver.Resolve(ctx, f.contact, 1, 1, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.UnreadMessages)
}

func openTicketWithAgent(t *testing.T, f *fixture) *entity.Ticket {
	ctx := context.Background()
	ticket, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	userID := uint(7)
	open := entity.StatusOpen
	ticket, err = f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &open, UserID: &userID})
	require.NoError(t, err)
	return ticket
}

func TestCloseWithRatingsSendsSurveyAndHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSetting(ctx, entity.SettingUserRating, entity.SettingEnabled, 1))

	ticket := openTicketWithAgent(t, f)

	closed := entity.StatusClosed
	ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &closed})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusNPS, ticket.Status)
	texts := f.session.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "avalie")

	tracking, err := f.store.OpenTracking(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, tracking.RatingAt)
	assert.Nil(t, tracking.FinishedAt)
}

func TestCloseWithoutRatingsFinalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := openTicketWithAgent(t, f)

	closed := entity.StatusClosed
	ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &closed})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusClosed, ticket.Status)
	texts := f.session.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Obrigado")
}

func TestRatingClamp(t *testing.T) {
	cases := []struct {
		reply string
		want  int
	}{
		{"0", 1},
		{"9", 3},
		{"2", 2},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.store.SetSetting(ctx, entity.SettingUserRating, entity.SettingEnabled, 1))

			ticket := openTicketWithAgent(t, f)
			closed := entity.StatusClosed
			ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &closed})
			require.NoError(t, err)

			handled, err := f.updater.HandleRating(ctx, ticket, tc.reply)
			require.NoError(t, err)
			assert.True(t, handled)

			var rating entity.UserRating
			db := f.db
			require.NoError(t, db.Where("ticket_id = ?", ticket.ID).First(&rating).Error)
			assert.Equal(t, tc.want, rating.Rate)

			final, err := f.store.TicketByID(ctx, ticket.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, entity.StatusClosed, final.Status)
			assert.Nil(t, final.QueueID)
			assert.Nil(t, final.UserID)
		})
	}
}

func TestNonNumericRatingReplyIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSetting(ctx, entity.SettingUserRating, entity.SettingEnabled, 1))

	ticket := openTicketWithAgent(t, f)
	closed := entity.StatusClosed
	ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &closed})
	require.NoError(t, err)

	handled, err := f.updater.HandleRating(ctx, ticket, "obrigada!")
	require.NoError(t, err)
	assert.True(t, handled)

	after, err := f.store.TicketByID(ctx, ticket.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNPS, after.Status)

	var count int64
	db := f.db
	require.NoError(t, db.Model(&entity.UserRating{}).Where("ticket_id = ?", ticket.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReopenBlockedWhileContactHasActiveTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)
	first.Status = entity.StatusClosed
	require.NoError(t, f.store.SaveTicket(ctx, first))

	_, err = f.resolver.Resolve(ctx, f.contact, 1, 1, false, false)
	require.NoError(t, err)

	open := entity.StatusOpen
	_, err = f.updater.Update(ctx, first.ID, 1, UpdateRequest{Status: &open})
	assert.ErrorIs(t, err, ErrOpenTicketExists)
}

func TestReturnToPendingDropsAgentAndRestampsQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := openTicketWithAgent(t, f)

	pending := entity.StatusPending
	ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{Status: &pending})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPending, ticket.Status)
	assert.Nil(t, ticket.UserID)

	tracking, err := f.store.OpenTracking(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, tracking.QueuedAt)
	assert.Nil(t, tracking.StartedAt)
	assert.Nil(t, tracking.UserID)
}

func TestTransferSendsNoticeAndStampsQueuedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&entity.Queue{ID: 1, Name: "Suporte", CompanyID: 1}).Error)
	require.NoError(t, f.db.Create(&entity.Queue{ID: 2, Name: "Financeiro", CompanyID: 1}).Error)

	ticket := openTicketWithAgent(t, f)
	queueOne := uint(1)
	ticket, err := f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{QueueID: &queueOne})
	require.NoError(t, err)

	queueTwo := uint(2)
	_, err = f.updater.Update(ctx, ticket.ID, 1, UpdateRequest{QueueID: &queueTwo})
	require.NoError(t, err)

	texts := f.session.sentTexts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "Financeiro")

	tracking, err := f.store.OpenTracking(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, tracking.QueuedAt)
}
