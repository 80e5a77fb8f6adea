// Package contacts maps raw sender identities onto persisted contacts.
package contacts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/cache"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/normalizer"
)

// Resolver upserts contacts from normalized events. Group metadata is
// cached so repeated messages from the same group do not refetch it.
type Resolver struct {
	log         *slog.Logger
	store       *database.Store
	groups      *cache.TTL[string, *entity.Contact]
	placeholder string
}

// New creates a resolver. placeholderURL is the picture used when the
// provider lookup fails; groupTTL bounds how long group metadata is
// reused before refetching.
func New(store *database.Store, placeholderURL string, groupTTL time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{
		log:         log.With(sl.Module("contacts")),
		store:       store,
		groups:      cache.NewTTL[string, *entity.Contact](groupTTL),
		placeholder: placeholderURL,
	}
}

// Resolve upserts the sender of a normalized event. In group chats the
// sender is the participant, not the group itself.
func (r *Resolver) Resolve(ctx context.Context, session whatsapp.Session, n *normalizer.Normalized) (*entity.Contact, error) {
	jid := n.RemoteJid
	if n.IsGroup && n.Participant != "" {
		jid = n.Participant
	}

	name := n.PushName
	if name == "" {
		name = Number(jid)
	}

	contact := &entity.Contact{
		Name:          name,
		Number:        Number(jid),
		ProfilePicUrl: r.profilePicture(ctx, session, jid),
		IsGroup:       false,
		CompanyID:     session.CompanyID(),
	}
	return r.store.UpsertContact(ctx, contact)
}

// ResolveGroup upserts the group identity of a group message, serving
// repeated hits from the metadata cache.
func (r *Resolver) ResolveGroup(ctx context.Context, session whatsapp.Session, n *normalizer.Normalized) (*entity.Contact, error) {
	return r.groups.GetOrRefresh(n.RemoteJid, func() (*entity.Contact, error) {
		subject := Number(n.RemoteJid)
		meta, err := session.GroupMetadata(ctx, n.RemoteJid)
		if err != nil {
			r.log.Warn("group metadata lookup failed",
				slog.String("jid", n.RemoteJid), sl.Err(err))
		} else if meta.Subject != "" {
			subject = meta.Subject
		}

		contact := &entity.Contact{
			Name:          subject,
			Number:        Number(n.RemoteJid),
			ProfilePicUrl: r.profilePicture(ctx, session, n.RemoteJid),
			IsGroup:       true,
			CompanyID:     session.CompanyID(),
		}
		return r.store.UpsertContact(ctx, contact)
	})
}

// profilePicture is best-effort: a failed lookup falls back to the
// placeholder and never aborts contact resolution.
func (r *Resolver) profilePicture(ctx context.Context, session whatsapp.Session, jid string) string {
	url, err := session.ProfilePictureURL(ctx, jid)
	if err != nil || url == "" {
		return r.placeholder
	}
	return url
}

// Number strips the server suffix off a jid.
func Number(jid string) string {
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}
