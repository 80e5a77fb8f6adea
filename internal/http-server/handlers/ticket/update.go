package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/api/response"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/tickets"
)

// Core is the ticket surface exposed to agents.
type Core interface {
	Update(ctx context.Context, ticketID, companyID uint, req tickets.UpdateRequest) (*entity.Ticket, error)
	MarkRead(ctx context.Context, ticket *entity.Ticket) error
}

// Finder loads tickets for the read endpoints.
type Finder interface {
	TicketByID(ctx context.Context, id, companyID uint) (*entity.Ticket, error)
}

type UpdateRequest struct {
	CompanyID uint    `json:"companyId"`
	Status    *string `json:"status,omitempty"`
	QueueID   *uint   `json:"queueId,omitempty"`
	UserID    *uint   `json:"userId,omitempty"`
	Chatbot   *bool   `json:"chatbot,omitempty"`
}

// Update applies agent-driven ticket changes, including close with its
// rating flow.
func Update(log *slog.Logger, core Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := strconv.ParseUint(chi.URLParam(r, "ticketId"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid ticket id"))
			return
		}

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		if req.CompanyID == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("companyId is required"))
			return
		}

		updated, err := core.Update(r.Context(), uint(ticketID), req.CompanyID, tickets.UpdateRequest{
			Status:  req.Status,
			QueueID: req.QueueID,
			UserID:  req.UserID,
			Chatbot: req.Chatbot,
		})
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("ticket not found"))
				return
			}
			if errors.Is(err, tickets.ErrOpenTicketExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("contact already has an active ticket"))
				return
			}
			log.Error("failed to update ticket",
				slog.Uint64("ticket_id", ticketID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update ticket"))
			return
		}

		render.JSON(w, r, response.Ok(updated))
	}
}

// Get returns one ticket.
func Get(log *slog.Logger, finder Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := strconv.ParseUint(chi.URLParam(r, "ticketId"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid ticket id"))
			return
		}
		companyID, err := strconv.ParseUint(r.URL.Query().Get("companyId"), 10, 64)
		if err != nil || companyID == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("companyId is required"))
			return
		}

		found, err := finder.TicketByID(r.Context(), uint(ticketID), uint(companyID))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("ticket not found"))
				return
			}
			log.Error("failed to load ticket",
				slog.Uint64("ticket_id", ticketID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load ticket"))
			return
		}

		render.JSON(w, r, response.Ok(found))
	}
}

// MarkRead clears a ticket's unread state and pushes read receipts.
func MarkRead(log *slog.Logger, core Core, finder Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := strconv.ParseUint(chi.URLParam(r, "ticketId"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid ticket id"))
			return
		}
		companyID, err := strconv.ParseUint(r.URL.Query().Get("companyId"), 10, 64)
		if err != nil || companyID == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("companyId is required"))
			return
		}

		found, err := finder.TicketByID(r.Context(), uint(ticketID), uint(companyID))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("ticket not found"))
				return
			}
			log.Error("failed to load ticket",
				slog.Uint64("ticket_id", ticketID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load ticket"))
			return
		}

		if err := core.MarkRead(r.Context(), found); err != nil {
			log.Error("failed to mark ticket read",
				slog.Uint64("ticket_id", ticketID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to mark ticket read"))
			return
		}

		render.JSON(w, r, response.Ok(found))
	}
}
