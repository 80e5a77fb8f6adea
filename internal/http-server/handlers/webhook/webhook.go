package webhook

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zapdesk/bot/whatsapp"
	"zapdesk/internal/lib/sl"
)

// Core consumes decoded webhook batches.
type Core interface {
	HandleEvents(whatsappID uint, msgs []whatsapp.RawMessage, acks []whatsapp.AckEvent)
}

// Verify answers the provider's subscription handshake.
func Verify(log *slog.Logger, verifyToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")

		if mode == "subscribe" && token == verifyToken {
			log.Info("webhook verified")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(challenge))
			return
		}

		log.Warn("webhook verification failed",
			slog.String("mode", mode),
			slog.Bool("token_match", token == verifyToken),
		)
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// Receive verifies, decodes and enqueues an incoming webhook batch. The
// provider gets its 200 before processing starts; retries are absorbed
// by message de-duplication.
func Receive(log *slog.Logger, appSecret string, core Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		whatsappID, err := strconv.ParseUint(chi.URLParam(r, "whatsappId"), 10, 64)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("failed to read request body", sl.Err(err))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if appSecret != "" {
			signature := r.Header.Get("X-Hub-Signature-256")
			if !whatsapp.VerifySignature(appSecret, payload, signature) {
				log.Warn("invalid webhook signature",
					slog.Uint64("whatsapp_id", whatsappID))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		parsed, err := whatsapp.ParsePayload(payload)
		if err != nil {
			log.Error("failed to parse webhook payload", sl.Err(err))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)

		msgs, acks := whatsapp.DecodePayload(parsed)
		if len(msgs) == 0 && len(acks) == 0 {
			return
		}
		core.HandleEvents(uint(whatsappID), msgs, acks)
	}
}
