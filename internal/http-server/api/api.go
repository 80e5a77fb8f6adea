package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"zapdesk/internal/config"
	"zapdesk/internal/http-server/handlers/errors"
	"zapdesk/internal/http-server/handlers/health"
	"zapdesk/internal/http-server/handlers/ticket"
	"zapdesk/internal/http-server/handlers/webhook"
	"zapdesk/internal/http-server/middleware/timeout"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler aggregates the cores the HTTP surface talks to.
type Handler interface {
	webhook.Core
	ticket.Core
	ticket.Finder
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	// Webhooks skip the timeout middleware: media downloads inside the
	// pipeline may outlive a short request budget.
	router.Route("/webhooks/whatsapp/{whatsappId}", func(r chi.Router) {
		r.Get("/", webhook.Verify(log, conf.Whatsapp.VerifyToken))
		r.Post("/", webhook.Receive(log, conf.Whatsapp.AppSecret, handler))
	})

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, log, w, r)
	})

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(timeout.Timeout(5))
		v1.Use(render.SetContentType(render.ContentTypeJSON))
		v1.Route("/tickets", func(r chi.Router) {
			r.Get("/{ticketId}", ticket.Get(log, handler))
			r.Put("/{ticketId}", ticket.Update(log, handler))
			r.Post("/{ticketId}/read", ticket.MarkRead(log, handler, handler))
		})
	})

	router.Get("/healthz", health.Check(log))

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
