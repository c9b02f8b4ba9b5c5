package httpapi

import (
	"net/http"
	"time"

	"qms/hospital-service/internal/events"
	"qms/hospital-service/internal/hub"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/rs/zerolog"
)

const clientBuffer = 16

// NewRealtimeHandler serves the display feed under /realtime. Screens receive every
// call event until they send {"action":"subscribe","topic":"..."} to narrow it.
// Streaming transports hold the response open, so the server write deadline is
// lifted for these requests.
func NewRealtimeHandler(h *hub.Hub, logger zerolog.Logger) http.Handler {
	feed := displayFeed(h, logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			logger.Debug().Err(err).Msg("clear write deadline")
		}
		feed.ServeHTTP(w, r)
	})
}

func displayFeed(h *hub.Hub, logger zerolog.Logger) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := hub.NewClient(uuid.NewString(), clientBuffer)
		h.Register(client)
		defer h.Unregister(client)
		logger.Debug().Str("client_id", client.ID).Int("clients", h.Len()).Msg("display connected")

		go func() {
			for msg := range client.Send {
				if err := session.Send(string(msg)); err != nil {
					return
				}
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				logger.Debug().Str("client_id", client.ID).Err(err).Msg("display disconnected")
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			topic := parsed.Topic
			if parsed.Action == "subscribe" {
				if topic == "" {
					topic = events.TopicCalls
				}
				h.Subscribe(client, topic)
				continue
			}
			h.Unsubscribe(client, topic)
		}
	})
}
