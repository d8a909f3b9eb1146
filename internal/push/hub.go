package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/weathermon/weather-monitor/internal/observability"
	"github.com/weathermon/weather-monitor/internal/weather"
)

// Source supplies the latest reading for a city.
type Source interface {
	Latest(city string) (weather.Reading, error)
}

type citySelection struct {
	client *Client
	city   string
}

// Hub tracks connected live-update subscribers and their selected city,
// and delivers the latest reading of each subscribed city on a fixed
// period. The hub is an injected dependency with an explicit Run
// lifecycle; there is no process-wide singleton. One hub-level ticker
// serves all clients, so a disconnect can never leave a timer behind.
type Hub struct {
	source   Source
	interval time.Duration
	metrics  *observability.Metrics

	register   chan *Client
	unregister chan *Client
	selections chan citySelection
	done       chan struct{} // closed when Run returns

	clients map[*Client]string // client -> selected city ("" until selected)
}

// NewHub creates a Hub delivering updates every interval.
func NewHub(source Source, interval time.Duration, metrics *observability.Metrics) *Hub {
	return &Hub{
		source:     source,
		interval:   interval,
		metrics:    metrics,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		selections: make(chan citySelection),
		done:       make(chan struct{}),
		clients:    make(map[*Client]string),
	}
}

// Run owns the client map and the delivery ticker. Blocks until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = ""
			if h.metrics != nil {
				h.metrics.PushClients.Inc()
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if h.metrics != nil {
					h.metrics.PushClients.Dec()
				}
			}

		case sel := <-h.selections:
			if _, ok := h.clients[sel.client]; ok {
				h.clients[sel.client] = sel.city
				slog.Debug("push: city selected", "city", sel.city)
			}

		case <-ticker.C:
			h.deliver()
		}
	}
}

// add hands a new client to the run loop. Returns false when the hub
// has already shut down; nothing drains register after Run returns, so
// an unguarded send would block the connection goroutine forever.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove detaches a client. After shutdown this is a no-op: Run already
// closed every send channel on its way out.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// selectCity records the client's chosen city.
func (h *Hub) selectCity(c *Client, city string) {
	select {
	case h.selections <- citySelection{client: c, city: city}:
	case <-h.done:
	}
}

// deliver sends the latest reading of every city that has at least one
// subscriber. Cities nobody watches cost nothing.
func (h *Hub) deliver() {
	byCity := make(map[string][]*Client)
	for client, city := range h.clients {
		if city == "" {
			continue
		}
		byCity[city] = append(byCity[city], client)
	}

	for city, clients := range byCity {
		reading, err := h.source.Latest(city)
		if err != nil {
			slog.Warn("push: no reading to deliver", "city", city, "error", err)
			continue
		}

		payload, err := json.Marshal(map[string]any{
			"type":    "update",
			"payload": reading,
		})
		if err != nil {
			slog.Error("push: marshal update failed", "city", city, "error", err)
			continue
		}

		for _, client := range clients {
			select {
			case client.send <- payload:
				if h.metrics != nil {
					h.metrics.PushDeliveries.Inc()
				}
			default:
				// Client stopped draining; drop it.
				delete(h.clients, client)
				close(client.send)
				if h.metrics != nil {
					h.metrics.PushClients.Dec()
				}
			}
		}
	}
}
