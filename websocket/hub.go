package websocket

import (
	"log"
	"sync"

	"github.com/anjiri1684/teacher_review/metrics"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Change event kinds. Events carry no payload beyond the kind and the
// collection version; subscribers re-fetch the collection themselves.
const (
	EventTeacherUpdated = "teacher_updated"
	EventReviewUpdated  = "review_updated"
)

// Event announces that a collection changed. Version is the store's version
// of the snapshot the change produced, letting clients discard stale
// re-fetch responses.
type Event struct {
	Event   string `json:"event"`
	Version uint64 `json:"version"`
}

// Client is one connected notification subscriber.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex

var subscribers = make(map[chan Event]struct{})
var subscribersMu sync.Mutex

var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan Event)

func init() {
	go RunHub()
}

// RunHub fans change events out to every connected websocket client and every
// in-process subscriber. Emission order follows the order mutations handed
// events to Broadcast.
func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Client registered: %s", client.ID)
			clientsMu.Lock()
			clients[client.ID] = client.Conn
			clientsMu.Unlock()
			metrics.WebsocketClients.Inc()
		case client := <-Unregister:
			log.Printf("Client unregistered: %s", client.ID)
			clientsMu.Lock()
			if conn, ok := clients[client.ID]; ok && conn == client.Conn {
				delete(clients, client.ID)
				metrics.WebsocketClients.Dec()
			}
			clientsMu.Unlock()
		case event := <-Broadcast:
			metrics.EventsBroadcast.WithLabelValues(event.Event).Inc()

			subscribersMu.Lock()
			for ch := range subscribers {
				select {
				case ch <- event:
				default:
				}
			}
			subscribersMu.Unlock()

			clientsMu.RLock()
			for id, conn := range clients {
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Error sending event to client %s: %v", id, err)
					conn.Close()
					clientsMu.RUnlock()
					clientsMu.Lock()
					delete(clients, id)
					metrics.WebsocketClients.Dec()
					clientsMu.Unlock()
					clientsMu.RLock()
				}
			}
			clientsMu.RUnlock()
		}
	}
}

// Subscribe registers an in-process listener for change events. Events are
// dropped rather than blocking the hub when the listener falls behind.
func Subscribe() chan Event {
	ch := make(chan Event, 16)
	subscribersMu.Lock()
	subscribers[ch] = struct{}{}
	subscribersMu.Unlock()
	return ch
}

// Unsubscribe removes an in-process listener.
func Unsubscribe(ch chan Event) {
	subscribersMu.Lock()
	delete(subscribers, ch)
	subscribersMu.Unlock()
}

// NotifyTeacherUpdated announces a change to the Teachers collection.
func NotifyTeacherUpdated(version uint64) {
	Broadcast <- Event{Event: EventTeacherUpdated, Version: version}
}

// NotifyReviewUpdated announces a change to the Reviews collection.
func NotifyReviewUpdated(version uint64) {
	Broadcast <- Event{Event: EventReviewUpdated, Version: version}
}
