package router

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/simulator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 5 * time.Second

// streamState pushes a state snapshot to the client after every processed
// tick, via the event bus.
func (h *Handler) streamState(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("streamState: upgrade: %v", err)
		return
	}

	states := make(chan simulator.StateSnapshot, 16)

	callback := func(state simulator.StateSnapshot) {
		select {
		case states <- state:
		default:
			// Slow client: drop the tick rather than stall the bus.
		}
	}

	if err := eventpubsub.Subscribe("router", eventpubsub.TickProcessedEvent, callback); err != nil {
		log.Errorf("streamState: %v", err)
		conn.Close()
		return
	}

	defer func() {
		eventpubsub.Unsubscribe("router", eventpubsub.TickProcessedEvent, callback)
		conn.Close()
	}()

	// Drain the reader so close frames are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case state := <-states:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(state); err != nil {
				log.Debugf("streamState: write: %v", err)
				return
			}
		}
	}
}
