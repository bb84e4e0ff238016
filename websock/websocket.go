// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package websock

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// closeGrace bounds how long a graceful close may take before the transport
// connection gets torn down regardless of the peer.
const closeGrace = 10 * time.Second

// StreamSocket represents a client websocket delivering binary capture
// stream data, with graceful handling of the closing procedure.
type StreamSocket struct {
	*websocket.Conn
	Closing bool       // Are we in the process of gracefully closing?
	m       sync.Mutex // Synchronize access to this websocket's state.
	// Signals that the websocket is closed, by closing (sic!) this channel.
	closed chan struct{}
}

// New returns an enhanced gorilla websocket that does graceful close
// handling.
func New(ws *websocket.Conn) *StreamSocket {
	return &StreamSocket{
		Conn:   ws,
		closed: make(chan struct{}),
	}
}

// Read reads more binary capture data from the websocket. It correctly
// handles gracefully closing the websocket when the peer (the capture
// service) signals to do so. The client can trigger a close itself using the
// Close() method. When the websocket has been gracefully closed, Read
// returns a websocket.CloseError with the peer's close code and text.
func (ws *StreamSocket) Read() (data []byte, err error) {
	msgType, data, err := ws.Conn.ReadMessage()
	if err == nil {
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
		// Capture streams are binary-only; a protocol-violating capture
		// service doesn't get a graceful goodbye, and the transport must
		// not linger on.
		ws.shutdown()
		return nil, fmt.Errorf("unexpected websocket text message received")
	}
	// Check if we got a close "error" or some other error: for close errors
	// we need to carry out the graceful close procedure correctly; on all
	// other errors the transport broke without any close handshake, so tear
	// it down right here instead of leaking the connection.
	cerr, ok := err.(*websocket.CloseError)
	if !ok {
		ws.shutdown()
		return nil, err
	}
	// So we got a websocket close control message. If the peer sent it in
	// response to us sending one beforehand, both sides are done. Otherwise
	// the peer is closing first and we need to acknowledge with our own
	// close control message.
	ws.m.Lock()
	if !ws.Closing {
		ws.Closing = true
		log.Debug("capture service closes websocket, acknowledging close")
		ws.Conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "ciao"))
	} else {
		log.Debug("capture service acknowledged websocket close")
	}
	ws.m.Unlock()
	ws.shutdown()
	return nil, cerr
}

// shutdown closes the underlying transport connection and signals the
// websocket as closed. It tolerates being called more than once, as both the
// reading side and a timed-out graceful Close may end up here.
func (ws *StreamSocket) shutdown() {
	ws.m.Lock()
	defer ws.m.Unlock()
	ws.Conn.Close()
	select {
	case <-ws.closed:
		// Already signalled.
	default:
		close(ws.closed) // sic(k)!
	}
}

// Close gracefully closes this client websocket and waits for the close to
// complete. The waiting is time limited, though, so a non-responsive capture
// service won't block us here forever: after a "graceful" timeout the
// underlaying transport connection is closed in any case. This Close()
// operation thus has an upper bound on its execution time.
func (ws *StreamSocket) Close() {
	ws.m.Lock()
	func() { // locked section
		defer ws.m.Unlock()
		// No close control message must be sent when the graceful close is
		// already underway, regardless of which side started it.
		if !ws.Closing {
			ws.Closing = true
			log.Debug("initiating graceful websocket close")
			ws.Conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "ciao"))
		}
	}()
	log.Debug("waiting for graceful close to be finished...")
	select {
	case <-time.After(closeGrace):
		// Force the underlaying transport connection to close in case the
		// capture service hangs, not proceeding in the graceful close.
		log.Debug("graceful websocket close timeout; forced closed")
		ws.shutdown()
	case <-ws.closed:
		// Done: either just gracefully closed or already closed.
	}
	log.Debug("websocket gracefully closed.")
}
