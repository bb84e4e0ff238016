// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package websock

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stream websockets", func() {

	upgrader := websocket.Upgrader{}

	// dial spins up a capture-service stand-in running the given handler
	// and returns a stream socket connected to it.
	dial := func(handler func(c *websocket.Conn)) *StreamSocket {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				c, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				handler(c)
			}))
		DeferCleanup(srv.Close)
		conn, _, err := websocket.DefaultDialer.Dial(
			"ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		Expect(err).ShouldNot(HaveOccurred())
		return New(conn)
	}

	It("reads binary capture data", func() {
		ws := dial(func(c *websocket.Conn) {
			c.WriteMessage(websocket.BinaryMessage, []byte("pkt"))
			c.ReadMessage() // wait for the client to close
		})
		Expect(ws.Read()).Should(Equal([]byte("pkt")))
		// Keep reading while closing, so the close handshake can proceed;
		// this is what a recording loop does all the time anyway.
		go func() {
			defer GinkgoRecover()
			for {
				if _, err := ws.Read(); err != nil {
					return
				}
			}
		}()
		begin := time.Now()
		ws.Close()
		Expect(time.Since(begin)).Should(BeNumerically("<", closeGrace))
	})

	It("closes gracefully when the capture service closes first", func() {
		ws := dial(func(c *websocket.Conn) {
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			c.ReadMessage() // pick up the acknowledging close
		})
		_, err := ws.Read()
		Expect(err).Should(BeAssignableToTypeOf(&websocket.CloseError{}))
		Expect(ws.Closing).Should(BeTrue())
	})

	It("tears the transport down on protocol violations", func() {
		ws := dial(func(c *websocket.Conn) {
			c.WriteMessage(websocket.TextMessage, []byte("chatty"))
			c.ReadMessage() // block until the transport goes away
		})
		_, err := ws.Read()
		Expect(err).Should(MatchError(
			ContainSubstring("unexpected websocket text message")))
		// With the transport already torn down, a subsequent Close must not
		// sit out the whole graceful close timeout.
		begin := time.Now()
		ws.Close()
		Expect(time.Since(begin)).Should(BeNumerically("<", closeGrace))
	})

})
