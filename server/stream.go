// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/store"
)

const (
	// streamBuffer is the per-client batch backlog. A client that cannot
	// drain it is disconnected rather than allowed to stall the store.
	streamBuffer = 16

	streamWriteWait = 10 * time.Second
	streamPingEvery = 30 * time.Second
)

// streamHub fans reconciliation batches out to websocket clients. It is a
// store consumer: Render must never block, so each client gets a bounded
// queue and a dedicated writer goroutine.
type streamHub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	closed  bool
	clients map[*websocket.Conn]chan store.Batch
}

func newStreamHub(logger *logging.Logger) *streamHub {
	return &streamHub{
		logger: logger.With("component", "stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The daemon binds locally; clients are local tooling.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan store.Batch),
	}
}

// Render implements store.Consumer.
func (h *streamHub) Render(b store.Batch) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, queue := range h.clients {
		select {
		case queue <- b:
		default:
			h.logger.Warn("stream client too slow, dropping", "addr", conn.RemoteAddr().String())
			delete(h.clients, conn)
			close(queue)
		}
	}
}

// serve upgrades the request and streams batches until the client leaves.
func (h *streamHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	queue := make(chan store.Batch, streamBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = queue
	h.mu.Unlock()

	go h.writeLoop(conn, queue)
	h.readLoop(conn)
}

// writeLoop drains one client's queue onto its connection.
func (h *streamHub) writeLoop(conn *websocket.Conn, queue chan store.Batch) {
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case batch, ok := <-queue:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(streamWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(batch); err != nil {
				h.drop(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

// readLoop discards client frames and notices disconnects.
func (h *streamHub) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

// drop removes one client if it is still registered.
func (h *streamHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if queue, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(queue)
	}
}

// close disconnects every client. Render becomes a no-op afterwards.
func (h *streamHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, queue := range h.clients {
		delete(h.clients, conn)
		// The client's write loop closes the connection when the queue
		// drains.
		close(queue)
	}
}
