package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsClientMessage struct {
	Type    string `json:"type"`
	OwnerID string `json:"owner_id"`
}

// WebSocket upgrades the connection and serves the push channel. The
// client registers by sending {"type":"register","owner_id":"..."}; the
// read loop then only watches for disconnect, which unregisters the
// handle. Registrations are process-local and vanish on restart; clients
// poll job status as the durable fallback.
func (a *App) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("ws: upgrade failed")
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}
		var msg wsClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "register" || msg.OwnerID == "" {
			continue
		}

		client := a.Hub.Register(msg.OwnerID, conn)
		// Registered: from here the read loop only watches for disconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				a.Hub.Unregister(client)
				return
			}
		}
	}
}
