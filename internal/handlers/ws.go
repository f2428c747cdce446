package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSMessage struct {
	Type       string      `json:"type"`
	Data       interface{} `json:"data"`
	ServerTime int64       `json:"server_time,omitempty"`
}

// HandleWS serves the ops feed. Shop sessions see their own shop; the static
// admin key sees every shop.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	shop, ok := s.wsShop(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := NewWSClient(shop, conn)
	s.Hub.Register(client)
	defer func() {
		s.Hub.Unregister(client)
		_ = conn.Close()
		close(client.SendCh)
	}()

	go client.WritePump()

	client.Send(mustJSON(WSMessage{
		Type:       "hello",
		ServerTime: time.Now().UnixMilli(),
		Data: map[string]interface{}{
			"shop":   shop,
			"online": s.Hub.OnlineCount(),
		},
	}))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var inbound struct {
			Type string `json:"type"`
			Ts   int64  `json:"ts"`
			Seq  int64  `json:"seq"`
		}
		if err := json.Unmarshal(msg, &inbound); err != nil {
			continue
		}
		if inbound.Type == "ping" {
			client.Send(mustJSON(WSMessage{
				Type:       "pong",
				ServerTime: time.Now().UnixMilli(),
				Data: map[string]interface{}{
					"ts":  inbound.Ts,
					"seq": inbound.Seq,
				},
			}))
		}
	}
}

func (s *Server) wsShop(r *http.Request) (string, bool) {
	if key := r.Header.Get("X-Admin-Token"); key != "" && key == s.Cfg.AdminToken {
		return "", true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = getBearerToken(r)
	}
	if token == "" {
		return "", false
	}
	claims, _, err := s.authenticate(r.Context(), token)
	if err != nil {
		return "", false
	}
	return claims.Shop, true
}
