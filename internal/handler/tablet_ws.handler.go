package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"signature-service/internal/usecase"
	"signature-service/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tablets authenticate by device token, not origin
	},
}

// TabletWSHandler owns the tablet side of the transport: upgrade,
// authentication, pump lifecycle and inbound frame routing.
type TabletWSHandler struct {
	hub      *ws.Hub
	devices  *usecase.DeviceUsecase
	sessions *usecase.SessionUsecase
}

func NewTabletWSHandler(hub *ws.Hub, devices *usecase.DeviceUsecase, sessions *usecase.SessionUsecase) *TabletWSHandler {
	return &TabletWSHandler{hub: hub, devices: devices, sessions: sessions}
}

// HandleWS upgrades a paired tablet's connection. The device token rides in
// the query string (tablet webviews cannot set headers on the handshake).
func (h *TabletWSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	device, err := h.devices.AuthenticateToken(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed for tablet %s: %v", device.ID, err)
		return
	}

	client := ws.NewClient(device.ID, device.CompanyID, conn)
	h.hub.Register(client)
	h.devices.HandleConnect(context.Background(), device.ID)

	h.hub.Send(device.ID, ws.MsgConnected, map[string]interface{}{
		"device_id":     device.ID,
		"friendly_name": device.FriendlyName,
		"timestamp":     time.Now().Unix(),
	})

	go client.WritePump()
	go func() {
		// A superseded connection's pump exits after its replacement has
		// registered; only the client the hub actually removed may flip
		// the device to DISCONNECTED.
		if client.ReadPump(h.hub, h) {
			h.devices.HandleDisconnect(context.Background(), device.ID)
		}
	}()
}

// HandleInbound routes tablet→server frames. Each frame is handled with its
// own bounded context; the pump goroutine never blocks on the database
// indefinitely.
func (h *TabletWSHandler) HandleInbound(c *ws.Client, msg *ws.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch msg.Type {
	case ws.MsgSignatureSubmit:
		h.handleSubmit(ctx, c, msg.Data)

	case ws.MsgSessionProgress:
		var p ws.SessionProgressPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.SendError("invalid progress payload")
			return
		}
		if err := h.sessions.MarkProgress(ctx, c.TabletID, p.SessionID, p.Status); err != nil {
			c.SendError(err.Error())
		}

	case ws.MsgTestAck:
		h.devices.TouchLastSeen(ctx, c.TabletID)

	default:
		c.SendError("unknown message type")
	}
}

func (h *TabletWSHandler) handleSubmit(ctx context.Context, c *ws.Client, raw json.RawMessage) {
	var p ws.SignatureSubmitPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.SendError("invalid submit payload")
		return
	}

	var signedAt time.Time
	if p.SignedAt != "" {
		t, err := time.Parse(time.RFC3339, p.SignedAt)
		if err != nil {
			c.SendError("invalid signed_at timestamp")
			return
		}
		signedAt = t
	}

	session, err := h.sessions.SubmitSignature(ctx, c.TabletID, p.SessionID, p.SignatureImage, signedAt)
	if err != nil {
		c.SendError(err.Error())
		return
	}

	h.hub.Send(c.TabletID, ws.MsgSubmitAck, map[string]interface{}{
		"session_id": session.ID,
		"signed_at":  session.SignedAt.Format(time.RFC3339),
	})
}
