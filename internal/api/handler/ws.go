package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whobible/backend/internal/models"
	"whobible/backend/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	intentTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The community page is served from its own origin; lock down in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and binds a fresh room session
// to it. Intents come in as JSON commands; session events go back out.
// The session dies with the socket — there is no resume after reload.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	anonID, err := h.bearerAnonID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing or invalid"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		anonID: anonID,
		conn:   conn,
		send:   make(chan models.Event, 256),
		log:    h.Log,
	}
	client.sess = session.New(h.Store, h.Source, client, h.Log)

	// Share links carry the room code as a query parameter; surface it so
	// the client can pre-fill its join intent.
	if code := session.RoomCodeFromURL(c.Request.URL.String()); code != "" {
		client.enqueue(models.Event{Type: "deeplink", RoomCode: code})
	}

	go client.writePump()
	go client.readPump()
}

// wsClient bridges one websocket to one session. It implements
// session.Events by queueing outbound events on the send channel.
type wsClient struct {
	anonID string
	conn   *websocket.Conn
	sess   *session.Session
	send   chan models.Event
	log    *zap.Logger

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) OnStatusChange(status string) {
	c.enqueue(models.Event{Type: "status", Status: status})
}

func (c *wsClient) OnOpponentUpdate(p models.PlayerState) {
	c.enqueue(models.Event{Type: "opponent", Opponent: &p})
}

func (c *wsClient) OnQuestionsReady(qs []models.Question) {
	c.enqueue(models.Event{Type: "questions", Questions: qs})
}

func (c *wsClient) enqueue(ev models.Event) {
	// A store notification can still be in flight while the socket shuts
	// down; never send on the closed channel.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		c.log.Warn("event dropped, send buffer full",
			zap.String("anonID", c.anonID),
			zap.String("type", ev.Type),
		)
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.sess.LeaveRoom()
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.String("anonID", c.anonID), zap.Error(err))
			}
			return
		}

		var intent models.Intent
		if err := json.Unmarshal(message, &intent); err != nil {
			c.enqueue(models.Event{Type: "error", Error: "malformed intent"})
			continue
		}
		c.dispatch(intent)
	}
}

func (c *wsClient) dispatch(intent models.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
	defer cancel()

	switch intent.Action {
	case "create":
		var settings models.RoomSettings
		if intent.Settings != nil {
			settings = *intent.Settings
		}
		info, err := c.sess.CreateRoom(ctx, intent.Name, settings)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(models.Event{Type: "created", RoomCode: info.RoomCode, ShareURL: info.ShareURL})

	case "join":
		code := session.NormalizeRoomCode(intent.RoomCode)
		if !session.ValidRoomCode(code) {
			c.enqueue(models.Event{Type: "error", Error: "malformed room code"})
			return
		}
		room, err := c.sess.JoinRoom(ctx, code, intent.Name)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(models.Event{Type: "joined", RoomCode: room.Code, Room: room})

	case "ready":
		if err := c.sess.SetReady(ctx); err != nil {
			c.fail(err)
		}

	case "answer":
		if err := c.sess.SubmitAnswer(ctx, intent.QuestionIndex, intent.Correct, intent.TimeTaken); err != nil {
			c.fail(err)
		}

	case "complete":
		room, err := c.sess.CompleteChallenge(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(models.Event{Type: "state", Room: room})

	case "leave":
		c.sess.LeaveRoom()
		c.enqueue(models.Event{Type: "left"})

	case "state":
		room, err := c.sess.RoomState(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(models.Event{Type: "state", Room: room})

	default:
		c.enqueue(models.Event{Type: "error", Error: "unknown action"})
	}
}

func (c *wsClient) fail(err error) {
	c.enqueue(models.Event{Type: "error", Error: err.Error()})
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
