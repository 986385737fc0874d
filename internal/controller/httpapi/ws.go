package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBufSize    = 64
	maxSubscribes  = 32
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"

	feedConversations = "conversations"
	feedMessages      = "messages"
	feedMatchings     = "matchings"
	feedBookings      = "bookings"
	feedFollowups     = "followups"

	pushError = "error"
)

var (
	errUnknownFeed     = errors.New("unknown feed")
	errUnknownAction   = errors.New("unknown action")
	errMissingID       = errors.New("subscription id is required")
	errDuplicateID     = errors.New("subscription id is already in use")
	errTooManyFeeds    = errors.New("too many subscriptions")
	errMissingConvID   = errors.New("conversation_id is required")
	errConnectionSlow  = errors.New("client is too slow")
	errConnectionEnded = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsRequest кадр от клиента
type wsRequest struct {
	Action         string `json:"action"`
	Feed           string `json:"feed"`
	ConversationID string `json:"conversation_id"`
	ID             string `json:"id"`
}

// wsPush кадр от сервера: снимок ленты или ошибка подписки
type wsPush struct {
	Type string      `json:"type"`
	ID   string      `json:"id"`
	Data interface{} `json:"data"`
}

// wsClient одно WebSocket-соединение со своими подписками.
// Закрытие соединения отменяет все подписки.
type wsClient struct {
	h      *handler
	conn   *websocket.Conn
	userID string
	logger *zap.Logger

	egress chan wsPush
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*realtime.Subscription
}

func (h *handler) serveWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &wsClient{
		h:      h,
		conn:   conn,
		userID: currentUserID(c),
		logger: h.logger.With(zap.String("user_id", currentUserID(c))),
		egress: make(chan wsPush, sendBufSize),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*realtime.Subscription),
	}

	client.logger.Debug("WebSocket connected")

	go client.writeLoop()
	client.readLoop()

	return nil
}

func (c *wsClient) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req wsRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Debug("WebSocket closed by client")
			case errors.As(err, &ne) && ne.Timeout():
				c.logger.Debug("WebSocket timed out")
			default:
				c.logger.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}

		if err := c.handle(req); err != nil {
			c.push(wsPush{Type: pushError, ID: req.ID, Data: errorResponse{Error: wsErrorMessage(err)}})
		}
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// push ставит кадр в очередь; медленного клиента отключаем
func (c *wsClient) push(msg wsPush) {
	select {
	case <-c.ctx.Done():
	case c.egress <- msg:
	default:
		c.logger.Warn("Dropping slow WebSocket client", zap.Error(errConnectionSlow))
		c.cancel()
		_ = c.conn.Close()
	}
}

func (c *wsClient) handle(req wsRequest) error {
	switch req.Action {
	case actionSubscribe:
		return c.subscribe(req)
	case actionUnsubscribe:
		c.unsubscribe(req.ID)
		return nil
	default:
		return errUnknownAction
	}
}

func (c *wsClient) subscribe(req wsRequest) error {
	if req.ID == "" {
		return errMissingID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return errConnectionEnded
	}
	if _, exists := c.subs[req.ID]; exists {
		return errDuplicateID
	}
	if len(c.subs) >= maxSubscribes {
		return errTooManyFeeds
	}

	sub, err := c.open(req)
	if err != nil {
		return err
	}

	c.subs[req.ID] = sub
	return nil
}

// open создаёт подписку на ленту; каждый снимок уходит клиенту кадром {type, id, data}
func (c *wsClient) open(req wsRequest) (*realtime.Subscription, error) {
	onError := func(err error) {
		c.push(wsPush{Type: pushError, ID: req.ID, Data: errorResponse{Error: wsErrorMessage(err)}})
	}
	sendAs := func(data interface{}) {
		c.push(wsPush{Type: req.Feed, ID: req.ID, Data: data})
	}

	switch req.Feed {
	case feedConversations:
		return c.h.chat.SubscribeToConversations(c.ctx, c.userID,
			func(list []*model.Conversation) { sendAs(list) }, onError), nil
	case feedMessages:
		if req.ConversationID == "" {
			return nil, errMissingConvID
		}
		return c.h.chat.SubscribeToMessages(c.ctx, req.ConversationID, c.userID,
			func(list []*model.Message) { sendAs(list) }, onError)
	case feedMatchings:
		return c.h.matchings.Subscribe(c.ctx, c.userID,
			func(list []*model.Matching) { sendAs(list) }, onError), nil
	case feedBookings:
		return c.h.bookings.Subscribe(c.ctx, c.userID,
			func(list []*model.Booking) { sendAs(list) }, onError), nil
	case feedFollowups:
		return c.h.matchings.SubscribeFollowups(c.ctx, c.userID,
			func(m *model.Matching) { sendAs(m) }), nil
	default:
		return nil, errUnknownFeed
	}
}

func (c *wsClient) unsubscribe(id string) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()

	if ok {
		sub.Cancel()
	}
}

func (c *wsClient) close() {
	c.cancel()

	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*realtime.Subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}

	c.logger.Debug("WebSocket disconnected", zap.Int("subscriptions", len(subs)))
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, errUnknownFeed), errors.Is(err, errUnknownAction),
		errors.Is(err, errMissingID), errors.Is(err, errDuplicateID),
		errors.Is(err, errTooManyFeeds), errors.Is(err, errMissingConvID):
		return err.Error()
	default:
		return ErrorMessage(err)
	}
}
