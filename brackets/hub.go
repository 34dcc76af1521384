package brackets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Типы сообщений realtime-канала.
const (
	MessageJoin         = "join"
	MessageLeave        = "leave"
	MessageRequestState = "requestState"
	MessageAssignNext   = "assignNext"

	MessageState  = "state"
	MessageNotify = "notify"
	MessageResult = "result"
	MessageError  = "error"
)

// WebSocketMessage is every server->client frame.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// ClientMessage is every client->server frame.
type ClientMessage struct {
	Type         string `json:"type"`
	TournamentID int    `json:"tournament_id"`
	BracketID    int    `json:"bracket_id"`
	CourtID      int    `json:"court_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

func (m ClientMessage) Key() models.BracketKey {
	return models.BracketKey{TournamentID: m.TournamentID, BracketID: m.BracketID}
}

// ErrorPayload is sent to the requester only.
type ErrorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// CommandHandler executes the requests viewers send over the socket.
type CommandHandler interface {
	Snapshot(ctx context.Context, key models.BracketKey) (*models.Snapshot, error)
	AssignNext(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error)
	// ErrorCode maps an error to the stable code sent to clients.
	ErrorCode(err error) string
}

// HubObserver receives connection level counters.
type HubObserver interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageDropped(room string)
}

type noopObserver struct{}

func (noopObserver) ConnectionOpened()     {}
func (noopObserver) ConnectionClosed()     {}
func (noopObserver) MessageDropped(string) {}

type HubConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	CommandTimeout time.Duration
}

func DefaultHubConfig() HubConfig {
	pongWait := 60 * time.Second
	return HubConfig{
		SendBuffer:     256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
		CommandTimeout: 10 * time.Second,
	}
}

var (
	ErrNotJoined      = errors.New("connection has not joined a bracket")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrForbidden      = errors.New("connection is not allowed to modify the schedule")
)

type Client struct {
	ID        string
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	CanModify bool

	mu       sync.Mutex
	room     *models.BracketKey
	isClosed bool
	// последняя отправленная версия снимка по каждой сетке
	versions map[models.BracketKey]int64
}

// Room returns the bracket the client is currently joined to.
func (c *Client) Room() (models.BracketKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return models.BracketKey{}, false
	}
	return *c.room, true
}

func (c *Client) setRoom(key *models.BracketKey) {
	c.mu.Lock()
	c.room = key
	c.mu.Unlock()
}

// enqueue reports false when the client is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// enqueueState sends a snapshot frame unless a newer snapshot of the same
// bracket was already sent, so state frames never go back in version on one
// connection. A skipped frame is not a failure.
func (c *Client) enqueueState(key models.BracketKey, version int64, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	if last, ok := c.versions[key]; ok && version < last {
		return true
	}
	select {
	case c.Send <- data:
		if c.versions == nil {
			c.versions = make(map[models.BracketKey]int64)
		}
		c.versions[key] = version
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

type membership struct {
	client *Client
	key    models.BracketKey
}

// Hub owns the per-bracket rooms. Room membership is changed only by Run;
// broadcasts read it under the read lock and fan out freely. baseCtx is set
// once in NewHub and cancelled when Run returns.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[models.BracketKey]map[*Client]bool

	handler  CommandHandler
	observer HubObserver
	logger   *slog.Logger
	cfg      HubConfig

	baseCtx context.Context
	stop    context.CancelFunc
}

func NewHub(handler CommandHandler, logger *slog.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		clients:    make(map[*Client]bool),
		rooms:      make(map[models.BracketKey]map[*Client]bool),
		handler:    handler,
		observer:   noopObserver{},
		logger:     logger.With(slog.String("component", "realtime_hub")),
		cfg:        cfg,
		baseCtx:    baseCtx,
		stop:       stop,
	}
}

// SetHandler wires the command handler after construction; the handler and
// the hub depend on each other.
func (h *Hub) SetHandler(handler CommandHandler) {
	h.handler = handler
}

func (h *Hub) SetObserver(o HubObserver) {
	if o == nil {
		o = noopObserver{}
	}
	h.observer = o
}

// Run processes membership changes until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
			}
			h.clients = make(map[*Client]bool)
			h.rooms = make(map[models.BracketKey]map[*Client]bool)
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.observer.ConnectionOpened()
			h.logger.Debug("client registered", slog.String("client_id", c.ID))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.removeFromRoomLocked(c)
				c.close()
				h.observer.ConnectionClosed()
				h.logger.Debug("client unregistered", slog.String("client_id", c.ID))
			}
			h.mu.Unlock()

		case m := <-h.join:
			h.mu.Lock()
			if _, ok := h.clients[m.client]; !ok {
				h.mu.Unlock()
				continue
			}
			h.removeFromRoomLocked(m.client)
			if h.rooms[m.key] == nil {
				h.rooms[m.key] = make(map[*Client]bool)
			}
			h.rooms[m.key][m.client] = true
			key := m.key
			m.client.setRoom(&key)
			size := len(h.rooms[m.key])
			h.mu.Unlock()
			h.logger.Info("client joined room",
				slog.String("client_id", m.client.ID),
				slog.String("room", m.key.String()),
				slog.Int("clients_in_room", size))
			go h.sendState(m.client, m.key, "")

		case m := <-h.leave:
			h.mu.Lock()
			if cur, ok := m.client.Room(); ok && cur == m.key {
				h.removeFromRoomLocked(m.client)
			}
			h.mu.Unlock()
		}
	}
}

// removeFromRoomLocked must be called with h.mu held.
func (h *Hub) removeFromRoomLocked(c *Client) {
	key, ok := c.Room()
	if !ok {
		return
	}
	if members, exists := h.rooms[key]; exists {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
			h.logger.Debug("room closed", slog.String("room", key.String()))
		}
	}
	c.setRoom(nil)
}

// RoomSize returns the number of clients joined to a bracket.
func (h *Hub) RoomSize(key models.BracketKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

// BroadcastToRoom sends a message to every client joined to the bracket.
// Clients whose buffer is full are disconnected instead of blocking the room.
func (h *Hub) BroadcastToRoom(key models.BracketKey, msgType string, payload interface{}) {
	data, err := json.Marshal(WebSocketMessage{Type: msgType, Payload: payload, RoomID: key.String()})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", slog.String("room", key.String()), slog.Any("error", err))
		return
	}
	h.fanOut(key, func(c *Client) bool { return c.enqueue(data) })
}

func (h *Hub) fanOut(key models.BracketKey, deliver func(c *Client) bool) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[key]))
	for c := range h.rooms[key] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !deliver(c) {
			h.observer.MessageDropped(key.String())
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", c.ID), slog.String("room", key.String()))
			go h.Unregister(c)
		}
	}
}

// PublishState broadcasts a committed snapshot to its bracket room.
func (h *Hub) PublishState(_ context.Context, snap *models.Snapshot) {
	key := snap.Key()
	data, err := json.Marshal(WebSocketMessage{Type: MessageState, Payload: snap, RoomID: key.String()})
	if err != nil {
		h.logger.Error("failed to marshal state", slog.String("room", key.String()), slog.Any("error", err))
		return
	}
	h.fanOut(key, func(c *Client) bool { return c.enqueueState(key, snap.Version, data) })
}

// PublishNotice broadcasts an ephemeral notice to a bracket room.
func (h *Hub) PublishNotice(_ context.Context, key models.BracketKey, notice models.Notice) {
	h.BroadcastToRoom(key, MessageNotify, notice)
}

// NewClient wraps an upgraded connection and registers it with the hub. A
// client created after the hub stopped comes back closed.
func (h *Hub) NewClient(conn *websocket.Conn, canModify bool) *Client {
	c := &Client{
		ID:        uuid.NewString(),
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, h.cfg.SendBuffer),
		CanModify: canModify,
	}
	select {
	case h.register <- c:
	case <-h.baseCtx.Done():
		c.close()
	}
	return c
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.baseCtx.Done():
	}
}

// Join subscribes the client to a bracket, leaving any previous one.
func (h *Hub) Join(c *Client, key models.BracketKey) {
	select {
	case h.join <- membership{client: c, key: key}:
	case <-h.baseCtx.Done():
	}
}

func (h *Hub) Leave(c *Client, key models.BracketKey) {
	select {
	case h.leave <- membership{client: c, key: key}:
	case <-h.baseCtx.Done():
	}
}

func (h *Hub) sendTo(c *Client, msgType string, payload interface{}) {
	data, err := json.Marshal(WebSocketMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal direct message", slog.String("client_id", c.ID), slog.Any("error", err))
		return
	}
	if !c.enqueue(data) {
		h.observer.MessageDropped("direct")
	}
}

func (h *Hub) sendError(c *Client, requestID string, err error) {
	code := "internal"
	switch {
	case errors.Is(err, ErrNotJoined), errors.Is(err, ErrUnknownMessage):
		code = "validation"
	case errors.Is(err, ErrForbidden):
		code = "forbidden"
	case h.handler != nil:
		code = h.handler.ErrorCode(err)
	}
	h.sendTo(c, MessageError, ErrorPayload{RequestID: requestID, Code: code, Message: err.Error()})
}

func (h *Hub) sendState(c *Client, key models.BracketKey, requestID string) {
	ctx, cancel := context.WithTimeout(h.baseCtx, h.cfg.CommandTimeout)
	defer cancel()

	snap, err := h.handler.Snapshot(ctx, key)
	if err != nil {
		h.logger.Warn("failed to load state for client",
			slog.String("client_id", c.ID), slog.String("room", key.String()), slog.Any("error", err))
		h.sendError(c, requestID, err)
		return
	}
	data, err := json.Marshal(WebSocketMessage{Type: MessageState, Payload: snap, RoomID: key.String()})
	if err != nil {
		h.logger.Error("failed to marshal state", slog.String("client_id", c.ID), slog.Any("error", err))
		return
	}
	// снимок мог устареть, пока грузился: более новый уже ушел через PublishState
	if !c.enqueueState(key, snap.Version, data) {
		h.observer.MessageDropped("direct")
	}
}

// handleMessage dispatches one client frame. Mutations are answered to the
// requester with a result or an error frame; the committed state reaches the
// whole room through PublishState.
func (h *Hub) handleMessage(c *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(c, "", ErrUnknownMessage)
		return
	}

	switch msg.Type {
	case MessageJoin:
		if !msg.Key().Valid() {
			h.sendError(c, msg.RequestID, ErrNotJoined)
			return
		}
		h.Join(c, msg.Key())

	case MessageLeave:
		key, ok := h.resolveKey(c, msg)
		if !ok {
			h.sendError(c, msg.RequestID, ErrNotJoined)
			return
		}
		h.Leave(c, key)

	case MessageRequestState:
		key, ok := h.resolveKey(c, msg)
		if !ok {
			h.sendError(c, msg.RequestID, ErrNotJoined)
			return
		}
		h.sendState(c, key, msg.RequestID)

	case MessageAssignNext:
		key, ok := h.resolveKey(c, msg)
		if !ok {
			h.sendError(c, msg.RequestID, ErrNotJoined)
			return
		}
		if !c.CanModify {
			h.sendError(c, msg.RequestID, ErrForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(h.baseCtx, h.cfg.CommandTimeout)
		res, err := h.handler.AssignNext(ctx, key, msg.CourtID, msg.RequestID)
		cancel()
		if err != nil {
			h.logger.Info("assignNext rejected",
				slog.String("client_id", c.ID),
				slog.String("room", key.String()),
				slog.Int("court_id", msg.CourtID),
				slog.String("request_id", msg.RequestID),
				slog.Any("error", err))
			h.sendError(c, msg.RequestID, err)
			return
		}
		h.sendTo(c, MessageResult, res)

	default:
		h.sendError(c, msg.RequestID, ErrUnknownMessage)
	}
}

// resolveKey uses the ids of the message, or the joined room when omitted.
func (h *Hub) resolveKey(c *Client, msg ClientMessage) (models.BracketKey, bool) {
	if msg.Key().Valid() {
		return msg.Key(), true
	}
	return c.Room()
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	cfg := c.Hub.cfg
	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("unexpected websocket close", slog.String("client_id", c.ID), slog.Any("error", err))
			}
			return
		}
		c.Hub.handleMessage(c, message)
	}
}

func (c *Client) WritePump() {
	cfg := c.Hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("write failed", slog.String("client_id", c.ID), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
