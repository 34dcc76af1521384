package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/middleware"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/gorilla/websocket"
)

var errInvalidAutoJoin = errors.New("tournament_id and bracket_id must both be positive integers")

type WebSocketHandler struct {
	hub      *brackets.Hub
	auth     *middleware.Authenticator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler разрешает подключения только с allowedOrigins;
// "*" отключает проверку (для разработки).
func NewWebSocketHandler(hub *brackets.Hub, auth *middleware.Authenticator, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// не браузер
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWs godoc
// @Summary Realtime-канал расписания кортов
// @Tags realtime
// @Description Websocket. Необязательные tournament_id и bracket_id сразу подписывают соединение на сетку. Токен принимается в Authorization или access_token.
// @Param tournament_id query int false "Tournament ID"
// @Param bracket_id query int false "Bracket ID"
// @Param access_token query string false "JWT"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]string
// @Router /ws [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	key, autoJoin, err := autoJoinKey(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	canModify := h.auth.CanModify(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		h.logger.Warn("failed to upgrade connection", slog.Any("error", err))
		return
	}

	client := h.hub.NewClient(conn, canModify)
	h.logger.Debug("websocket connection upgraded",
		slog.String("client_id", client.ID),
		slog.Bool("can_modify", canModify))

	if autoJoin {
		h.hub.Join(client, key)
	}

	go client.WritePump()
	go client.ReadPump()
}

func autoJoinKey(r *http.Request) (models.BracketKey, bool, error) {
	q := r.URL.Query()
	tStr, bStr := q.Get("tournament_id"), q.Get("bracket_id")
	if tStr == "" && bStr == "" {
		return models.BracketKey{}, false, nil
	}
	tid, err1 := strconv.Atoi(tStr)
	bid, err2 := strconv.Atoi(bStr)
	key := models.BracketKey{TournamentID: tid, BracketID: bid}
	if err1 != nil || err2 != nil || !key.Valid() {
		return models.BracketKey{}, false, errInvalidAutoJoin
	}
	return key, true, nil
}
