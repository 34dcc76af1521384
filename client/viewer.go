// Package client is a Go viewer for the realtime court channel. It keeps the
// latest snapshot of every bracket it has seen and a short notice log.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("viewer connection closed")

// RemoteError is an error frame answered to one of our requests.
type RemoteError struct {
	RequestID string
	Code      string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Options struct {
	// Token is sent as a bearer token.
	Token          string
	NoticeCapacity int
	WriteTimeout   time.Duration
	Logger         *slog.Logger
}

type reply struct {
	result *models.AssignResult
	err    error
}

type Viewer struct {
	conn   *websocket.Conn
	opts   Options
	logger *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	snapshots map[models.BracketKey]*models.Snapshot
	changed   chan struct{}
	pending   map[string]chan reply
	readErr   error

	notices *NoticeLog
	done    chan struct{}
}

// Dial connects to a /ws endpoint, e.g. "ws://host:8080/ws?tournament_id=1&bracket_id=2".
func Dial(ctx context.Context, url string, opts Options) (*Viewer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	v := &Viewer{
		conn:      conn,
		opts:      opts,
		logger:    opts.Logger.With(slog.String("component", "viewer")),
		snapshots: make(map[models.BracketKey]*models.Snapshot),
		changed:   make(chan struct{}),
		pending:   make(map[string]chan reply),
		notices:   NewNoticeLog(opts.NoticeCapacity),
		done:      make(chan struct{}),
	}
	go v.readLoop()
	return v, nil
}

func (v *Viewer) Join(key models.BracketKey) error {
	return v.write(brackets.ClientMessage{Type: brackets.MessageJoin, TournamentID: key.TournamentID, BracketID: key.BracketID})
}

func (v *Viewer) Leave(key models.BracketKey) error {
	return v.write(brackets.ClientMessage{Type: brackets.MessageLeave, TournamentID: key.TournamentID, BracketID: key.BracketID})
}

func (v *Viewer) RequestState(key models.BracketKey) error {
	return v.write(brackets.ClientMessage{Type: brackets.MessageRequestState, TournamentID: key.TournamentID, BracketID: key.BracketID})
}

// AssignNext asks the server to fill a court and waits for the answer.
func (v *Viewer) AssignNext(ctx context.Context, key models.BracketKey, courtID int) (*models.AssignResult, error) {
	return v.AssignNextWithID(ctx, key, courtID, uuid.NewString())
}

// AssignNextWithID reuses requestID, which makes a retry idempotent.
func (v *Viewer) AssignNextWithID(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error) {
	ch := make(chan reply, 1)
	v.mu.Lock()
	if v.readErr != nil {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	v.pending[requestID] = ch
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		delete(v.pending, requestID)
		v.mu.Unlock()
	}()

	err := v.write(brackets.ClientMessage{
		Type:         brackets.MessageAssignNext,
		TournamentID: key.TournamentID,
		BracketID:    key.BracketID,
		CourtID:      courtID,
		RequestID:    requestID,
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-ch:
		return r.result, r.err
	case <-v.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot returns the latest snapshot seen for the bracket.
func (v *Viewer) Snapshot(key models.BracketKey) (*models.Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap, ok := v.snapshots[key]
	return snap, ok
}

// WaitForVersion blocks until a snapshot of at least version arrives.
func (v *Viewer) WaitForVersion(ctx context.Context, key models.BracketKey, version int64) (*models.Snapshot, error) {
	for {
		v.mu.Lock()
		snap, ok := v.snapshots[key]
		changed := v.changed
		v.mu.Unlock()
		if ok && snap.Version >= version {
			return snap, nil
		}

		select {
		case <-changed:
		case <-v.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (v *Viewer) Notices() []NoticeEntry {
	return v.notices.Entries()
}

// Done is closed when the connection ends.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

func (v *Viewer) Close() error {
	v.writeMu.Lock()
	_ = v.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	v.writeMu.Unlock()
	err := v.conn.Close()
	<-v.done
	return err
}

func (v *Viewer) write(msg brackets.ClientMessage) error {
	select {
	case <-v.done:
		return ErrClosed
	default:
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	v.conn.SetWriteDeadline(time.Now().Add(v.opts.WriteTimeout))
	if err := v.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	RoomID  string          `json:"room_id"`
}

func (v *Viewer) readLoop() {
	defer close(v.done)
	for {
		var msg inbound
		if err := v.conn.ReadJSON(&msg); err != nil {
			v.mu.Lock()
			v.readErr = err
			v.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				v.logger.Debug("viewer read loop ended", slog.Any("error", err))
			}
			return
		}
		if err := v.dispatch(msg); err != nil {
			v.logger.Warn("bad frame from server", slog.String("type", msg.Type), slog.Any("error", err))
		}
	}
}

func (v *Viewer) dispatch(msg inbound) error {
	switch msg.Type {
	case brackets.MessageState:
		var snap models.Snapshot
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			return err
		}
		v.storeSnapshot(&snap)

	case brackets.MessageNotify:
		var n models.Notice
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			return err
		}
		v.notices.Add(NoticeEntry{Room: msg.RoomID, Notice: n})

	case brackets.MessageResult:
		var res models.AssignResult
		if err := json.Unmarshal(msg.Payload, &res); err != nil {
			return err
		}
		v.resolve(res.RequestID, reply{result: &res})

	case brackets.MessageError:
		var p brackets.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		rerr := &RemoteError{RequestID: p.RequestID, Code: p.Code, Message: p.Message}
		if p.RequestID == "" || !v.resolve(p.RequestID, reply{err: rerr}) {
			v.logger.Warn("server reported an error", slog.String("code", p.Code), slog.String("message", p.Message))
		}

	default:
		return fmt.Errorf("unknown frame type %q", msg.Type)
	}
	return nil
}

// storeSnapshot keeps the newest version; older frames arriving late are ignored.
func (v *Viewer) storeSnapshot(snap *models.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.snapshots[snap.Key()]; ok && cur.Version > snap.Version {
		return
	}
	v.snapshots[snap.Key()] = snap
	close(v.changed)
	v.changed = make(chan struct{})
}

func (v *Viewer) resolve(requestID string, r reply) bool {
	v.mu.Lock()
	ch, ok := v.pending[requestID]
	v.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- r:
	default:
	}
	return true
}
