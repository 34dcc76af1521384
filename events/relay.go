package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	KindState  = "state"
	KindNotice = "notify"
)

var ErrBadSubject = errors.New("malformed relay subject")

// LocalPublisher fans a message out to the viewers connected to this
// instance. *brackets.Hub satisfies it.
type LocalPublisher interface {
	PublishState(ctx context.Context, snap *models.Snapshot)
	PublishNotice(ctx context.Context, key models.BracketKey, notice models.Notice)
}

type RelayConfig struct {
	URL           string
	SubjectPrefix string // e.g. "courts" -> courts.<tournament>.<bracket>.<kind>
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "courts",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Envelope is the message carried between instances.
type Envelope struct {
	Origin       string           `json:"origin"`
	Kind         string           `json:"kind"`
	TournamentID int              `json:"tournament_id"`
	BracketID    int              `json:"bracket_id"`
	Snapshot     *models.Snapshot `json:"snapshot,omitempty"`
	Notice       *models.Notice   `json:"notice,omitempty"`
}

func (e Envelope) Key() models.BracketKey {
	return models.BracketKey{TournamentID: e.TournamentID, BracketID: e.BracketID}
}

// Relay publishes committed state both to local rooms and to NATS, and
// replays messages from other instances into the local rooms.
type Relay struct {
	local   LocalPublisher
	nc      *nats.Conn
	sub     *nats.Subscription
	publish func(subject string, data []byte) error
	origin  string
	prefix  string
	logger  *slog.Logger
}

// NewRelay connects to NATS. Call Start to begin receiving.
func NewRelay(local LocalPublisher, cfg RelayConfig, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "relay"))

	opts := []nats.Option{
		nats.Name("court-scheduler"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", slog.Any("error", err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	r := newRelay(local, cfg.SubjectPrefix, logger)
	r.nc = nc
	r.publish = nc.Publish
	return r, nil
}

func newRelay(local LocalPublisher, prefix string, logger *slog.Logger) *Relay {
	if prefix == "" {
		prefix = "courts"
	}
	return &Relay{
		local:  local,
		origin: uuid.NewString(),
		prefix: prefix,
		logger: logger,
	}
}

// Start subscribes to every bracket subject under the prefix.
func (r *Relay) Start() error {
	sub, err := r.nc.Subscribe(r.prefix+".>", func(msg *nats.Msg) {
		r.deliver(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", r.prefix, err)
	}
	r.sub = sub
	r.logger.Info("relay started", slog.String("origin", r.origin), slog.String("subjects", r.prefix+".>"))
	return nil
}

// Close drains the subscription and the connection.
func (r *Relay) Close() {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.logger.Warn("unsubscribe failed", slog.Any("error", err))
		}
	}
	if r.nc != nil {
		if err := r.nc.Drain(); err != nil {
			r.logger.Warn("drain failed", slog.Any("error", err))
			r.nc.Close()
		}
	}
}

func (r *Relay) PublishState(ctx context.Context, snap *models.Snapshot) {
	r.local.PublishState(ctx, snap)
	key := snap.Key()
	r.send(KindState, key, Envelope{
		Origin:       r.origin,
		Kind:         KindState,
		TournamentID: key.TournamentID,
		BracketID:    key.BracketID,
		Snapshot:     snap,
	})
}

func (r *Relay) PublishNotice(ctx context.Context, key models.BracketKey, notice models.Notice) {
	r.local.PublishNotice(ctx, key, notice)
	r.send(KindNotice, key, Envelope{
		Origin:       r.origin,
		Kind:         KindNotice,
		TournamentID: key.TournamentID,
		BracketID:    key.BracketID,
		Notice:       &notice,
	})
}

// send never fails the caller: local viewers already have the message.
func (r *Relay) send(kind string, key models.BracketKey, env Envelope) {
	if r.publish == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		r.logger.Error("failed to marshal relay envelope", slog.Any("error", err))
		return
	}
	subject := Subject(r.prefix, key, kind)
	if err := r.publish(subject, data); err != nil {
		r.logger.Warn("relay publish failed", slog.String("subject", subject), slog.Any("error", err))
	}
}

func (r *Relay) deliver(subject string, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.Warn("dropping malformed relay message", slog.String("subject", subject), slog.Any("error", err))
		return
	}
	if env.Origin == r.origin {
		return
	}
	key, kind, err := ParseSubject(r.prefix, subject)
	if err != nil || key != env.Key() || kind != env.Kind {
		r.logger.Warn("relay subject does not match envelope", slog.String("subject", subject))
		return
	}

	ctx := context.Background()
	switch env.Kind {
	case KindState:
		if env.Snapshot == nil {
			return
		}
		r.local.PublishState(ctx, env.Snapshot)
	case KindNotice:
		if env.Notice == nil {
			return
		}
		r.local.PublishNotice(ctx, key, *env.Notice)
	}
}

func Subject(prefix string, key models.BracketKey, kind string) string {
	return fmt.Sprintf("%s.%d.%d.%s", prefix, key.TournamentID, key.BracketID, kind)
}

func ParseSubject(prefix, subject string) (models.BracketKey, string, error) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok {
		return models.BracketKey{}, "", ErrBadSubject
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return models.BracketKey{}, "", ErrBadSubject
	}
	tid, err1 := strconv.Atoi(parts[0])
	bid, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return models.BracketKey{}, "", ErrBadSubject
	}
	if parts[2] != KindState && parts[2] != KindNotice {
		return models.BracketKey{}, "", ErrBadSubject
	}
	return models.BracketKey{TournamentID: tid, BracketID: bid}, parts[2], nil
}
