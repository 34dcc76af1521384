package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/handlers"
	"github.com/Dosada05/court-scheduler/middleware"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/repositories"
	"github.com/Dosada05/court-scheduler/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

func intPtr(v int) *int { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv    *httptest.Server
	svc    services.SchedulerService
	key    models.BracketKey
	courts []int // ids in position order
}

// newTestEnv serves /ws backed by the in-memory store. Three courts exist and
// the queue is [1 2 3]; match 3 shares players with 1 and 2.
func newTestEnv(t *testing.T, jwtSecret string) *testEnv {
	t.Helper()
	logger := discardLogger()

	store := repositories.NewMemoryStore()
	bracket := models.Bracket{ID: 2, TournamentID: 1, Name: "Groups", Kind: models.BracketKindGroup}
	store.PutBracket(bracket, []*models.Match{
		{ID: 1, Pool: "A", Round: 1, RRRound: 1, Order: 1, P1ID: intPtr(1), P2ID: intPtr(2)},
		{ID: 2, Pool: "A", Round: 1, RRRound: 1, Order: 2, P1ID: intPtr(3), P2ID: intPtr(4)},
		{ID: 3, Pool: "A", Round: 1, RRRound: 2, Order: 1, P1ID: intPtr(1), P2ID: intPtr(3)},
	})
	for i := 1; i <= 4; i++ {
		store.PutRegistration(i, fmt.Sprintf("Player %d", i))
	}

	hub := brackets.NewHub(nil, logger, brackets.DefaultHubConfig())
	svc := services.NewSchedulerService(store, store, hub, nil, nil, nil, logger,
		services.SchedulerConfig{IdempotencyCacheSize: 64})
	hub.SetHandler(services.NewRealtimeHandler(svc))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	count := 3
	up, err := svc.UpsertCourts(context.Background(), bracket.Key(), models.CourtSpec{Count: &count})
	if err != nil {
		t.Fatalf("UpsertCourts: %v", err)
	}
	if _, err := svc.BuildGroupsQueue(context.Background(), bracket.Key()); err != nil {
		t.Fatalf("BuildGroupsQueue: %v", err)
	}
	courts := make([]int, 0, len(up.Snapshot.Courts))
	for _, c := range up.Snapshot.Courts {
		courts = append(courts, c.ID)
	}

	auth := middleware.NewAuthenticator(jwtSecret, logger)
	ws := handlers.NewWebSocketHandler(hub, auth, []string{"*"}, logger)
	r := chi.NewRouter()
	r.With(auth.Authenticate).Get("/ws", ws.ServeWs)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testEnv{srv: srv, svc: svc, key: bracket.Key(), courts: courts}
}

func (e *testEnv) url(query string) string {
	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func (e *testEnv) dial(t *testing.T, query string, opts Options) *Viewer {
	t.Helper()
	opts.Logger = discardLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := Dial(ctx, e.url(query), opts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitForNotice(t *testing.T, v *Viewer, message string) NoticeEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, n := range v.Notices() {
			if n.Message == message {
				return n
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("notice %q never arrived, have %+v", message, v.Notices())
	return NoticeEntry{}
}

func TestViewerEndToEnd(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := testContext(t)

	operator := env.dial(t, "tournament_id=1&bracket_id=2", Options{})
	watcher := env.dial(t, "", Options{})
	if err := watcher.Join(env.key); err != nil {
		t.Fatalf("Join: %v", err)
	}

	initial, err := watcher.WaitForVersion(ctx, env.key, 1)
	if err != nil {
		t.Fatalf("initial state: %v", err)
	}
	if len(initial.Courts) != 3 {
		t.Fatalf("expected 3 courts, got %d", len(initial.Courts))
	}
	if _, err := operator.WaitForVersion(ctx, env.key, initial.Version); err != nil {
		t.Fatalf("operator initial state: %v", err)
	}

	res, err := operator.AssignNextWithID(ctx, env.key, env.courts[0], "req-1")
	if err != nil {
		t.Fatalf("AssignNext: %v", err)
	}
	if !res.Assigned || res.MatchID == nil || *res.MatchID != 1 || res.RequestID != "req-1" {
		t.Fatalf("unexpected result: %+v", res)
	}

	snap, err := watcher.WaitForVersion(ctx, env.key, initial.Version+1)
	if err != nil {
		t.Fatalf("state after assign: %v", err)
	}
	if c := snap.Courts[0]; c.Status != models.CourtStatusAssigned || c.MatchID == nil || *c.MatchID != 1 {
		t.Fatalf("court 1 not assigned in broadcast state: %+v", c)
	}
	n := waitForNotice(t, watcher, "match 1 assigned to Court 1")
	if n.Room != env.key.String() || n.Level != models.NoticeInfo {
		t.Fatalf("unexpected notice: %+v", n)
	}

	retry, err := operator.AssignNextWithID(ctx, env.key, env.courts[0], "req-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if diff := cmp.Diff(res, retry); diff != "" {
		t.Fatalf("retry result differs (-first +retry):\n%s", diff)
	}

	second, err := operator.AssignNext(ctx, env.key, env.courts[1])
	if err != nil || !second.Assigned || *second.MatchID != 2 {
		t.Fatalf("second court: %+v, %v", second, err)
	}

	// match 3 needs players 1 and 3, both on court
	none, err := operator.AssignNext(ctx, env.key, env.courts[2])
	if err != nil {
		t.Fatalf("third court: %v", err)
	}
	if none.Assigned || none.MatchID != nil {
		t.Fatalf("expected no eligible match, got %+v", none)
	}
	warn := waitForNotice(t, watcher, "no eligible match for Court 3")
	if warn.Level != models.NoticeWarn {
		t.Fatalf("expected warn level, got %s", warn.Level)
	}

	_, err = operator.AssignNext(ctx, env.key, env.courts[0])
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != services.CodeConflict {
		t.Fatalf("expected conflict error for busy court, got %v", err)
	}
}

func TestViewerRequiresOrganizerToken(t *testing.T) {
	const secret = "viewer-test-secret"
	env := newTestEnv(t, secret)
	ctx := testContext(t)

	anonymous := env.dial(t, "tournament_id=1&bracket_id=2", Options{})
	if _, err := anonymous.WaitForVersion(ctx, env.key, 1); err != nil {
		t.Fatalf("anonymous viewers still get state: %v", err)
	}
	_, err := anonymous.AssignNext(ctx, env.key, env.courts[0])
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != "forbidden" {
		t.Fatalf("expected forbidden, got %v", err)
	}

	token, err := middleware.IssueToken(secret, 1, middleware.RoleOrganizer, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	organizer := env.dial(t, "tournament_id=1&bracket_id=2", Options{Token: token})
	res, err := organizer.AssignNext(ctx, env.key, env.courts[0])
	if err != nil || !res.Assigned {
		t.Fatalf("organizer assign: %+v, %v", res, err)
	}
}

func TestViewerIgnoresStaleSnapshots(t *testing.T) {
	v := &Viewer{snapshots: make(map[models.BracketKey]*models.Snapshot), changed: make(chan struct{})}
	key := models.BracketKey{TournamentID: 1, BracketID: 2}

	v.storeSnapshot(&models.Snapshot{TournamentID: 1, BracketID: 2, Version: 5})
	v.storeSnapshot(&models.Snapshot{TournamentID: 1, BracketID: 2, Version: 3})

	snap, ok := v.Snapshot(key)
	if !ok || snap.Version != 5 {
		t.Fatalf("expected version 5 to stay, got %+v", snap)
	}
}

func TestNoticeLogKeepsMostRecent(t *testing.T) {
	log := NewNoticeLog(0)
	for i := 1; i <= 25; i++ {
		log.Add(NoticeEntry{Room: "r", Notice: models.Notice{Message: fmt.Sprintf("n%d", i)}})
	}
	entries := log.Entries()
	if len(entries) != DefaultNoticeCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultNoticeCapacity, len(entries))
	}
	if entries[0].Message != "n6" || entries[len(entries)-1].Message != "n25" {
		t.Fatalf("unexpected window: first %s last %s", entries[0].Message, entries[len(entries)-1].Message)
	}
}
