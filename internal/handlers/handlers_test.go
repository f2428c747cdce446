package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"luckyplay/internal/auth"
	"luckyplay/internal/config"
	"luckyplay/internal/play"
	"luckyplay/internal/rewards"
	"luckyplay/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPlayer struct {
	res       *play.Result
	err       error
	got       play.Request
	boundShop string
	bound     bool
}

func (p *stubPlayer) Play(ctx context.Context, req play.Request) (*play.Result, error) {
	p.got = req
	p.boundShop, _, p.bound = rewards.FromContext(ctx)
	return p.res, p.err
}

func newTestServer(t *testing.T, player Player) (*Server, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		db.Close()
	})
	srv := &Server{
		Cfg:         config.Config{AdminToken: "admin-key", SessionTTL: time.Hour},
		DB:          db,
		Redis:       rdb,
		Store:       store.New(db),
		Credentials: &store.Credentials{DB: db},
		Failures:    &store.Failures{DB: db},
		Engine:      player,
		Hub:         NewHub(),
		JWTSecret:   []byte("test-secret"),
	}
	return srv, mock, mr
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestPlaySuccess(t *testing.T) {
	player := &stubPlayer{res: &play.Result{Outcome: play.Outcome{PrizeID: 11, PrizeName: "10% off", IsWinner: true, RewardCode: "WIN1"}}}
	srv, _, _ := newTestServer(t, player)

	w, body := doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{
		"campaignId": 1, "mode": "order", "orderNumber": "#1001",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	if body["success"] != true || body["prizeId"] != float64(11) || body["rewardCode"] != "WIN1" {
		t.Fatalf("body %v", body)
	}
	if player.got.CampaignID != 1 || player.got.OrderNumber != "#1001" || player.got.Mode != "order" {
		t.Fatalf("request %+v", player.got)
	}
	if player.bound {
		t.Fatal("anonymous request bound a reward client")
	}
}

func TestPlayDuplicate(t *testing.T) {
	player := &stubPlayer{res: &play.Result{Duplicate: true, Outcome: play.Outcome{PrizeID: 12, PrizeName: "Try again"}}}
	srv, _, _ := newTestServer(t, player)

	w, body := doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{"campaignId": 1, "email": "a@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if body["success"] != false || body["hasPlayed"] != true || body["prizeId"] != float64(12) {
		t.Fatalf("body %v", body)
	}
	prev, _ := body["previousEntry"].(map[string]any)
	if prev["prizeName"] != "Try again" || prev["isWinner"] != false {
		t.Fatalf("previousEntry %v", prev)
	}
	if _, ok := prev["rewardCode"]; ok {
		t.Fatal("losing entry should not carry a code")
	}
}

func TestPlayErrorMapping(t *testing.T) {
	tests := []struct {
		kind   play.Kind
		status int
	}{
		{play.KindValidation, http.StatusBadRequest},
		{play.KindIneligible, http.StatusBadRequest},
		{play.KindNotFound, http.StatusNotFound},
		{play.KindExhausted, http.StatusConflict},
		{play.KindStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			player := &stubPlayer{err: &play.Error{Kind: tt.kind, Message: "msg for " + string(tt.kind)}}
			srv, _, _ := newTestServer(t, player)
			w, body := doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{"campaignId": 1}, nil)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d", w.Code, tt.status)
			}
			if body["success"] != false || body["error"] != "msg for "+string(tt.kind) {
				t.Fatalf("body %v", body)
			}
		})
	}

	srv, _, _ := newTestServer(t, &stubPlayer{err: errors.New("boom")})
	w, _ := doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{"campaignId": 1}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unclassified error status %d", w.Code)
	}

	w, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/play", "{not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad body status %d", w.Code)
	}
}

func TestPlayBindsSessionRewardClient(t *testing.T) {
	player := &stubPlayer{res: &play.Result{Outcome: play.Outcome{PrizeID: 1}}}
	srv, _, _ := newTestServer(t, player)
	ctx := context.Background()
	if err := srv.saveSession(ctx, "demo.myshop.test", "sid-1", "shpat_123", time.Hour); err != nil {
		t.Fatal(err)
	}
	token, err := auth.GenerateToken(srv.JWTSecret, "demo.myshop.test", "sid-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	w, _ := doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{"campaignId": 1}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !player.bound || player.boundShop != "demo.myshop.test" {
		t.Fatalf("bound=%v shop=%q", player.bound, player.boundShop)
	}

	// A stale session id falls back to anonymous play.
	stale, _ := auth.GenerateToken(srv.JWTSecret, "demo.myshop.test", "sid-0", time.Hour)
	w, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/play", map[string]any{"campaignId": 1}, map[string]string{"Authorization": "Bearer " + stale})
	if w.Code != http.StatusOK || player.bound {
		t.Fatalf("stale session: status %d bound=%v", w.Code, player.bound)
	}
}

func TestCreateSession(t *testing.T) {
	srv, mock, mr := newTestServer(t, &stubPlayer{})
	router := srv.Router()

	w, _ := doJSON(t, router, http.MethodPost, "/api/admin/session", map[string]any{"shop": "demo.myshop.test", "accessToken": "tok"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/admin/session", map[string]any{"shop": " "}, map[string]string{"X-Admin-Token": "admin-key"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty shop status %d", w.Code)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shop_credentials")).WithArgs("demo.myshop.test", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	w, body := doJSON(t, router, http.MethodPost, "/api/admin/session",
		map[string]any{"shop": "Demo.MyShop.test", "accessToken": "tok"}, map[string]string{"X-Admin-Token": "admin-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	token, _ := body["token"].(string)
	claims, err := auth.ParseToken(srv.JWTSecret, token)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got := mr.HGet("session:shop:demo.myshop.test", "sid"); got != claims.SessionID {
		t.Fatalf("session sid %q, token sid %q", got, claims.SessionID)
	}
	if got := mr.HGet("session:shop:demo.myshop.test", "token"); got != "tok" {
		t.Fatalf("session token %q", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAdminRequired(t *testing.T) {
	srv, mock, _ := newTestServer(t, &stubPlayer{})
	router := srv.Router()

	w, _ := doJSON(t, router, http.MethodGet, "/api/admin/reward_failures", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status %d", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodGet, "/api/admin/reward_failures", nil, map[string]string{"Authorization": "Bearer junk"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("junk token status %d", w.Code)
	}

	ctx := context.Background()
	if err := srv.saveSession(ctx, "demo.myshop.test", "sid-1", "tok", time.Hour); err != nil {
		t.Fatal(err)
	}
	token, _ := auth.GenerateToken(srv.JWTSecret, "demo.myshop.test", "sid-1", time.Hour)
	cols := []string{"id", "entry_id", "campaign_id", "shop", "reward_code", "prize_kind", "prize_value", "gift_variant_id",
		"expires_at", "reason", "attempts", "status", "external_id", "next_attempt_at", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM reward_failures WHERE shop=? AND status=?")).WithArgs("demo.myshop.test", "pending", 100).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "e1", int64(1), "demo.myshop.test", "WIN1", "free_shipping", "0", "",
			nil, "timed out", 1, "pending", nil, nil, time.Now()))

	w, body := doJSON(t, router, http.MethodGet, "/api/admin/reward_failures", nil, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items %v", body["items"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetMetrics(t *testing.T) {
	srv, mock, _ := newTestServer(t, &stubPlayer{})
	router := srv.Router()
	hdr := map[string]string{"X-Admin-Token": "admin-key"}

	w, _ := doJSON(t, router, http.MethodGet, "/api/admin/metrics", nil, hdr)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing id status %d", w.Code)
	}

	cols := []string{"id", "shop", "name", "mode", "active", "start_at", "end_at", "min_order_amount", "allowed_order_status",
		"max_plays_per_customer", "require_name", "require_phone", "total_plays", "total_wins", "total_orders", "created_at", "updated_at"}
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns WHERE id=?")).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows(cols).AddRow(int64(3), "demo.myshop.test", "Spring", "order", true, nil, nil, "0", "paid",
			nil, false, false, int64(20), int64(5), int64(20), now, now))

	w, body := doJSON(t, router, http.MethodGet, "/api/admin/metrics?campaignId=3", nil, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	if body["totalPlays"] != float64(20) || body["totalWins"] != float64(5) {
		t.Fatalf("body %v", body)
	}
}

func TestHubRoutesByShop(t *testing.T) {
	h := NewHub()
	a := &WSClient{Shop: "a.myshop.test", SendCh: make(chan []byte, 4)}
	b := &WSClient{Shop: "b.myshop.test", SendCh: make(chan []byte, 4)}
	op := &WSClient{Shop: "", SendCh: make(chan []byte, 4)}
	h.Register(a)
	h.Register(b)
	h.Register(op)

	h.Publish("play", map[string]any{"shop": "A.myshop.test", "campaign_id": 1})
	if len(a.SendCh) != 1 || len(b.SendCh) != 0 || len(op.SendCh) != 1 {
		t.Fatalf("a=%d b=%d op=%d", len(a.SendCh), len(b.SendCh), len(op.SendCh))
	}
	var msg WSMessage
	if err := json.Unmarshal(<-a.SendCh, &msg); err != nil || msg.Type != "play" {
		t.Fatalf("message %+v, %v", msg, err)
	}

	h.Unregister(b)
	if h.OnlineCount() != 2 {
		t.Fatalf("online %d", h.OnlineCount())
	}
}
