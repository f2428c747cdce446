package handlers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"

	"luckyplay/internal/auth"
	"luckyplay/internal/cache"
	"luckyplay/internal/config"
	"luckyplay/internal/notify"
	"luckyplay/internal/play"
	"luckyplay/internal/rewards"
	"luckyplay/internal/store"
)

// Player runs one play. *play.Engine is the production implementation.
type Player interface {
	Play(ctx context.Context, req play.Request) (*play.Result, error)
}

type Server struct {
	Cfg         config.Config
	DB          *sql.DB
	Redis       *redis.Client
	Store       *store.Store
	Credentials *store.Credentials
	Failures    *store.Failures
	Engine      Player
	Rewards     *rewards.Provider
	RewardHTTP  rewards.HTTPConfig
	Counters    *cache.Counters
	SMS         *notify.SubmailClient
	Hub         *Hub
	JWTSecret   []byte
}

func NewServer(cfg config.Config, db *sql.DB, rdb *redis.Client) *Server {
	httpCfg := rewards.HTTPConfig{
		BaseURL:     cfg.RewardAPIBaseURL,
		APIVersion:  cfg.RewardAPIVersion,
		TokenHeader: cfg.RewardTokenHeader,
	}
	creds := &store.Credentials{DB: db}
	srv := &Server{
		Cfg:         cfg,
		DB:          db,
		Redis:       rdb,
		Store:       store.New(db),
		Credentials: creds,
		Failures:    &store.Failures{DB: db, Lease: cfg.RewardTimeout * 4},
		Rewards:     rewards.NewProvider(creds, httpCfg),
		RewardHTTP:  httpCfg,
		SMS:         notify.NewSubmailClient(cfg.SubmailAppID, cfg.SubmailAppKey, cfg.SubmailProjectID),
		Hub:         NewHub(),
		JWTSecret:   []byte(cfg.JWTSecret),
	}
	if rdb != nil {
		srv.Counters = cache.NewCounters(rdb)
	}
	srv.Engine = srv.newEngine()
	return srv
}

func (s *Server) newEngine() *play.Engine {
	issuer := play.NewRewardIssuer(s.Rewards)
	issuer.CodePrefix = s.Cfg.RewardCodePrefix
	issuer.Expiry = s.Cfg.RewardExpiry
	issuer.UsageLimit = s.Cfg.RewardUsageLimit
	issuer.Timeout = s.Cfg.RewardTimeout

	verifier := &play.Verifier{Orders: &store.Orders{DB: s.DB}, Entries: s.Store}
	eng := play.NewEngine(s.Store, verifier, issuer, s.Store)
	eng.Feed = s.Hub
	if s.Redis != nil {
		outcomes := cache.NewOutcomes(s.Redis, s.Cfg.OutcomeCacheTTL)
		verifier.Cache = outcomes
		eng.Cache = outcomes
		eng.Meter = s.Counters
	}
	if s.SMS.Configured() {
		eng.Notifier = s.SMS
	}
	return eng
}

// Start launches the background flushers tied to ctx.
func (s *Server) Start(ctx context.Context) {
	s.Counters.Start(ctx)
}

// SignSession persists the shop's access token, opens a Redis session holding
// it and returns a JWT for that session.
func (s *Server) SignSession(ctx context.Context, shop, accessToken string) (string, time.Time, error) {
	shop = normalizeShop(shop)
	if err := s.Credentials.Save(ctx, shop, accessToken); err != nil {
		return "", time.Time{}, err
	}
	sessionID := newSessionID()
	ttl := s.Cfg.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	if err := s.saveSession(ctx, shop, sessionID, accessToken, ttl); err != nil {
		return "", time.Time{}, err
	}
	token, err := auth.GenerateToken(s.JWTSecret, shop, sessionID, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(ttl), nil
}

func (s *Server) saveSession(ctx context.Context, shop, sessionID, accessToken string, ttl time.Duration) error {
	if s.Redis == nil {
		return errors.New("redis not configured")
	}
	key := sessionKey(shop)
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "sid", sessionID, "token", accessToken)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// validateSession returns the access token bound to a live session.
func (s *Server) validateSession(ctx context.Context, shop, sessionID string) (string, error) {
	if s.Redis == nil {
		return "", errInvalidSession
	}
	vals, err := s.Redis.HMGet(ctx, sessionKey(shop), "sid", "token").Result()
	if err != nil {
		return "", err
	}
	sid, _ := vals[0].(string)
	token, _ := vals[1].(string)
	if sid == "" || sid != sessionID {
		return "", errInvalidSession
	}
	return token, nil
}

// authenticate resolves a bearer JWT into its claims and the session's
// access token.
func (s *Server) authenticate(ctx context.Context, token string) (*auth.Claims, string, error) {
	claims, err := auth.ParseToken(s.JWTSecret, token)
	if err != nil {
		return nil, "", errInvalidSession
	}
	accessToken, err := s.validateSession(ctx, claims.Shop, claims.SessionID)
	if err != nil {
		if !errors.Is(err, errInvalidSession) {
			logger.Warningf("session lookup shop=%s: %v", claims.Shop, err)
		}
		return nil, "", err
	}
	return claims, accessToken, nil
}
