package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"throttle-gateway/middleware/throttle"
	"throttle-gateway/middleware/throttle/domain"
	"throttle-gateway/middleware/throttle/infra"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := readConfig()
	if err != nil {
		logger.Fatal("config inválida", zap.Error(err))
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Fatal("UPSTREAM_URL inválida", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("erro no proxy", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, cleanup, err := buildThresholdSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("fonte de thresholds indisponível", zap.Error(err))
	}
	defer cleanup()

	registry := infra.NewRegistry(source, infra.WithDefaultThreshold(cfg.defaultRPS))

	var statsStore domain.StatsStore
	if cfg.statsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			logger.Fatal("redis de stats fora do ar", zap.Error(err))
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
		)
	}

	h := http.Handler(proxy)
	h = throttle.ConcurrencyMiddleware(throttle.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	if cfg.throttleEnabled {
		h = throttle.Middleware(throttle.Options{
			Registry:           registry,
			Stats:              statsStore,
			RejectStatus:       http.StatusTooManyRequests,
			RetryAfter:         cfg.retryAfter,
			AddThrottleHeaders: cfg.addHeaders,
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway no ar",
		zap.String("listen", cfg.listenAddr),
		zap.String("upstream", target.String()),
		zap.Bool("throttle", cfg.throttleEnabled),
		zap.String("thresholds_source", cfg.thresholdsSource),
		zap.Int("default_rps", cfg.defaultRPS),
		zap.Int("concurrency_max", cfg.concurrencyMax),
		zap.Bool("stats", cfg.statsEnabled),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", zap.Error(err))
	}
}

// buildThresholdSource monta a fonte escolhida em THRESHOLDS_SOURCE e, quando
// for o caso, dispara o refresher dela. cleanup fecha as conexões da fonte.
func buildThresholdSource(ctx context.Context, cfg config, logger *zap.Logger) (domain.ThresholdSource, func(), error) {
	noop := func() {}

	switch cfg.thresholdsSource {
	case "static":
		// sem fonte externa: toda rota usa o default do registry
		return infra.NewMemoryThresholds(nil), noop, nil

	case "file":
		src, err := infra.NewFileThresholds(cfg.thresholdsFile, infra.WithFileThresholdsLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.thresholdsRedisAddr,
			Password: cfg.thresholdsRedisPassword,
			DB:       cfg.thresholdsRedisDB,
		})
		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			_ = rdb.Close()
			return nil, noop, err
		}
		src := infra.NewRedisThresholds(
			rdb,
			infra.WithThresholdsHashKey(cfg.thresholdsRedisKey),
			infra.WithRefreshEvery(cfg.thresholdsRefresh),
			infra.WithRedisThresholdsLogger(logger),
		)
		src.StartRefresher(ctx)
		return src, func() { _ = rdb.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.thresholdsMongoURI))
		if err != nil {
			return nil, noop, err
		}
		col := client.Database(cfg.thresholdsMongoDB).Collection(cfg.thresholdsMongoCol)
		src := infra.NewMongoThresholds(
			col,
			infra.WithMongoRefreshEvery(cfg.thresholdsRefresh),
			infra.WithMongoThresholdsLogger(logger),
		)
		src.StartRefresher(ctx)
		cleanup := func() {
			disconnectCtx, cancelDisc := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelDisc()
			_ = client.Disconnect(disconnectCtx)
		}
		return src, cleanup, nil
	}

	return nil, noop, errors.New("THRESHOLDS_SOURCE must be static, file, redis or mongo")
}

type config struct {
	listenAddr  string
	upstreamURL string

	throttleEnabled bool
	defaultRPS      int
	retryAfter      time.Duration
	addHeaders      bool

	thresholdsSource  string
	thresholdsRefresh time.Duration
	thresholdsFile    string

	thresholdsRedisAddr     string
	thresholdsRedisPassword string
	thresholdsRedisDB       int
	thresholdsRedisKey      string

	thresholdsMongoURI string
	thresholdsMongoDB  string
	thresholdsMongoCol string

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled       bool
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.throttleEnabled = getenvBoolDefault("THROTTLE_ENABLED", true)
	cfg.defaultRPS = getenvIntDefault("THROTTLE_DEFAULT_RPS", infra.DefaultThreshold)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_THROTTLE_HEADERS", false)

	cfg.thresholdsSource = strings.ToLower(getenvDefault("THRESHOLDS_SOURCE", "static"))
	cfg.thresholdsRefresh = getenvDurationDefault("THRESHOLDS_REFRESH", 10*time.Second)
	cfg.thresholdsFile = os.Getenv("THRESHOLDS_FILE")

	cfg.thresholdsRedisAddr = getenvDefault("THRESHOLDS_REDIS_ADDR", "")
	cfg.thresholdsRedisPassword = os.Getenv("THRESHOLDS_REDIS_PASSWORD")
	cfg.thresholdsRedisDB = getenvIntDefault("THRESHOLDS_REDIS_DB", 0)
	cfg.thresholdsRedisKey = getenvDefault("THRESHOLDS_REDIS_KEY", "throttle:thresholds")

	cfg.thresholdsMongoURI = os.Getenv("THRESHOLDS_MONGO_URI")
	cfg.thresholdsMongoDB = getenvDefault("THRESHOLDS_MONGO_DB", "throttle")
	cfg.thresholdsMongoCol = getenvDefault("THRESHOLDS_MONGO_COLLECTION", "route_thresholds")

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "throttle:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.defaultRPS <= 0 {
		return config{}, errors.New("THROTTLE_DEFAULT_RPS must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	switch cfg.thresholdsSource {
	case "static":
	case "file":
		if strings.TrimSpace(cfg.thresholdsFile) == "" {
			return config{}, errors.New("THRESHOLDS_FILE is required when THRESHOLDS_SOURCE=file")
		}
	case "redis":
		if strings.TrimSpace(cfg.thresholdsRedisAddr) == "" {
			return config{}, errors.New("THRESHOLDS_REDIS_ADDR is required when THRESHOLDS_SOURCE=redis")
		}
	case "mongo":
		if strings.TrimSpace(cfg.thresholdsMongoURI) == "" {
			return config{}, errors.New("THRESHOLDS_MONGO_URI is required when THRESHOLDS_SOURCE=mongo")
		}
	default:
		return config{}, errors.New("THRESHOLDS_SOURCE must be static, file, redis or mongo")
	}
	if cfg.statsEnabled && strings.TrimSpace(cfg.statsRedisAddr) == "" {
		return config{}, errors.New("STATS_REDIS_ADDR is required when STATS_ENABLED=true")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
