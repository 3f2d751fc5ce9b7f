// Command authd serves the authentication flow API for the dialect hub web
// client. It wires the flow engine to the hosted identity provider, Redis
// backed throttles, an audit log, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
	"github.com/abjadnlp2026-anon/arabic-dialect-hub/httpapi"
	"github.com/abjadnlp2026-anon/arabic-dialect-hub/idp"
	promexport "github.com/abjadnlp2026-anon/arabic-dialect-hub/metrics/export/prometheus"
)

type serverConfig struct {
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	IDPBaseURL        string `mapstructure:"IDP_BASE_URL"`
	IDPPublishableKey string `mapstructure:"IDP_PUBLISHABLE_KEY"`

	FlowTokenSecret string `mapstructure:"FLOW_TOKEN_SECRET"`
	CookieSecure    bool   `mapstructure:"COOKIE_SECURE"`

	ThrottleEnabled bool   `mapstructure:"THROTTLE_ENABLED"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`

	AuditLog       string `mapstructure:"AUDIT_LOG"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
}

func loadConfig() (*serverConfig, error) {
	viper.SetDefault("LISTEN_ADDR", ":8085")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("IDP_BASE_URL", "")
	viper.SetDefault("IDP_PUBLISHABLE_KEY", "")
	viper.SetDefault("FLOW_TOKEN_SECRET", "")
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("THROTTLE_ENABLED", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("AUDIT_LOG", "")
	viper.SetDefault("METRICS_ENABLED", true)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg serverConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.FlowTokenSecret == "" {
		logger.Fatal("FLOW_TOKEN_SECRET is required")
	}

	provider := idp.New(idp.Config{
		BaseURL:        cfg.IDPBaseURL,
		PublishableKey: cfg.IDPPublishableKey,
	})

	flowCfg := authflow.DefaultConfig()
	flowCfg.Throttle.Enabled = cfg.ThrottleEnabled
	flowCfg.Audit.Enabled = cfg.AuditLog != ""

	builder := authflow.New().
		WithConfig(flowCfg).
		WithProvider(provider).
		WithNavigator(authflow.NavigatorFunc(func(_ context.Context, route string) {
			logger.Info("client navigation", zap.String("route", route))
		})).
		WithMetricsEnabled(cfg.MetricsEnabled).
		WithLatencyHistograms(cfg.MetricsEnabled)

	if cfg.ThrottleEnabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		builder = builder.WithRedis(rdb)
	}

	var auditFile *os.File
	if cfg.AuditLog != "" {
		auditFile, err = os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			logger.Fatal("failed to open audit log", zap.Error(err))
		}
		defer auditFile.Close()
		builder = builder.WithAuditSink(authflow.NewJSONWriterSink(auditFile))
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("failed to build flow engine", zap.Error(err))
	}
	defer engine.Close()

	api, err := httpapi.New(engine, httpapi.Config{
		TokenSecret:  []byte(cfg.FlowTokenSecret),
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		logger.Fatal("failed to build HTTP API", zap.Error(err))
	}
	defer api.Close()

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", api.Router()))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promexport.NewPrometheusExporter(engine).Handler())
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("authd listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Bool("throttle", cfg.ThrottleEnabled),
			zap.Bool("metrics", cfg.MetricsEnabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
