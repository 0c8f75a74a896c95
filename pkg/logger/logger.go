package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Init builds the process-wide logger. env "dev" selects the console encoder;
// anything else ("uat", "prod") emits JSON. Every entry carries the service name.
func Init(service, env, level string) {
	l, err := New(service, env, level)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	mu.Lock()
	log = l
	sugar = l.Sugar()
	mu.Unlock()

	l.Info("logger.initialized",
		zap.String("env", env),
		zap.String("level", level),
	)
}

// New returns a standalone logger configured like Init without touching the global.
func New(service, env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}
	if service != "" {
		l = l.With(zap.String("service", service))
	}
	return l, nil
}

// L returns the base structured logger, initializing a dev logger on first use.
func L() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init("unknown", "dev", "info")
		return L()
	}
	return l
}

// S returns the sugared logger.
func S() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s == nil {
		Init("unknown", "dev", "info")
		return S()
	}
	return s
}

// Named returns a child of L tagged with component, e.g. Named("sync").
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Sync flushes any buffered logs (defer this in main()).
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}
