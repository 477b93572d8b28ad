package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// L é o logger global estruturado (zap.Logger).
	L *zap.Logger
	// S é o logger global sugarizado, para logging estilo printf.
	S *zap.SugaredLogger
)

// Init inicializa os loggers globais L e S.
// logLevel pode ser "debug", "info", "warn", "error", "dpanic", "panic", "fatal".
// env "development" usa o encoder de console; qualquer outro valor usa a config de produção (JSON).
func Init(logLevel string, env string) {
	var cfg zap.Config
	if strings.ToLower(env) == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]interface{}{"service": "fsms-backend"}
	}

	level, err := zapcore.ParseLevel(strings.ToLower(logLevel))
	invalidLevel := err != nil
	if invalidLevel {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		// Logging é fundamental; sem ele não há como operar.
		panic(fmt.Sprintf("Falha ao construir o logger zap: %v", err))
	}

	L = logger
	S = logger.Sugar()
	zap.ReplaceGlobals(L)

	if invalidLevel {
		L.Warn("Nível de log inválido fornecido, usando 'info' como padrão.", zap.String("invalid_level", logLevel))
	}
}

// Sync descarrega logs em buffer. Chamar com defer em main().
func Sync() {
	if L != nil {
		_ = L.Sync()
	}
}

// init configura um logger padrão inicial. Pode ser re-inicializado explicitamente em main.go.
func init() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	appEnv := os.Getenv("ENVIRONMENT")
	if appEnv == "" {
		appEnv = "development"
	}
	Init(logLevel, appEnv)
}
