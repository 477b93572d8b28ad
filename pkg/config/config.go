package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig detém a configuração da aplicação.
type AppConfig struct {
	Port                string
	AppVersion          string
	JWTSecret           string
	JWTTokenLifespan    time.Duration
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string
	EnableDBSSL         bool
	MigrationsPath      string
	Environment         string // "development", "staging", "production"
	LogLevel            string
	FrontendBaseURL     string
	AWSRegion           string
	AWSSESEmailSender   string
	FileStorageProvider string // "s3" ou "gcs"
	AWSS3Bucket         string
	GCSProjectID        string
	GCSBucketName       string
	GCSCredentialsFile  string
	EscalationRulesFile string
	EncryptionKeyHex    string
	// FeatureToggles guarda as variáveis FEATURE_* sem o prefixo (ex: FEATURE_AUTO_ESCALATION -> AUTO_ESCALATION).
	FeatureToggles map[string]bool
}

var Cfg AppConfig

// LoadConfig carrega a configuração da aplicação de variáveis de ambiente.
func LoadConfig() {
	// Carregar .env para desenvolvimento local, ignorar erro se não existir (para produção)
	if err := godotenv.Load(); err != nil {
		log.Println("Aviso: Arquivo .env não encontrado ou erro ao carregar:", err)
	}

	Cfg.Port = getEnv("PORT", "8080")
	Cfg.AppVersion = getEnv("APP_VERSION", "dev")
	Cfg.JWTSecret = getEnv("JWT_SECRET_KEY", "")
	Cfg.JWTTokenLifespan = time.Duration(getEnvAsInt("JWT_TOKEN_LIFESPAN_HOURS", 24)) * time.Hour

	Cfg.DBHost = getEnv("DB_HOST", "localhost")
	Cfg.DBPort = getEnv("DB_PORT", "5432")
	Cfg.DBUser = getEnv("DB_USER", "fsms_user")
	Cfg.DBPassword = getEnv("DB_PASSWORD", "fsms_pass")
	Cfg.DBName = getEnv("DB_NAME", "fsms_db")
	Cfg.EnableDBSSL = getEnvAsBool("DB_SSL_ENABLE", false)
	Cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "file://internal/database/migrations")

	Cfg.Environment = getEnv("ENVIRONMENT", "development")
	Cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	Cfg.FrontendBaseURL = getEnv("FRONTEND_BASE_URL", "")

	Cfg.AWSRegion = getEnv("AWS_REGION", "")
	Cfg.AWSSESEmailSender = getEnv("AWS_SES_EMAIL_SENDER", "")

	Cfg.FileStorageProvider = getEnv("FILE_STORAGE_PROVIDER", "")
	Cfg.AWSS3Bucket = getEnv("AWS_S3_BUCKET", "")
	Cfg.GCSProjectID = getEnv("GCS_PROJECT_ID", "")
	Cfg.GCSBucketName = getEnv("GCS_BUCKET_NAME", "")
	Cfg.GCSCredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")

	Cfg.EscalationRulesFile = getEnv("ESCALATION_RULES_FILE", "")
	Cfg.EncryptionKeyHex = getEnv("ENCRYPTION_KEY_HEX", "")

	Cfg.FeatureToggles = loadFeatureToggles(os.Environ())

	log.Printf("Configuração carregada para o ambiente: %s", Cfg.Environment)
}

// DSN monta a string de conexão do Postgres a partir da configuração carregada.
func (c AppConfig) DSN() string {
	sslMode := "disable"
	if c.EnableDBSSL {
		sslMode = "require"
	}
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser +
		" password=" + c.DBPassword + " dbname=" + c.DBName + " sslmode=" + sslMode + " TimeZone=UTC"
}

// DatabaseURL é a forma URL usada pelo golang-migrate.
func (c AppConfig) DatabaseURL() string {
	sslMode := "disable"
	if c.EnableDBSSL {
		sslMode = "require"
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + sslMode
}

// loadFeatureToggles lê variáveis no formato FEATURE_<NOME>=<bool>.
func loadFeatureToggles(environ []string) map[string]bool {
	toggles := make(map[string]bool)
	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(key, "FEATURE_") {
			continue
		}
		name := strings.TrimPrefix(key, "FEATURE_")
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Aviso: feature toggle '%s' com valor inválido '%s', considerando desabilitada.", key, value)
			enabled = false
		}
		toggles[name] = enabled
	}
	return toggles
}

// getEnv retorna o valor de uma variável de ambiente ou um valor default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsBool retorna o valor booleano de uma variável de ambiente ou um valor default.
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Aviso: Variável de ambiente booleana '%s' com valor inválido '%s', usando default: %t. Erro: %v", key, valStr, defaultValue, err)
		return defaultValue
	}
	return valBool
}

func getEnvAsInt(key string, defaultValue int) int {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue
	}
	valInt, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Aviso: Variável de ambiente inteira '%s' com valor inválido '%s', usando default: %d.", key, valStr, defaultValue)
		return defaultValue
	}
	return valInt
}

func init() {
	LoadConfig() // Carregar config automaticamente na inicialização do pacote
}
