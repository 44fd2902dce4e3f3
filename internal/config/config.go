package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Modos del normalizador
const (
	NormalizerModeRepair = "repair"
	NormalizerModeStrict = "strict"
)

// Config representa la configuración del servicio
type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Session    SessionConfig
	Support    SupportConfig
	Normalizer NormalizerConfig
	Logging    LoggingConfig
}

// ServerConfig representa la configuración del servidor HTTP
type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// BackendConfig representa la API del backend a la que se delegan los datos
type BackendConfig struct {
	URL     string
	Timeout time.Duration
	// BodyPreview es la cantidad de caracteres del cuerpo de error que se muestran al usuario
	BodyPreview int
}

// SessionConfig representa la verificación de la sesión
type SessionConfig struct {
	Secret     string
	CookieName string
}

// SupportConfig representa los valores fijos del alta de solicitudes
type SupportConfig struct {
	InitialState       string
	TechnicianID       int
	DefaultDescription string
}

// NormalizerConfig representa la política de reparación de respuestas
type NormalizerConfig struct {
	Mode            string
	PlaceholderMail string
}

// LoggingConfig representa la configuración de logging
type LoggingConfig struct {
	Level  string
	Format string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// El archivo .env es opcional
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Backend: BackendConfig{
			URL:         getEnv("BACKEND_URL", "http://localhost:8081"),
			Timeout:     getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
			BodyPreview: getEnvAsInt("BACKEND_BODY_PREVIEW", 200),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			CookieName: getEnv("SESSION_COOKIE", "session"),
		},
		Support: SupportConfig{
			InitialState:       getEnv("SUPPORT_INITIAL_STATE", "Enviado"),
			TechnicianID:       getEnvAsInt("SUPPORT_TECHNICIAN_ID", 1),
			DefaultDescription: getEnv("SUPPORT_DEFAULT_DESCRIPTION", "Solicitud creada desde el portal web"),
		},
		Normalizer: NormalizerConfig{
			Mode:            strings.ToLower(getEnv("NORMALIZER_MODE", NormalizerModeRepair)),
			PlaceholderMail: getEnv("NORMALIZER_PLACEHOLDER_MAIL", "user@example.com"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate verifica los valores obligatorios
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	switch c.Normalizer.Mode {
	case NormalizerModeRepair, NormalizerModeStrict:
	default:
		return fmt.Errorf("NORMALIZER_MODE must be %q or %q, got %q", NormalizerModeRepair, NormalizerModeStrict, c.Normalizer.Mode)
	}
	if c.Support.TechnicianID <= 0 {
		return fmt.Errorf("SUPPORT_TECHNICIAN_ID must be positive")
	}
	return nil
}

// getEnv obtiene una variable de entorno o retorna un valor por defecto
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtiene una variable de entorno como entero
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration obtiene una variable de entorno como duración
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// IsDevelopment retorna true si el entorno es de desarrollo
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsStrict retorna true si las reparaciones del normalizador deben rechazarse
func (c *Config) IsStrict() bool {
	return c.Normalizer.Mode == NormalizerModeStrict
}
