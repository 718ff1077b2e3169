package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración de ambos servicios.
type Config struct {
	HTTPPort string `env:"HTTP_PORT"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"skywatch"`
	JWTTTLMinutes int    `env:"JWT_TTL_MINUTES" envDefault:"60"`

	GoogleClientID          string `env:"GOOGLE_CLIENT_ID"`
	UsernameCaseInsensitive bool   `env:"USERNAME_CASE_INSENSITIVE" envDefault:"true"`

	Argon2MemoryKB    uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Iterations  uint32 `env:"ARGON2_ITERATIONS" envDefault:"2"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	OpenWeatherAPIKey      string `env:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL     string `env:"OPENWEATHER_BASE_URL" envDefault:"https://api.openweathermap.org/data/2.5"`
	OpenWeatherGeoBaseURL  string `env:"OPENWEATHER_GEO_BASE_URL" envDefault:"https://api.openweathermap.org/geo/1.0"`
	WeatherCacheTTLSeconds int    `env:"WEATHER_CACHE_TTL_SECONDS" envDefault:"600"`
	WeatherCacheEntries    int    `env:"WEATHER_CACHE_ENTRIES" envDefault:"1024"`

	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`
}

const (
	DefaultAccountsPort = "8080"
	DefaultDataPort     = "8081"
)

// LoadConfig carga la configuración del servicio de cuentas desde variables de entorno.
func LoadConfig() (*Config, error) {
	return LoadConfigFor(DefaultAccountsPort)
}

// LoadConfigFor permite que cada binario use su propio puerto si HTTP_PORT no está definido.
func LoadConfigFor(defaultPort string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = defaultPort
	}
	return &cfg, nil
}

// IsDevelopment indica si el proceso corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c *Config) WeatherCacheTTL() time.Duration {
	return time.Duration(c.WeatherCacheTTLSeconds) * time.Second
}
