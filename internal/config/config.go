package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	AuthBaseURL   string `env:"AUTH_BASE_URL"`
	AuthAPIKey    string `env:"AUTH_API_KEY"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required"`

	SessionProbeTimeoutSeconds int `env:"SESSION_PROBE_TIMEOUT_SECONDS" envDefault:"5"`

	VoteWeight      int64  `env:"VOTE_WEIGHT" envDefault:"10"`
	VoteTimezone    string `env:"VOTE_TIMEZONE" envDefault:"Asia/Tokyo"`
	VoteMessageMax  int    `env:"VOTE_MESSAGE_MAX" envDefault:"500"`
	OTPTTLMinutes   int    `env:"OTP_TTL_MINUTES" envDefault:"10"`
	OTPMaxPerWindow int    `env:"OTP_MAX_PER_WINDOW" envDefault:"3"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
