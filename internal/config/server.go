package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`
	AuthSecret  string `env:"AUTH_SECRET,required,notEmpty"`

	ClassifierBaseURL string        `env:"CLASSIFIER_BASE_URL,required,notEmpty"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"5s"`
	// Accepted landmark vector lengths: 63 for one-hand capture, 126 for two.
	VectorLengths []int `env:"VECTOR_LENGTHS" envDefault:"63,126"`

	Alphabet        []string      `env:"ALPHABET" envDefault:"A,B,C"`
	ItemSeconds     int           `env:"ITEM_SECONDS" envDefault:"20"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	FeedbackDelay   time.Duration `env:"FEEDBACK_DELAY" envDefault:"1500ms"`
	SessionTTLHours int           `env:"SESSION_TTL_HOURS" envDefault:"2"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
