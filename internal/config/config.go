package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DBHost     string `env:"DB_HOST,required=true"`
	DBPort     int    `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,required=true"`
	DBPassword string `env:"DB_PASSWORD,required=true"`
	DBName     string `env:"DB_NAME,required=true"`
	DBSSLMode  string `env:"DB_SSLMODE,default=require"`

	RedisURL string `env:"REDIS_URL,required=true"`

	SMTPHost               string `env:"SMTP_HOST,required=true"`
	SMTPPort               int    `env:"SMTP_PORT,default=587"`
	SMTPUser               string `env:"SMTP_USER,required=true"`
	SMTPPassword           string `env:"SMTP_PASSWORD,required=true"`
	MailSenderAddress      string `env:"MAIL_SENDER_ADDRESS"`
	MailSenderName         string `env:"MAIL_SENDER_NAME,default=Deadline Reminder"`
	MailInsecureSkipVerify bool   `env:"MAIL_INSECURE_SKIP_VERIFY,default=false"`
	MailSendTimeoutSec     int    `env:"MAIL_SEND_TIMEOUT_SEC,default=15"`
	MailRatePerSec         int    `env:"MAIL_RATE_PER_SEC,default=10"`

	APIPort         int    `env:"API_PORT,default=8080"`
	TickIntervalSec int    `env:"TICK_INTERVAL_SEC,default=60"`
	ScanLimit       int    `env:"SCAN_LIMIT,default=100"`
	Timezone        string `env:"TIMEZONE,default=Asia/Bangkok"`
	DatePrecision   string `env:"DATE_PRECISION,default=DATE"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSec) * time.Second
}

func (c *Config) MailSendTimeout() time.Duration {
	return time.Duration(c.MailSendTimeoutSec) * time.Second
}
