package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"8000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username  string `env:"USERNAME" envDefault:"admin"`
		Password  string `env:"PASSWORD,required"`
		FirstName string `env:"FIRST_NAME" envDefault:"Museum"`
		LastName  string `env:"LAST_NAME" envDefault:"Administrator"`
		Email     string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Secret            string `env:"SECRET,required"`
		AccessExpiration  int    `env:"ACCESS_EXPIRATION" envDefault:"300"`    // 5 minutes
		RefreshExpiration int    `env:"REFRESH_EXPIRATION" envDefault:"86400"` // 1 day
	} `envPrefix:"JWT_"`
	Session struct {
		CookieName string `env:"COOKIE_NAME" envDefault:"museum_sessionid"`
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 days
	} `envPrefix:"SESSION_"`
	App struct {
		Timezone string `env:"TIMEZONE" envDefault:"Europe/Zagreb"`
	} `envPrefix:"APP_"`
	CORS struct {
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	} `envPrefix:"CORS_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"guard12345"`
		} `envPrefix:"USER_"`
		FixturePath string `env:"FIXTURE_PATH" envDefault:"./internal/seed/data/demo.yaml"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN" envDefault:"museum.example"`
		Reception  string `env:"RECEPTION"`
		SMTP       struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST" envDefault:"localhost"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD"`
		DB                  int    `env:"DB" envDefault:"0"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	RateLimit struct {
		Enabled           bool `env:"ENABLED" envDefault:"true"`
		Login             int  `env:"LOGIN" envDefault:"10"`
		LoginWindow       int  `env:"LOGIN_WINDOW" envDefault:"900"` // 15 minutes
		Assign            int  `env:"ASSIGN" envDefault:"10"`
		AssignWindow      int  `env:"ASSIGN_WINDOW" envDefault:"60"`
		Cancel            int  `env:"CANCEL" envDefault:"10"`
		CancelWindow      int  `env:"CANCEL_WINDOW" envDefault:"60"`
		BulkCancel        int  `env:"BULK_CANCEL" envDefault:"5"`
		BulkCancelWindow  int  `env:"BULK_CANCEL_WINDOW" envDefault:"3600"`
		SwapRequest       int  `env:"SWAP_REQUEST" envDefault:"5"`
		SwapRequestWindow int  `env:"SWAP_REQUEST_WINDOW" envDefault:"600"`
		AcceptSwap        int  `env:"ACCEPT_SWAP" envDefault:"10"`
		AcceptSwapWindow  int  `env:"ACCEPT_SWAP_WINDOW" envDefault:"60"`
	} `envPrefix:"RATE_LIMIT_"`
	Cache struct {
		Backend   string `env:"BACKEND" envDefault:"redis"` // redis | memory
		KeyPrefix string `env:"KEY_PREFIX" envDefault:"museum:"`
	} `envPrefix:"CACHE_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// first error only keeps the startup log readable
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// Location falls back to UTC when the configured zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
