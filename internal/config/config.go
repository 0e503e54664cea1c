package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	ImageStoreLocal = "local"
	ImageStoreGCS   = "gcs"
	ImageStoreS3    = "s3"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	SQLitePath             string `env:"SQLITE_PATH" envDefault:"strata.db"`

	ImageStore         string `env:"IMAGE_STORE" envDefault:"local"`
	UploadDir          string `env:"UPLOAD_DIR" envDefault:"./public/uploads/marketplace"`
	UploadURLPrefix    string `env:"UPLOAD_URL_PREFIX" envDefault:"/uploads/marketplace"`
	StorageBucket      string `env:"STORAGE_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	S3Region           string `env:"S3_REGION" envDefault:"us-east-1"`
	MaxUploadBytes     int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	AdminToken        string   `env:"ADMIN_TOKEN"`
	FirebaseProjectID string   `env:"FIREBASE_PROJECT_ID"`
	AdminEmails       []string `env:"ADMIN_EMAILS" envSeparator:","`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL:
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return fmt.Errorf("config: DB_USER, DB_NAME and DB_HOST (or INSTANCE_CONNECTION_NAME) are required for mysql")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.ImageStore {
	case ImageStoreLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("config: UPLOAD_DIR is required for the local image store")
		}
	case ImageStoreGCS, ImageStoreS3:
		if c.StorageBucket == "" {
			return fmt.Errorf("config: STORAGE_BUCKET is required for the %s image store", c.ImageStore)
		}
	default:
		return fmt.Errorf("config: unsupported IMAGE_STORE %q", c.ImageStore)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	c.UploadURLPrefix = "/" + strings.Trim(c.UploadURLPrefix, "/")
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
