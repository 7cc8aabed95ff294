package configuration

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "https://api.clockify.me/api/v1"
	DefaultRateLimitDelay = 0.15
	DefaultMaxRetries     = 3
)

var ErrInvalidConfig = errors.New("invalid configuration")

func LoadEnv(envFiles []string) (int, error) {
	exists := make([]bool, len(envFiles))
	for i, file := range envFiles {
		if fs.FileExists(file) {
			exists[i] = true
		}
	}

	existingFiles := make([]string, 0, len(envFiles))
	for i, file := range envFiles {
		if exists[i] {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type APIOptions struct {
	BaseURL string `yaml:"base_url" env:"CLOCKIFY_BASE_URL" validate:"required,url"`
	// RateLimitDelay is the pause before every request, in seconds.
	RateLimitDelay float64       `yaml:"rate_limit_delay" env:"CLOCKIFY_RATE_LIMIT_DELAY" validate:"gte=0"`
	MaxRetries     int           `yaml:"max_retries" env:"CLOCKIFY_MAX_RETRIES" validate:"gte=1"`
	Timeout        time.Duration `yaml:"timeout" env:"CLOCKIFY_TIMEOUT" validate:"gte=0"`
}

func (o APIOptions) Delay() time.Duration {
	return time.Duration(o.RateLimitDelay * float64(time.Second))
}

type WorkspaceOptions struct {
	FallbackManagerEmail string `yaml:"fallback_manager_email" env:"SYNC_FALLBACK_MANAGER_EMAIL" validate:"omitempty,email"`
	FallbackGroupName    string `yaml:"fallback_group_name" env:"SYNC_FALLBACK_GROUP_NAME" validate:"required"`
}

type LogOptions struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=silent error warn info debug"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=text json"`
}

type JournalOptions struct {
	Dir    string `yaml:"dir" env:"SYNC_JOURNAL_DIR"`
	Format string `yaml:"format" env:"SYNC_JOURNAL_FORMAT" validate:"oneof=csv xlsx"`
}

type MetricsOptions struct {
	Textfile       string `yaml:"textfile" env:"SYNC_METRICS_TEXTFILE"`
	PushgatewayURL string `yaml:"pushgateway_url" env:"SYNC_PUSHGATEWAY_URL" validate:"omitempty,url"`
	Job            string `yaml:"job" env:"SYNC_METRICS_JOB"`
}

type TracingOptions struct {
	Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Insecure    bool   `yaml:"insecure" env:"OTEL_EXPORTER_INSECURE"`
}

// Credentials are never read from the YAML file.
type Credentials struct {
	APIKey      string `yaml:"-" env:"CLOCKIFY_API_KEY"`
	WorkspaceID string `yaml:"-" env:"CLOCKIFY_WORKSPACE_ID"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.Wrap(ErrInvalidConfig, "api key is required")
	}
	if strings.TrimSpace(c.WorkspaceID) == "" {
		return errors.Wrap(ErrInvalidConfig, "workspace id is required")
	}
	return nil
}

type Configuration struct {
	API          APIOptions       `yaml:"api"`
	Workspace    WorkspaceOptions `yaml:"workspace"`
	FieldMapping FieldMapping     `yaml:"field_mapping" env:"-"`
	Log          LogOptions       `yaml:"log"`
	Journal      JournalOptions   `yaml:"journal"`
	Metrics      MetricsOptions   `yaml:"metrics"`
	Tracing      TracingOptions   `yaml:"tracing"`
	Credentials  Credentials      `yaml:"-"`

	logger *logrus.Logger
}

// Default returns a configuration carrying every default value. YAML and
// environment values are layered on top of it by Load.
func Default() *Configuration {
	return &Configuration{
		API: APIOptions{
			BaseURL:        DefaultBaseURL,
			RateLimitDelay: DefaultRateLimitDelay,
			MaxRetries:     DefaultMaxRetries,
			Timeout:        30 * time.Second,
		},
		Log: LogOptions{
			Level:  "info",
			Format: "text",
		},
		Journal: JournalOptions{
			Dir:    ".",
			Format: "csv",
		},
		Metrics: MetricsOptions{
			Job: "clockify_sync",
		},
		Tracing: TracingOptions{
			Endpoint:    "localhost:4318",
			ServiceName: "clockify-sync",
		},
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. Priority: ENV > YAML > defaults.
func Load(path string) (*Configuration, error) {
	c := Default()
	if err := c.load(path, []string{".env", ".env.local"}); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(path string, envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return errors.Wrap(err, "load env files")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	if err := env.Parse(c); err != nil {
		return errors.Wrap(err, "parse env")
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	c.logger = NewLogger(c.Log, os.Stderr)
	if n == 0 {
		wd, _ := os.Getwd()
		tried := make([]string, 0, len(envFiles))
		for _, file := range envFiles {
			tried = append(tried, filepath.Join(wd, file))
		}
		c.logger.WithField("tried", tried).Debug("no .env files found")
	}
	return nil
}

func (c *Configuration) normalize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Workspace.FallbackManagerEmail = strings.ToLower(strings.TrimSpace(c.Workspace.FallbackManagerEmail))
	c.Workspace.FallbackGroupName = strings.TrimSpace(c.Workspace.FallbackGroupName)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Journal.Format = strings.ToLower(strings.TrimSpace(c.Journal.Format))
	if c.Journal.Dir == "" {
		c.Journal.Dir = "."
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Wrapf(ErrInvalidConfig, "%s failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := c.FieldMapping.validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.Endpoint) == "" {
		return errors.Wrap(ErrInvalidConfig, "tracing.endpoint is required when tracing is enabled")
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	if c.logger == nil {
		c.logger = NewLogger(c.Log, os.Stderr)
	}
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logrusLevel(c.Log.Level)
}

func logrusLevel(level string) logrus.Level {
	switch level {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger builds the run logger. Text output is meant for an operator's
// terminal, JSON output for log shipping.
func NewLogger(opts LogOptions, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrusLevel(opts.Level))
	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp:       false,
			FullTimestamp:          true,
			DisableLevelTruncation: true,
		})
	}
	return l
}
