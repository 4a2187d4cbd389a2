package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"ats_workflow/internal/domain/user"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAWSRegion           = "us-east-1"
	defaultDBTimeout           = 5 * time.Second
	defaultNotifyBatchSize     = 10
	maxNotifyBatchSize         = 10 // SQS ReceiveMessage limit
	defaultNotifyWaitSeconds   = 10
	maxNotifyWaitSeconds       = 20 // SQS long poll limit
	perMessageSendTimeout      = 10 * time.Second
	defaultNotifyVisibilitySec = 60
	defaultNotifyPollSpec      = "@every 15s"
)

// RoleGroups maps each user role onto the identity provider group that grants it.
type RoleGroups struct {
	Candidate     string `yaml:"candidate"`
	Recruiter     string `yaml:"recruiter"`
	HiringManager string `yaml:"hiring_manager"`
}

// DefaultRoleGroups is the role to group table used when no override file is given.
func DefaultRoleGroups() RoleGroups {
	return RoleGroups{
		Candidate:     "Candidates",
		Recruiter:     "Recruiters",
		HiringManager: "HiringManagers",
	}
}

// GroupFor returns the group for role. Unknown roles get the candidate group.
func (g RoleGroups) GroupFor(role user.Role) string {
	switch role {
	case user.RoleRecruiter:
		return g.Recruiter
	case user.RoleHiringManager:
		return g.HiringManager
	default:
		return g.Candidate
	}
}

// AppConfig holds all configuration for the application. It is loaded once per
// process and passed by value or pointer into constructors; nothing mutates it.
type AppConfig struct {
	DatabaseURL string
	DBTimeout   time.Duration

	AWSRegion               string
	NotifyQueueURL          string
	SenderEmail             string
	NotifyBatchSize         int32
	NotifyWaitSeconds       int32
	NotifyVisibilitySeconds int32
	NotifyPollSpec          string

	RoleGroups RoleGroups

	TelegramToken     string // optional, enables ops alerts
	OpsTelegramChatID int64

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DBTimeout, err = envDuration("DB_TIMEOUT", defaultDBTimeout); err != nil {
		return nil, err
	}

	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = defaultAWSRegion
	}
	cfg.NotifyQueueURL = os.Getenv("NOTIFY_QUEUE_URL")
	cfg.SenderEmail = os.Getenv("SENDER_EMAIL")

	batch, err := envInt("NOTIFY_BATCH_SIZE", defaultNotifyBatchSize)
	if err != nil {
		return nil, err
	}
	if batch < 1 {
		batch = 1
	}
	if batch > maxNotifyBatchSize {
		batch = maxNotifyBatchSize
	}
	cfg.NotifyBatchSize = int32(batch)

	wait, err := envInt("NOTIFY_WAIT_SECONDS", defaultNotifyWaitSeconds)
	if err != nil {
		return nil, err
	}
	if wait < 0 {
		wait = 0
	}
	if wait > maxNotifyWaitSeconds {
		wait = maxNotifyWaitSeconds
	}
	cfg.NotifyWaitSeconds = int32(wait)

	visibility, err := envInt("NOTIFY_VISIBILITY_SECONDS", defaultNotifyVisibilitySec)
	if err != nil {
		return nil, err
	}
	// A message must stay hidden for as long as a poll may hold it.
	if minVisibility := int(cfg.PollTimeout() / time.Second); visibility < minVisibility {
		visibility = minVisibility
	}
	cfg.NotifyVisibilitySeconds = int32(visibility)

	cfg.NotifyPollSpec = os.Getenv("NOTIFY_POLL_SPEC")
	if cfg.NotifyPollSpec == "" {
		cfg.NotifyPollSpec = defaultNotifyPollSpec
	}

	cfg.RoleGroups = DefaultRoleGroups()
	if path := os.Getenv("ROLE_GROUPS_FILE"); path != "" {
		cfg.RoleGroups, err = LoadRoleGroups(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if chatIDStr := os.Getenv("OPS_TELEGRAM_CHAT_ID"); chatIDStr != "" {
		cfg.OpsTelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// PollTimeout bounds a single consumer invocation: the long poll plus the time
// to send a full batch.
func (c *AppConfig) PollTimeout() time.Duration {
	return time.Duration(c.NotifyWaitSeconds)*time.Second + time.Duration(c.NotifyBatchSize)*perMessageSendTimeout
}

// RequireDatabase checks the settings every store-backed command needs. The
// notification worker never touches the database and runs without them.
func (c *AppConfig) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	return nil
}

// RequireQueue checks the settings every queue producer or consumer needs.
func (c *AppConfig) RequireQueue() error {
	if c.NotifyQueueURL == "" {
		return fmt.Errorf("NOTIFY_QUEUE_URL is not set")
	}
	return nil
}

// RequireWorker checks the settings the notification consumer needs.
func (c *AppConfig) RequireWorker() error {
	if err := c.RequireQueue(); err != nil {
		return err
	}
	if c.SenderEmail == "" {
		return fmt.Errorf("SENDER_EMAIL is not set")
	}
	return nil
}

// OpsAlertsEnabled reports whether Telegram ops alerts are configured.
func (c *AppConfig) OpsAlertsEnabled() bool {
	return c.TelegramToken != "" && c.OpsTelegramChatID != 0
}

// LoadRoleGroups reads a YAML role to group table. Roles left out of the file
// keep their default group.
func LoadRoleGroups(path string) (RoleGroups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoleGroups{}, fmt.Errorf("failed to read role groups file %s: %w", path, err)
	}
	groups := DefaultRoleGroups()
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return RoleGroups{}, fmt.Errorf("failed to parse role groups file %s: %w", path, err)
	}
	if groups.Candidate == "" || groups.Recruiter == "" || groups.HiringManager == "" {
		return RoleGroups{}, fmt.Errorf("role groups file %s maps a role to an empty group", path)
	}
	return groups, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
