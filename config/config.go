package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/angas/dayahead-go/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	// Path to the SQLite file holding the log and fetch run tables
	Path string
	// How many days fetch runs should be stored in database before they get purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files are kept, 0 turns daily backups off, default: 14
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 14
	}
	return *d.BackupRetentionDays
}

type AppConfigNordpool struct {
	Market string `mapstructure:"market"` // Bidding zone, e.g. "SE3", "NL", "GER"
	// Length of each delivery interval: 15, 30 or 60 minutes, default: 60
	Resolution *int `mapstructure:"resolution"`
	// Overrides the Nordpool data portal, useful behind a proxy
	Url *string `mapstructure:"url"`
	// HTTP timeout per request in seconds, default: 10
	TimeoutSeconds *int `mapstructure:"timeout_seconds"`
	// Cron spec for refreshing prices, default: every 15 minutes
	RunAt *string `mapstructure:"run_at"`
}

func (n AppConfigNordpool) GetResolution() int {
	if n.Resolution == nil {
		return 60
	}
	return *n.Resolution
}

func (n AppConfigNordpool) GetUrl() string {
	if n.Url == nil {
		return ""
	}
	return *n.Url
}

func (n AppConfigNordpool) GetTimeout() time.Duration {
	if n.TimeoutSeconds == nil {
		return 10 * time.Second
	}
	return time.Duration(*n.TimeoutSeconds) * time.Second
}

func (n AppConfigNordpool) GetRunAt() string {
	if n.RunAt == nil {
		return "*/15 * * * *"
	}
	return *n.RunAt
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Topic prefix, prices end up in <topic>/<market>/prices, default: "dayahead"
	Topic    *string `mapstructure:"topic"`
	ClientId *string `mapstructure:"client_id"`
}

func (m AppConfigMqtt) GetTopic() string {
	if m.Topic == nil {
		return "dayahead"
	}
	return *m.Topic
}

func (m AppConfigMqtt) GetClientId() string {
	if m.ClientId == nil {
		return "dayahead"
	}
	return *m.ClientId
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
	// Rotated JSON log file, disabled when not assigned
	FilePath *string `mapstructure:"file_path"`
	// Max size in megabytes before the log file gets rotated, default: 10
	FileMaxSizeMb *int `mapstructure:"file_max_size_mb"`
	// Number of rotated files to keep, default: 5
	FileMaxBackups *int `mapstructure:"file_max_backups"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

func (l AppConfigLogging) GetFileOptions() (logging.FileOptions, bool) {
	if l.FilePath == nil || *l.FilePath == "" {
		return logging.FileOptions{}, false
	}
	opts := logging.FileOptions{Path: *l.FilePath, MaxSizeMb: 10, MaxBackups: 5}
	if l.FileMaxSizeMb != nil {
		opts.MaxSizeMb = *l.FileMaxSizeMb
	}
	if l.FileMaxBackups != nil {
		opts.MaxBackups = *l.FileMaxBackups
	}
	return opts, true
}

type AppConfig struct {
	Api      AppConfigApi
	Database AppConfigDatabase
	Nordpool AppConfigNordpool `mapstructure:"nordpool"`
	Mqtt     AppConfigMqtt     `mapstructure:"mqtt"`
	Logging  AppConfigLogging  `mapstructure:"logging"`

	v *viper.Viper
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	c, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	c.v = v

	return c, nil
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	return &c, nil
}

// WatchChanges reloads the config file when it is written and hands the new config to
// onChange. Only the console and database log levels are meant to be applied by onChange,
// every other change is reported as needing a restart.
func (c *AppConfig) WatchChanges(logger *slog.Logger, onChange func(*AppConfig)) {
	if c.v == nil {
		return
	}

	current := *c
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		next, err := unmarshal(c.v)
		if err != nil {
			logger.Error("config reload failed", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		if sections := RestartRequired(&current, next); len(sections) > 0 {
			logger.Warn("config changed, restart needed to apply",
				slog.String("file", e.Name),
				slog.String("sections", strings.Join(sections, ",")))
		} else {
			logger.Info("config reloaded", slog.String("file", e.Name))
		}

		current = *next
		if onChange != nil {
			onChange(next)
		}
	})
	c.v.WatchConfig()
}

// RestartRequired lists the sections that differ between two configs and that are
// only read at startup.
func RestartRequired(old, new *AppConfig) []string {
	var sections []string
	if !reflect.DeepEqual(old.Api, new.Api) {
		sections = append(sections, "api")
	}
	if !reflect.DeepEqual(old.Database, new.Database) {
		sections = append(sections, "database")
	}
	if !reflect.DeepEqual(old.Nordpool, new.Nordpool) {
		sections = append(sections, "nordpool")
	}
	if !reflect.DeepEqual(old.Mqtt, new.Mqtt) {
		sections = append(sections, "mqtt")
	}
	if !reflect.DeepEqual(withoutLevels(old.Logging), withoutLevels(new.Logging)) {
		sections = append(sections, "logging")
	}
	return sections
}

func withoutLevels(l AppConfigLogging) AppConfigLogging {
	l.ConsoleLevel = nil
	l.DbLevel = nil
	return l
}
