package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// MatchRules - правила жизненного цикла мэтча
type MatchRules struct {
	DailyLikeLimit         int           `yaml:"daily_like_limit"`
	UnlikeCooldown         time.Duration `yaml:"unlike_cooldown"`
	MaxUnlikeAttempts      int           `yaml:"max_unlike_attempts"`
	RematchBlock           time.Duration `yaml:"rematch_block"`
	DefaultTZOffsetMinutes int           `yaml:"default_tz_offset_minutes"`
	LockTTL                time.Duration `yaml:"lock_ttl"`
	OperationTimeout       time.Duration `yaml:"operation_timeout"`
	SweepInterval          time.Duration `yaml:"sweep_interval"`
	SweepBatch             int           `yaml:"sweep_batch"`
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Backend  struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	Match MatchRules `yaml:"match"`
}

// DefaultMatchRules возвращает правила по умолчанию: 5 лайков в день,
// 3 попытки анлайка с паузой в 3 дня, блокировка повторного мэтча на 15 дней
func DefaultMatchRules() MatchRules {
	return MatchRules{
		DailyLikeLimit:    5,
		UnlikeCooldown:    72 * time.Hour,
		MaxUnlikeAttempts: 3,
		RematchBlock:      15 * 24 * time.Hour,
		LockTTL:           5 * time.Second,
		OperationTimeout:  5 * time.Second,
		SweepInterval:     10 * time.Minute,
		SweepBatch:        100,
	}
}

func LoadConfig(filePath string) (*ConfigSchema, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig разбирает YAML, заполняет значения по умолчанию и проверяет правила
func ParseConfig(data []byte) (*ConfigSchema, error) {
	var conf ConfigSchema
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *ConfigSchema) ApplyDefaults() {
	def := DefaultMatchRules()
	m := &c.Match
	if m.DailyLikeLimit == 0 {
		m.DailyLikeLimit = def.DailyLikeLimit
	}
	if m.UnlikeCooldown == 0 {
		m.UnlikeCooldown = def.UnlikeCooldown
	}
	if m.MaxUnlikeAttempts == 0 {
		m.MaxUnlikeAttempts = def.MaxUnlikeAttempts
	}
	if m.RematchBlock == 0 {
		m.RematchBlock = def.RematchBlock
	}
	if m.LockTTL == 0 {
		m.LockTTL = def.LockTTL
	}
	if m.OperationTimeout == 0 {
		m.OperationTimeout = def.OperationTimeout
	}
	if m.SweepInterval == 0 {
		m.SweepInterval = def.SweepInterval
	}
	if m.SweepBatch == 0 {
		m.SweepBatch = def.SweepBatch
	}
	if c.Databases.Master.Port == 0 {
		c.Databases.Master.Port = 5432
	}
	if c.Redis.Host != "" && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "match_events"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "match_events_ws"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
}

func (c *ConfigSchema) Validate() error {
	m := c.Match
	if m.DailyLikeLimit < 0 {
		return fmt.Errorf("match.daily_like_limit must be positive")
	}
	if m.MaxUnlikeAttempts < 0 {
		return fmt.Errorf("match.max_unlike_attempts must be positive")
	}
	if m.UnlikeCooldown < 0 || m.RematchBlock < 0 || m.LockTTL < 0 || m.OperationTimeout < 0 {
		return fmt.Errorf("match durations must not be negative")
	}
	// UTC-12:00 .. UTC+14:00
	if m.DefaultTZOffsetMinutes < -12*60 || m.DefaultTZOffsetMinutes > 14*60 {
		return fmt.Errorf("match.default_tz_offset_minutes out of range: %d", m.DefaultTZOffsetMinutes)
	}
	return nil
}

// Addr возвращает адрес Redis, пустая строка - Redis не настроен
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
