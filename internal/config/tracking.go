package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TrackingConfig holds runtime-tunable tracking behavior. Daily aggregation
// uses Timezone to decide which calendar day a click or conversion lands on.
type TrackingConfig struct {
	Timezone         string `mapstructure:"timezone"`
	HeartbeatSeconds int    `mapstructure:"heartbeatSeconds"`
	SubscriberBuffer int    `mapstructure:"subscriberBuffer"`
}

func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Timezone:         "UTC",
		HeartbeatSeconds: 30,
		SubscriberBuffer: 16,
	}
}

// Location resolves the configured business timezone.
func (c TrackingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c TrackingConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

type TrackingConfigHolder struct {
	current atomic.Value // holds TrackingConfig
}

func NewTrackingConfigHolder() (*TrackingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("tracking")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/linkpulse/config")
	v.AddConfigPath("/etc/linkpulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LINKPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTrackingConfig()
	v.SetDefault("tracking.timezone", defaults.Timezone)
	v.SetDefault("tracking.heartbeatSeconds", defaults.HeartbeatSeconds)
	v.SetDefault("tracking.subscriberBuffer", defaults.SubscriberBuffer)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg TrackingConfig
	if err := v.UnmarshalKey("tracking", &cfg); err != nil {
		return nil, err
	}
	if err := validateTrackingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &TrackingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TrackingConfig
		if err := v.UnmarshalKey("tracking", &updated); err != nil {
			log.Printf("[tracking-config] reload failed: %v", err)
			return
		}
		if err := validateTrackingConfig(updated); err != nil {
			log.Printf("[tracking-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tracking-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *TrackingConfigHolder) Get() TrackingConfig {
	return h.current.Load().(TrackingConfig)
}

func validateTrackingConfig(cfg TrackingConfig) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return errors.New("tracking.timezone is not a valid IANA zone")
	}
	if cfg.HeartbeatSeconds <= 0 {
		return errors.New("tracking.heartbeatSeconds must be positive")
	}
	if cfg.SubscriberBuffer <= 0 {
		return errors.New("tracking.subscriberBuffer must be positive")
	}
	return nil
}
