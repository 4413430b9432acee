// Package config provides configuration for the failure monitor service.
package config

import (
	"time"

	"github.com/pitabwire/frame/config"
)

// MonitorConfig contains all configuration for the failure monitor.
type MonitorConfig struct {
	config.ConfigurationDefault

	// QueueAlertsName/URI is the outbound queue failure alerts are published to.
	QueueAlertsName string `envDefault:"render.alerts" env:"QUEUE_ALERTS_NAME"`
	QueueAlertsURI  string `envDefault:"mem://render.alerts" env:"QUEUE_ALERTS_URI"`

	// CheckIntervalSeconds is how often the pattern sweep runs.
	CheckIntervalSeconds int `envDefault:"60" env:"CHECK_INTERVAL_SECONDS"`

	// MaxRequestBodyBytes caps API request bodies.
	MaxRequestBodyBytes int64 `envDefault:"65536" env:"MAX_REQUEST_BODY_BYTES"`
}

// CheckInterval returns the pattern sweep interval.
func (c *MonitorConfig) CheckInterval() time.Duration {
	if c.CheckIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}
