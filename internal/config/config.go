package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Path string
	}
	SMTP struct {
		Host       string
		Port       int
		Username   string
		Password   string
		From       string
		RatePerSec int // max sends per second, 0 disables pacing
	}
	WebDriver struct {
		BaseURL       string
		WelcomePath   string
		SessionCookie string
		RenderWait    int // seconds to wait for the page to render
		Window        struct {
			Dashboard []int
			Slice     []int
		}
	}
	Reports struct {
		User          string // service account used to render reports
		Password      string
		SubjectPrefix string
		BccAddress    string
	}
	Queue struct {
		Workers     int
		QueueSize   int
		TaskTimeout int // soft execution budget per task, seconds
	}
	Server struct {
		Port      int
		JWTSecret string
	}
	Slack struct {
		WebhookURL string
		Channel    string
	}
}

// LoadConfig loads the configuration from config.yaml
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/dashmail")

	viper.SetDefault("database.path", "data/dashmail.db")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("smtp.port", 25)
	viper.SetDefault("smtp.ratepersec", 10)
	viper.SetDefault("webdriver.welcomepath", "/welcome")
	viper.SetDefault("webdriver.sessioncookie", "session")
	viper.SetDefault("webdriver.renderwait", 30)
	viper.SetDefault("webdriver.window.dashboard", []int{1600, 1200})
	viper.SetDefault("webdriver.window.slice", []int{1000, 800})
	viper.SetDefault("reports.subjectprefix", "[Report] ")
	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.queuesize", 256)
	viper.SetDefault("queue.tasktimeout", 300)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		// No config file: defaults apply, validation decides below.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the fields the delivery pipeline cannot run without.
// Absence of any of them is a configuration error, not a default.
func (c *Config) Validate() error {
	var missing []string

	if c.SMTP.Host == "" {
		missing = append(missing, "smtp.host")
	}
	if c.SMTP.From == "" {
		missing = append(missing, "smtp.from")
	}
	if c.WebDriver.BaseURL == "" {
		missing = append(missing, "webdriver.baseurl")
	}
	if c.Reports.User == "" {
		missing = append(missing, "reports.user")
	}
	if c.Reports.Password == "" {
		missing = append(missing, "reports.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if len(c.WebDriver.Window.Dashboard) != 2 || len(c.WebDriver.Window.Slice) != 2 {
		return fmt.Errorf("webdriver.window sizes must be [width, height] pairs")
	}
	if !strings.Contains(c.SMTP.From, "@") {
		return fmt.Errorf("smtp.from must be an email address, got %q", c.SMTP.From)
	}

	return nil
}

// RenderWait returns the render-settle delay as a duration.
func (c *Config) RenderWait() time.Duration {
	return time.Duration(c.WebDriver.RenderWait) * time.Second
}

// TaskTimeout returns the per-task soft execution budget.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Queue.TaskTimeout) * time.Second
}
