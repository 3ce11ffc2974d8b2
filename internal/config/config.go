package config

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTP struct {
		Address string `yaml:"address" env:"ACC_HTTP_ADDRESS"`
	} `yaml:"http"`

	// API holds the endpoints of the external production API.
	API APIConfig `yaml:"api"`

	// Console holds the URLs the hosting page used to hand to the client.
	Console ConsoleConfig `yaml:"console"`

	Sessions struct {
		Driver   string         `yaml:"driver" env:"ACC_SESSIONS_DRIVER"` // "cookie" | "postgres"
		Database DatabaseConfig `yaml:"database"`
	} `yaml:"sessions"`

	Logging struct {
		Level  string `yaml:"level" env:"ACC_LOG_LEVEL"`   // "debug" | "info" | "warn" | "error"
		Format string `yaml:"format" env:"ACC_LOG_FORMAT"` // "text" | "json"
	} `yaml:"logging"`

	Security struct {
		Secret string `yaml:"secret" env:"ACC_SECRET"`
	} `yaml:"security"`

	Telegram struct {
		BotToken    string `yaml:"bot_token" env:"ACC_TELEGRAM_BOT_TOKEN"`
		GroupChatID string `yaml:"group_chat_id" env:"ACC_TELEGRAM_GROUP_CHAT_ID"`
	} `yaml:"telegram"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url" env:"ACC_API_BASE_URL"`
	LoginURL    string        `yaml:"login_url" env:"ACC_API_LOGIN_URL"`
	UserMeURL   string        `yaml:"user_me_url" env:"ACC_API_USER_ME_URL"`
	RegisterURL string        `yaml:"register_url" env:"ACC_API_REGISTER_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"ACC_API_TIMEOUT"`
}

type ConsoleConfig struct {
	LoginPageURL    string   `yaml:"login_page_url" env:"ACC_LOGIN_PAGE_URL"`
	DashboardURL    string   `yaml:"dashboard_url" env:"ACC_DASHBOARD_URL"`
	RegisterPageURL string   `yaml:"register_page_url" env:"ACC_REGISTER_PAGE_URL"`
	GridLanguageURL string   `yaml:"grid_language_url" env:"ACC_GRID_LANGUAGE_URL"`
	PublicPaths     []string `yaml:"public_paths"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"ACC_DATABASE_URL"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"ACC_DATABASE_PASSWORD"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"` // e.g. "disable" | "require"
}

func (c *Config) Defaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.Console.RegisterPageURL == "" {
		c.Console.RegisterPageURL = "/app/register/"
	}
	if c.Sessions.Driver == "" {
		c.Sessions.Driver = "cookie"
	}
	d := &c.Sessions.Database
	if d.Host == "" {
		d.Host = "db"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.User == "" {
		d.User = "aircraftconsole"
	}
	if d.Name == "" {
		d.Name = "aircraftconsole"
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if c.Security.Secret == "" {
		c.Security.Secret = "change-me"
	}
}

// MissingURLs lists the URL constants that must be present before the console may start.
func (c *Config) MissingURLs() []string {
	required := []struct {
		name, value string
	}{
		{"console.login_page_url", c.Console.LoginPageURL},
		{"console.dashboard_url", c.Console.DashboardURL},
		{"api.login_url", c.API.LoginURL},
		{"api.user_me_url", c.API.UserMeURL},
		{"api.base_url", c.API.BaseURL},
		{"console.grid_language_url", c.Console.GridLanguageURL},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

func (c *Config) Validate() error {
	var errs []string
	if missing := c.MissingURLs(); len(missing) > 0 {
		errs = append(errs, "missing startup configuration: "+strings.Join(missing, ", "))
	}
	switch c.Sessions.Driver {
	case "cookie":
	case "postgres":
		if c.Sessions.Database.URL == "" {
			d := c.Sessions.Database
			if d.Host == "" || d.User == "" || d.Name == "" {
				errs = append(errs, "sessions.database.url or sessions.database.{host,user,name} must be set")
			}
		}
	default:
		errs = append(errs, "sessions.driver must be cookie or postgres")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// AppURL returns a postgres connection URL for the session database.
func (d *DatabaseConfig) AppURL() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return "", errors.New("database config incomplete: need host, user, name or set url")
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
