package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"restaurant-system/internal/domain"
)

var ErrMissingStore = errors.New("missing store configuration: POS_STORE_URL and POS_STORE_KEY are required")

type Store struct {
	URL      string `yaml:"url"`
	Key      string `yaml:"key"`
	MaxConns int    `yaml:"max_conns"`
}

type MQ struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
	TLS   bool   `yaml:"tls"`
}

// Enabled is false when no broker is configured; events are then dropped.
func (m MQ) Enabled() bool { return m.Host != "" }

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type HTTP struct {
	Port int `yaml:"port"`
}

type Restaurant struct {
	Tables   int    `yaml:"tables"`
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone, falling back to UTC. Validate rejects unknown
// zones, so the fallback only applies to unvalidated configs.
func (r Restaurant) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Retry struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

type Operator struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type Session struct {
	TTL time.Duration `yaml:"ttl"`
}

type App struct {
	Store      Store      `yaml:"store"`
	Rabbit     MQ         `yaml:"rabbitmq"`
	Redis      Redis      `yaml:"redis"`
	HTTP       HTTP       `yaml:"http"`
	Restaurant Restaurant `yaml:"restaurant"`
	Retry      Retry      `yaml:"retry"`
	Operator   Operator   `yaml:"operator"`
	Session    Session    `yaml:"session"`
}

func Defaults() App {
	return App{
		Store:      Store{MaxConns: 10},
		Rabbit:     MQ{Port: 5672, VHost: "/"},
		HTTP:       HTTP{Port: 3000},
		Restaurant: Restaurant{Tables: 12, Timezone: "Asia/Kolkata"},
		Retry:      Retry{Attempts: 3, BaseDelay: time.Second},
		Session:    Session{TTL: 12 * time.Hour},
	}
}

// Load reads an optional .env file, the YAML file at path (skipped when path
// is empty), then POS_* environment overrides. The store URL and key are
// required.
func Load(path string) (App, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return App{}, fmt.Errorf("read .env: %w", err)
		}
	}

	a := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &a); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&a); err != nil {
		return App{}, err
	}
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func (a App) Validate() error {
	if a.Store.URL == "" || a.Store.Key == "" {
		return ErrMissingStore
	}
	if a.Restaurant.Tables <= 0 {
		return fmt.Errorf("restaurant.tables must be positive, got %d", a.Restaurant.Tables)
	}
	// table ids run 1..Tables and must stay below the takeaway id
	if a.Restaurant.Tables >= domain.ParcelTableID {
		return fmt.Errorf("restaurant.tables must be below %d, got %d", domain.ParcelTableID, a.Restaurant.Tables)
	}
	if a.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be positive, got %d", a.Retry.Attempts)
	}
	if _, err := time.LoadLocation(a.Restaurant.Timezone); err != nil {
		return fmt.Errorf("restaurant.timezone: %w", err)
	}
	return nil
}

func applyEnv(a *App) error {
	str := map[string]*string{
		"POS_STORE_URL":         &a.Store.URL,
		"POS_STORE_KEY":         &a.Store.Key,
		"POS_RABBITMQ_HOST":     &a.Rabbit.Host,
		"POS_RABBITMQ_USER":     &a.Rabbit.User,
		"POS_RABBITMQ_PASSWORD": &a.Rabbit.Pass,
		"POS_REDIS_ADDR":        &a.Redis.Addr,
		"POS_REDIS_PASSWORD":    &a.Redis.Password,
		"POS_TIMEZONE":          &a.Restaurant.Timezone,
		"POS_OPERATOR_EMAIL":    &a.Operator.Email,
		"POS_OPERATOR_PASSWORD": &a.Operator.Password,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}
	ints := map[string]*int{
		"POS_HTTP_PORT":      &a.HTTP.Port,
		"POS_RABBITMQ_PORT":  &a.Rabbit.Port,
		"POS_TABLES":         &a.Restaurant.Tables,
		"POS_RETRY_ATTEMPTS": &a.Retry.Attempts,
	}
	for k, dst := range ints {
		v, ok := os.LookupEnv(k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", k, err)
		}
		*dst = n
	}
	if v, ok := os.LookupEnv("POS_RABBITMQ_TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POS_RABBITMQ_TLS: %w", err)
		}
		a.Rabbit.TLS = b
	}
	if v, ok := os.LookupEnv("POS_RETRY_BASE_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POS_RETRY_BASE_DELAY: %w", err)
		}
		a.Retry.BaseDelay = d
	}
	return nil
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
