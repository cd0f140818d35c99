package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/smsorders/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultOrderAPITimeout = 10 * time.Second
	defaultOrderAPIRate    = 10
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Number provider endpoint and its limits
	OrderAPI        string
	OrderAPITimeout time.Duration
	OrderAPIRate    int

	// Key the SMS provider has to send with every pushed code
	SMSSenderKey string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		OrderAPITimeout: defaultOrderAPITimeout,
		OrderAPIRate:    defaultOrderAPIRate,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = i
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"DATABASE_URI":      setString(&c.DatabaseDSN),
		"SECRET_KEY":        setString(&c.SecretKey),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
		"ORDER_API":         setString(&c.OrderAPI),
		"ORDER_API_TIMEOUT": setDuration(&c.OrderAPITimeout),
		"ORDER_API_RPS":     setInt(&c.OrderAPIRate),
		"SMS_SENDER_KEY":    setString(&c.SMSSenderKey),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s value: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("smsorders", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.OrderAPI, "order-api", "o", c.OrderAPI, "Number provider endpoint")
	fs.DurationVarP(&c.OrderAPITimeout, "order-api-timeout", "t", c.OrderAPITimeout, "Number provider response timeout")
	fs.IntVarP(&c.OrderAPIRate, "order-api-rps", "r", c.OrderAPIRate, "Max requests per second to number provider")
	fs.StringVarP(&c.SMSSenderKey, "sms-sender-key", "k", c.SMSSenderKey, "Key the SMS provider authenticates with")

	return fs.Parse(args)
}

// Check required options are set
func (c *Config) Validate() error {
	var errs []error

	required := map[string]string{
		"database":       c.DatabaseDSN,
		"secret-key":     c.SecretKey,
		"order-api":      c.OrderAPI,
		"sms-sender-key": c.SMSSenderKey,
	}
	for name, value := range required {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	if c.OrderAPIRate <= 0 {
		errs = append(errs, errors.New("order-api-rps must be positive"))
	}

	return errors.Join(errs...)
}
