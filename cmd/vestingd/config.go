package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/xraph/vesting/store/backend"
)

// Config is the daemon configuration file.
type Config struct {
	Listen          string `yaml:"listen"`
	BasePath        string `yaml:"base_path"`
	AuthRule        string `yaml:"auth_rule"`
	AddressFormat   string `yaml:"address_format"`
	ContractAddress string `yaml:"contract_address"`
	Metrics         bool   `yaml:"metrics"`
	Audit           bool   `yaml:"audit"`

	Store backend.Options `yaml:"store"`
	Log   LogConfig       `yaml:"log"`
	Dev   DevConfig       `yaml:"dev"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DevConfig seeds the in-memory chain with a target token.
type DevConfig struct {
	Token     string `yaml:"token"`
	TokenName string `yaml:"token_name"`
	Treasury  string `yaml:"treasury"`
	Supply    uint64 `yaml:"supply"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Listen:        ":8080",
		BasePath:      "/vesting",
		AuthRule:      "permissive",
		AddressFormat: "hex",
		Metrics:       true,
		Store:         backend.Options{Driver: backend.DriverMemory},
		Log:           LogConfig{Level: "info", Format: "json"},
		Dev:           DevConfig{TokenName: "Aqua"},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// parseFlags loads the file named by --config, then applies any flag that
// was set explicitly.
func parseFlags(args []string) (Config, error) {
	fs := pflag.NewFlagSet("vestingd", pflag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to vestingd.yaml")
		listen     = fs.String("listen", "", "http listen address")
		driver     = fs.String("store", "", "store driver: "+strings.Join(backend.Drivers(), ", "))
		dsn        = fs.String("dsn", "", "store dsn, path or url")
		authRule   = fs.String("auth-rule", "", "permissive or owner_only")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		logFormat  = fs.String("log-format", "", "json or text")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	overrides := []struct {
		flag string
		dst  *string
		src  string
	}{
		{"listen", &cfg.Listen, *listen},
		{"store", &cfg.Store.Driver, *driver},
		{"dsn", &cfg.Store.DSN, *dsn},
		{"auth-rule", &cfg.AuthRule, *authRule},
		{"log-level", &cfg.Log.Level, *logLevel},
		{"log-format", &cfg.Log.Format, *logFormat},
	}
	for _, o := range overrides {
		if fs.Changed(o.flag) {
			*o.dst = o.src
		}
	}
	return cfg, nil
}

func newLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want json or text", cfg.Format)
	}
}
