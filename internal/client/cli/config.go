package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/kelseyhightower/envconfig"

	"github.com/hongminglow/community-site/internal/client"
)

// Config holds sitectl settings. Environment values are read with the
// SITECTL_ prefix and global flags override them.
type Config struct {
	APIURL      string `envconfig:"API_URL" default:"http://localhost:8080"`
	SessionFile string `envconfig:"SESSION_FILE"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
}

// LoadConfig overlays env, then global flags. It returns the remaining args.
func LoadConfig(args []string, stderr io.Writer) (Config, []string, error) {
	var cfg Config
	if err := envconfig.Process("SITECTL", &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("process env: %w", err)
	}

	fs := flag.NewFlagSet("sitectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "base URL of the site API")
	fs.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "path of the stored session file")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if cfg.SessionFile == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			return Config{}, nil, err
		}
		cfg.SessionFile = path
	}
	return cfg, fs.Args(), nil
}
