// Package cmd implements the semtab command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tablab/semtab"
	"github.com/tablab/semtab/pkg/logging"
)

// Config holds backend connection settings loaded from flags,
// environment variables (SEMTAB_ prefix), .env files, and an optional
// ~/.semtab.yaml config file, in that order of precedence.
type Config struct {
	BaseURL  string
	Token    string
	Username string
	Password string
	Timeout  time.Duration
	Verbose  bool
}

var (
	cfg Config

	rootCmd = &cobra.Command{
		Use:   "semtab",
		Short: "Semantic table annotation from the command line",
		Long: `semtab reconciles and extends tables hosted on a semantic
annotation backend: list available services and datasets, reconcile a
column against an entity service, pull external properties into new
columns, and export the result.

Connection settings come from flags or the environment:

  SEMTAB_BASE_URL   backend root URL (e.g. http://localhost:3003)
  SEMTAB_TOKEN      pre-issued bearer token
  SEMTAB_USERNAME   sign-in username
  SEMTAB_PASSWORD   sign-in password`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "", "backend root URL")
	flags.String("token", "", "pre-issued bearer token")
	flags.String("username", "", "sign-in username")
	flags.String("password", "", "sign-in password")
	flags.Duration("timeout", 0, "HTTP timeout (default 2m)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
}

// Execute runs the command tree.
func Execute(ctx context.Context, version, commit string) error {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command) error {
	// .env files feed the environment before viper binds it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SEMTAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".semtab")
		_ = v.ReadInConfig()
	}

	// Flags take precedence over environment and config file.
	for _, name := range []string{"base-url", "token", "username", "password", "timeout", "verbose"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	cfg = Config{
		BaseURL:  v.GetString("base-url"),
		Token:    v.GetString("token"),
		Username: v.GetString("username"),
		Password: v.GetString("password"),
		Timeout:  v.GetDuration("timeout"),
		Verbose:  v.GetBool("verbose"),
	}

	if cfg.Verbose {
		logger := logging.NewConsole().Level(zerolog.DebugLevel)
		logging.SetDefault(logger)
	}
	return nil
}

// newClient builds an SDK client from the loaded configuration.
func newClient() (*semtab.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("a backend URL is required (--base-url or SEMTAB_BASE_URL)")
	}
	opts := []semtab.Option{semtab.WithBaseURL(cfg.BaseURL)}
	switch {
	case cfg.Token != "":
		opts = append(opts, semtab.WithToken(cfg.Token))
	case cfg.Username != "":
		opts = append(opts, semtab.WithCredentials(cfg.Username, cfg.Password))
	default:
		return nil, fmt.Errorf("credentials are required (--token or --username/--password)")
	}
	if cfg.Timeout > 0 {
		opts = append(opts, semtab.WithHTTPTimeout(cfg.Timeout))
	}
	return semtab.New(opts...)
}
