package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clinmatch/internal/resolver"
)

var (
	healthTimeout time.Duration
	healthSave    bool
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the matching service is reachable",
	Long: `Health calls the matching service's health endpoint and prints its status,
version and component readiness.

With --save the checked URL is written to the config file once the service
answers, so later runs use it without --api-url.

Example:
  clinmatch health
  clinmatch health --api-url http://matcher.internal:8002 --save`,
	Args: cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, map[string]string{"resolver.url": "api-url"})
	},
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().String("api-url", "", "matching service base URL")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "health check timeout")
	healthCmd.Flags().BoolVar(&healthSave, "save", false, "store the checked URL as resolver.url in the config file")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	client, err := resolver.NewClient(cfg.Resolver, resolver.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create resolver client: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	status, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check %s: %w", cfg.Resolver.URL, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s: %s", cfg.Resolver.URL, status.Status)
	if status.Version != "" {
		fmt.Fprintf(out, " (version %s)", status.Version)
	}
	fmt.Fprintln(out)

	if len(status.Components) > 0 {
		names := make([]string, 0, len(status.Components))
		for name := range status.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			state := "down"
			if status.Components[name] {
				state = "up"
			}
			rows = append(rows, []string{name, state})
		}
		fmt.Fprintln(out, renderTable([]string{"Component", "State"}, rows, nil, shouldColorize(out)))
	}
	if status.BaselineAPIStatus != "" {
		fmt.Fprintf(out, "Baseline API: %s\n", strings.TrimSpace(status.BaselineAPIStatus))
	}

	if healthSave {
		path, err := configPath()
		if err != nil {
			return err
		}
		if err := saveResolverURL(path, cfg.Resolver.URL); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Saved resolver.url to %s\n", path)
	}
	return nil
}

// configPath returns the file --save writes to: --config, the file viper loaded,
// or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".clinmatch", "config.yaml"), nil
}

// saveResolverURL sets resolver.url in the config file at path, creating the
// documented default file first when none exists. Other keys are preserved.
func saveResolverURL(path, url string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultConfig(path); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.Set("resolver.url", url)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
