package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/internal/config"
)

// globalFlags are the persistent flags shared by every command. They take
// precedence over the config file and the environment.
type globalFlags struct {
	configPath   string
	accessToken  string
	cacheBackend string
	noCache      bool
	noRevalidate bool
}

func (f *globalFlags) register(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (.toml or .yaml); default ~/.config/tilestyle/config.toml")
	pf.StringVar(&f.accessToken, "token", "", "access token for mapbox:// URLs (env "+config.EnvAccessToken+" or "+config.EnvMapboxAccessToken+")")
	pf.StringVar(&f.cacheBackend, "cache", "", "cache backend: file, memory, redis, mongo or none")
	pf.BoolVar(&f.noCache, "no-cache", false, "disable the resource cache")
	pf.BoolVar(&f.noRevalidate, "no-revalidate", false, "refetch stale resources instead of revalidating them")
}

// loadConfig runs before every command.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return err
	}
	c.flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("config loaded", "cache", cfg.CacheBackend, "dir", cfg.CacheDir)
	return nil
}

func (f *globalFlags) apply(cfg *config.Config) {
	if f.accessToken != "" {
		cfg.AccessToken = f.accessToken
	}
	if f.cacheBackend != "" {
		cfg.CacheBackend = f.cacheBackend
	}
	if f.noCache {
		cfg.CacheBackend = config.BackendNone
	}
	if f.noRevalidate {
		cfg.NoRevalidate = true
	}
}
