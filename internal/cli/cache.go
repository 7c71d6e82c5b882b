package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/internal/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the resource cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheGetCommand())
	cmd.AddCommand(c.cacheRemoveCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer{cmd.OutOrStdout()}
			if c.Config.CacheBackend != config.BackendFile {
				return fmt.Errorf("clear only supports the file backend, not %q", c.Config.CacheBackend)
			}

			count, err := clearDir(c.Config.CacheDir)
			if err != nil {
				return err
			}
			if count == 0 {
				p.info("Cache is empty")
				return nil
			}
			p.success("Cleared %d cached entries", count)
			p.keyValue("Directory", c.Config.CacheDir)
			return nil
		},
	}
}

// clearDir removes every file below dir and then the emptied
// subdirectories. dir itself is kept. A missing dir counts as empty.
func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	count := 0
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				count++
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		if err := os.RemoveAll(path); err != nil {
			return count, fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return count, nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.Config.CacheDir)
			return nil
		},
	}
}

// cacheGetCommand creates the "cache get" subcommand.
func (c *CLI) cacheGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <url>",
		Short: "Show the cached entry for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, c.Config)
			if err != nil {
				return err
			}
			defer store.Close()

			p := printer{cmd.OutOrStdout()}
			entry, ok, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				p.warning("Not cached: %s", args[0])
				return nil
			}

			now := time.Now()
			p.keyValue("URL", args[0])
			p.keyValue("Size", fmt.Sprintf("%d bytes", len(entry.Data)))
			p.keyValue("Fresh", fmt.Sprint(entry.Fresh(now)))
			if !entry.Expires.IsZero() {
				p.keyValue("Expires", entry.Expires.Format(time.RFC3339))
			}
			if !entry.Modified.IsZero() {
				p.keyValue("Modified", entry.Modified.Format(time.RFC3339))
			}
			if entry.ETag != "" {
				p.keyValue("ETag", entry.ETag)
			}
			return nil
		},
	}
}

// cacheRemoveCommand creates the "cache rm" subcommand.
func (c *CLI) cacheRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <url>...",
		Short: "Remove cached entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, c.Config)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, u := range args {
				if err := store.Delete(ctx, u); err != nil {
					return fmt.Errorf("remove %s: %w", u, err)
				}
			}
			printer{cmd.OutOrStdout()}.success("Removed %d entries", len(args))
			return nil
		},
	}
}
