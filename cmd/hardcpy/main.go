package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hardcpy/internal/app"
	"hardcpy/internal/config"
	"hardcpy/internal/hc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "create", "verify").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	multithread, _ := cmd.Flags().GetBool("multithread")

	a, err := app.New(cfg, operation, app.Options{
		Multithread: multithread,
		Verbose:     verbose,
		Parameters:  fmt.Sprint(args),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func printSummary(s *hc.Summary, errLog string) {
	fmt.Println(s.String())
	if s.Repaired > 0 {
		fmt.Printf("Repaired %d replica(s)\n", s.Repaired)
	}
	if errLog != "" {
		fmt.Printf("Errors written to %s\n", errLog)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hardcpy",
	Short:        "Verifiable directory replication",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Catalog:        %s (%s)\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Engine:         %s (workers %d)\n", cfg.Engine.Default, cfg.Engine.Workers)
		fmt.Printf("Memory Ceiling: %s\n", humanize.IBytes(uint64(cfg.Hash.MemoryCeiling)))
		fmt.Printf("Chunk Size:     %s\n", humanize.IBytes(uint64(cfg.Hash.ChunkSize)))
		fmt.Printf("Ignore:         %v\n", cfg.Filesystem.Ignore)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "list", args)
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, b := range infos {
			fmt.Printf("%d\t%s\t%s\t%s files\n", b.ID, b.Source, b.Dest, humanize.Comma(int64(b.FileCount)))
		}
		return nil
	},
}

var softDeleteCmd = &cobra.Command{
	Use:   "soft-delete ID",
	Short: "Forget a backup, keeping its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "soft-delete", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SoftDelete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed backup %s from the catalog\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a backup and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "delete", args)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.Delete(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted backup %d (%s)\n", b.ID, b.Dest)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create SOURCE DESTINATION",
	Short: "Replicate SOURCE into DESTINATION and catalog it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "create", args)
		if err != nil {
			return err
		}
		defer a.Close()

		source, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		dest, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		summary, errLog, err := a.Create(cmd.Context(), source, dest)
		if err != nil {
			return fmt.Errorf("create failed: %w", err)
		}
		fmt.Printf("Backup %d: %s -> %s\n", summary.BackupID, summary.Source, summary.Dest)
		printSummary(summary, errLog)
		return nil
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert ID",
	Short: "Copy a backup back to where it was taken from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "revert", args)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, errLog, err := a.Revert(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("revert failed: %w", err)
		}
		printSummary(summary, errLog)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify ID",
	Short: "Re-hash a backup and repair damaged replicas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "verify", args)
		if err != nil {
			return err
		}
		defer a.Close()

		result, errLog, err := a.Verify(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
		fmt.Printf("Verified %s of %s files, repaired %s in %s (%d errors)\n",
			humanize.Comma(int64(result.Verified)),
			humanize.Comma(int64(result.Total)),
			humanize.Comma(int64(result.Repaired)),
			hc.FormatElapsed(result.Elapsed),
			result.ErrorCount(),
		)
		if errLog != "" {
			fmt.Printf("Errors written to %s\n", errLog)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(softDeleteCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().BoolP("multithread", "m", false, "Use the parallel engine")
	rootCmd.AddCommand(revertCmd)
	revertCmd.Flags().BoolP("multithread", "m", false, "Use the parallel engine")
	rootCmd.AddCommand(verifyCmd)
}
