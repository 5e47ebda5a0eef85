package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/mic"
)

type options struct {
	configPath string
	ui         string
	logLevel   string
	storageDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "capture-tray",
		Short:         "Record the microphone to local or cloud storage",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	bindFlags(rootCmd, opts)
	rootCmd.AddCommand(newDevicesCmd(), newVersionCmd())
	return rootCmd
}

func bindFlags(cmd *cobra.Command, opts *options) {
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file (default is the platform config directory)")
	cmd.Flags().StringVar(&opts.ui, "ui", "",
		"User interface: tray or terminal")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&opts.storageDir, "storage-dir", "",
		"Directory for saved recordings when using the fs backend")
}

// loadConfig reads the config file and lets explicitly set flags override it
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("ui") {
		cfg.UI = opts.ui
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("storage-dir") {
		cfg.Storage.Dir = opts.storageDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfg.Path(), err)
	}
	return cfg, nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			microphone, err := mic.New(zerolog.Nop())
			if err != nil {
				return fmt.Errorf("failed to initialize audio: %w", err)
			}
			defer microphone.Close()

			devices, err := microphone.ListDevices()
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEFAULT")
			for _, d := range devices {
				def := ""
				if d.Default {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, def)
			}
			return w.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "capture-tray %s (%s)\n", Version, Commit)
		},
	}
}
