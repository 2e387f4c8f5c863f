// Command attachctl stores, locates and deletes attachments directly against
// the configured storage backend, without the database.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"attachr/internal/attachment"
	"attachr/internal/config"
	"attachr/internal/metrics"
	"attachr/internal/storage"
	"attachr/internal/transform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	definitionsPath string
	scope           map[string]string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "attachctl",
		Short: "Store, locate and delete attachments",
		Long: `attachctl runs attachment definitions against the storage backend selected
by the ATTACHR_ environment. No database is involved, so url and delete take
the basename printed by store.

Examples:
  attachctl store avatar ./me.png --scope user_id=42
  attachctl url avatar me.png --version thumb --signed --ttl 10m
  attachctl delete avatar me.png --scope user_id=42`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.definitionsPath, "definitions", "", "Definitions file (default: ATTACHR_DEFINITIONS_PATH)")
	rootCmd.PersistentFlags().StringToStringVar(&c.scope, "scope", nil, "Scope values as key=value pairs")

	rootCmd.AddCommand(c.storeCmd(), c.urlCmd(), c.deleteCmd(), c.definitionsCmd())
	return rootCmd
}

// attacher loads config and definitions and builds the Attacher for name.
func (c *cli) attacher(name string) (*attachment.Attacher, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	registry, err := c.registry(cfg)
	if err != nil {
		return nil, err
	}
	def, err := registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}
	backend, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Storage.Backend, err)
	}
	pipeline := transform.NewPipeline(transform.NewExecRunner(), cfg.Transform.TempDir, cfg.Transform.Timeout())
	return attachment.NewAttacher(def, backend, pipeline, attachment.OptionsFromConfig(cfg, metrics.Nop{})), nil
}

func (c *cli) registry(cfg *config.Config) (*attachment.Registry, error) {
	path := cfg.Definitions.Path
	if c.definitionsPath != "" {
		path = c.definitionsPath
	}
	return attachment.LoadRegistry(path, attachment.DefaultsFromConfig(cfg))
}

func (c *cli) storeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store <definition> <file>",
		Short: "Store a file and all of its versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.attacher(args[0])
			if err != nil {
				return err
			}
			result, storeErr := a.Store(cmd.Context(), attachment.PathSource{Path: args[1]}, c.scope)
			if result == nil {
				return storeErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "basename: %s\n", result.Basename)
			for _, v := range result.Versions {
				switch {
				case v.Skipped:
					fmt.Fprintf(out, "  %-12s skipped\n", v.Version)
				case v.Err != nil:
					fmt.Fprintf(out, "  %-12s FAILED  %v\n", v.Version, v.Err)
				default:
					fmt.Fprintf(out, "  %-12s %s\n", v.Version, v.Key)
				}
			}
			return storeErr
		},
	}
}

func (c *cli) urlCmd() *cobra.Command {
	var opts attachment.URLOptions
	var all bool

	cmd := &cobra.Command{
		Use:   "url <definition> <basename>",
		Short: "Print the URL of a stored version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.attacher(args[0])
			if err != nil {
				return err
			}
			ref := attachment.Ref{Basename: args[1], Scope: c.scope}
			out := cmd.OutOrStdout()

			if all {
				urls, err := a.URLs(cmd.Context(), ref, opts.Signed)
				if err != nil {
					return err
				}
				versions := make([]string, 0, len(urls))
				for v := range urls {
					versions = append(versions, v)
				}
				sort.Strings(versions)
				for _, v := range versions {
					fmt.Fprintf(out, "%-12s %s\n", v, deref(urls[v]))
				}
				return nil
			}

			u, err := a.URL(cmd.Context(), ref, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, deref(u))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Version, "version", "", "Version (default: first declared version)")
	cmd.Flags().BoolVar(&opts.Signed, "signed", false, "Build a time-limited signed URL")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "Signed URL lifetime (default: definition setting)")
	cmd.Flags().BoolVar(&all, "all", false, "Print every version")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <definition> <basename>",
		Short: "Delete every stored version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.attacher(args[0])
			if err != nil {
				return err
			}
			report, err := a.Delete(cmd.Context(), attachment.Ref{Basename: args[1], Scope: c.scope})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, key := range report.Deleted {
				fmt.Fprintf(out, "deleted %s\n", key)
			}
			for _, v := range report.Skipped {
				fmt.Fprintf(out, "skipped %s\n", v)
			}
			return report.Err()
		},
	}
}

func (c *cli) definitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "definitions",
		Short: "List configured attachment definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			registry, err := c.registry(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range registry.Names() {
				def, _ := registry.Get(name)
				fmt.Fprintf(out, "%-16s versions=%v signed_ttl=%s\n", name, def.VersionList(), def.SignedURLTTL)
			}
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
