// cnt-dump inspects CNT recordings: header metadata, channel table,
// annotations, and impedance snapshots.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/proloyd/cntio"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// fileConfig supplies default reader options from a TOML file, so repeated
// inspection of the same study does not need the flags every time.
type fileConfig struct {
	ImpedanceAnnotation string   `toml:"impedance_annotation"`
	EOG                 []string `toml:"eog"`
	MiscNone            bool     `toml:"misc_none"`
	Preload             bool     `toml:"preload"`
}

type rootFlags struct {
	configPath          string
	impedanceAnnotation string
	eog                 []string
	miscNone            bool
	preload             bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "cnt-dump",
		Short: "Inspect CNT continuous-EEG recordings",
		Long:  "A command line tool that dumps the header, channel table, annotations and impedance snapshots of CNT recordings.",
	}

	rootCmd.Version = cntio.Version
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "TOML file with default reader options")
	rootCmd.PersistentFlags().StringVar(&flags.impedanceAnnotation, "impedance-annotation", "", "description given to impedance annotations")
	rootCmd.PersistentFlags().StringSliceVar(&flags.eog, "eog", nil, "channel labels reclassified as ocular")
	rootCmd.PersistentFlags().BoolVar(&flags.miscNone, "misc-none", false, "treat every channel as signal")
	rootCmd.PersistentFlags().BoolVar(&flags.preload, "preload", false, "decode all sample blocks up front")

	rootCmd.AddCommand(newInfoCmd(flags))
	rootCmd.AddCommand(newEventsCmd(flags))
	rootCmd.AddCommand(newImpedancesCmd(flags))

	return rootCmd
}

// options merges the config file (if any) with command line flags; flags
// win.
func (f *rootFlags) options(cmd *cobra.Command) ([]cntio.Option, error) {
	var cfg fileConfig
	if f.configPath != "" {
		if _, err := toml.DecodeFile(f.configPath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	var opts []cntio.Option
	if f.preload || cfg.Preload {
		opts = append(opts, cntio.WithPreload())
	}
	if f.miscNone || cfg.MiscNone {
		opts = append(opts, cntio.WithoutMisc())
	}
	eog := cfg.EOG
	if cmd.Flags().Changed("eog") {
		eog = f.eog
	}
	if len(eog) > 0 {
		opts = append(opts, cntio.WithEOG(eog...))
	}
	marker := cfg.ImpedanceAnnotation
	if cmd.Flags().Changed("impedance-annotation") {
		marker = f.impedanceAnnotation
	}
	if marker != "" {
		opts = append(opts, cntio.WithImpedanceAnnotation(marker))
	}
	return opts, nil
}

func openAll(cmd *cobra.Command, flags *rootFlags, paths []string) ([]*cntio.Recording, error) {
	opts, err := flags.options(cmd)
	if err != nil {
		return nil, err
	}
	return cntio.OpenMany(cmd.Context(), paths, opts...)
}

func newInfoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>...",
		Short: "Dump header metadata and the channel table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := openAll(cmd, flags, args)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				defer rec.Close()
				printInfo(rec)
			}
			return nil
		},
	}
}

func printInfo(rec *cntio.Recording) {
	fmt.Printf("%s\n", rec.Path)
	fmt.Printf("  sample rate:   %g Hz\n", rec.SampleRate)
	fmt.Printf("  samples:       %d (%.3f s)\n", rec.NSamples, float64(rec.NSamples)/rec.SampleRate)
	fmt.Printf("  measured:      %s\n", rec.MeasDate.Format("2006-01-02 15:04:05 -0700"))
	fmt.Printf("  subject:       %q id=%q sex=%d", rec.Subject.Name, rec.Subject.ID, rec.Subject.Sex)
	if !rec.Subject.Birthday.IsZero() {
		fmt.Printf(" birthday=%s", rec.Subject.Birthday.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Printf("  device:        %s %s serial=%q\n", rec.Device.Manufacturer, rec.Device.Model, rec.Device.Serial)
	for _, w := range rec.Warnings {
		fmt.Printf("  warning:       %s\n", w)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  LABEL\tTYPE\tUNIT\tREFERENCE")
	for _, ch := range rec.Channels {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", ch.Label, ch.Type, ch.Unit, ch.Reference)
	}
	tw.Flush()
}

func newEventsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "events <file>...",
		Short: "Dump annotations and segments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := openAll(cmd, flags, args)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				defer rec.Close()
				fmt.Printf("%s\n", rec.Path)
				tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "  ONSET\tDURATION\tDESCRIPTION")
				for _, a := range rec.Annotations {
					fmt.Fprintf(tw, "  %.4f\t%.4f\t%s\n", a.Onset, a.Duration, a.Description)
				}
				tw.Flush()
				for i, seg := range rec.Segments {
					fmt.Printf("  segment %d: samples [%d, %d)\n", i, seg.Start, seg.Stop)
				}
			}
			return nil
		},
	}
}

func newImpedancesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "impedances <file>...",
		Short: "Dump impedance snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := openAll(cmd, flags, args)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				defer rec.Close()
				fmt.Printf("%s: %d snapshot(s)\n", rec.Path, len(rec.Impedances))
				for i, imp := range rec.Impedances {
					fmt.Printf("  snapshot %d:\n", i)
					for _, label := range imp.Labels {
						fmt.Printf("    %s\t%g\n", label, imp.Values[label])
					}
				}
			}
			return nil
		},
	}
}
