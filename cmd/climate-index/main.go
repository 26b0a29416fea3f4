// Package main provides the climate-index command-line tool.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.ngs.io/climate-indices/internal/adapter/writer"
	"go.ngs.io/climate-indices/internal/app"
	"go.ngs.io/climate-indices/internal/config"
	"go.ngs.io/climate-indices/internal/domain"
	"go.ngs.io/climate-indices/internal/index"
	"go.ngs.io/climate-indices/internal/usecase"
)

const version = "0.1.0"

// Exit codes by error kind.
const (
	exitFailure      = 1
	exitPrecondition = 2
	exitDataQuality  = 3
	exitCollaborator = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.New(), os.Args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrPrecondition):
		return exitPrecondition
	case errors.Is(err, domain.ErrDataQuality):
		return exitDataQuality
	case errors.Is(err, domain.ErrCollaborator):
		return exitCollaborator
	default:
		return exitFailure
	}
}

func newRootCmd(v *viper.Viper, argv []string) *cobra.Command {
	var configFile string
	provenance := strings.Join(argv, " ")

	root := &cobra.Command{
		Use:   "climate-index",
		Short: "Compute climate indices from gridded NetCDF data",
		Long: `climate-index computes climate indices (NINO, IEMI, SAM, ZW3, MEX, ASL)
from gridded (time, lat, lon) NetCDF variables and writes the index time
series as NetCDF, Parquet or CSV.

Settings can be given in a configuration file (--config), as flags, or as
environment variables named CLIMIDX_<key>, e.g. CLIMIDX_READER=native.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if len(argv) > 1 {
		root.SetArgs(expandBaseArgs(argv[1:]))
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file (yaml, json or toml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("reader", config.ReaderNetCDF, "NetCDF reader: netcdf (C library) or native (pure Go)")
	flags.String("engine", string(index.EngineNative), "climatology engine for SAM, ZW3 and MEX: native or collaborator")
	flags.String("timescale", "", "climatology timescale: monthly or daily (default detected from the time axis)")
	bindFlags(v, flags, map[string]string{
		"log_level": "log-level",
		"reader":    "reader",
		"engine":    "engine",
		"timescale": "timescale",
	})

	setup := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return nil, err
		}
		return app.New(cmd.Context(), cfg)
	}

	root.AddCommand(
		newCalcCmd(setup, provenance),
		newBatchCmd(v, setup, provenance),
		newListCmd(),
		newRegionsCmd(),
		newShowCmd(),
	)
	return root
}

type setupFunc func(cmd *cobra.Command) (*app.App, error)

// bindFlags binds configuration keys to flags so that flags given on the
// command line override file and environment values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// expandBaseArgs rewrites "--base START END" into "--base=START,END" so the
// flag takes both dates. "--base START,END" and repeated --base flags pass
// through unchanged.
func expandBaseArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for k := 0; k < len(args); k++ {
		arg := args[k]
		if arg == "--" {
			return append(out, args[k:]...)
		}
		if arg == "--base" && k+2 < len(args) && isDate(args[k+1]) && isDate(args[k+2]) {
			out = append(out, "--base="+args[k+1]+","+args[k+2])
			k += 2
			continue
		}
		out = append(out, arg)
	}
	return out
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// parseBase checks the START and END values of the --base flag.
func parseBase(vals []string) (start, end string, err error) {
	if len(vals) == 0 {
		return "", "", nil
	}
	if len(vals) != 2 {
		return "", "", domain.Preconditionf("arguments", "--base takes START END (YYYY-MM-DD), got %q", strings.Join(vals, " "))
	}
	start, end = strings.TrimSpace(vals[0]), strings.TrimSpace(vals[1])
	if _, err := domain.ParseTimeRange(start, end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

func newCalcCmd(setup setupFunc, provenance string) *cobra.Command {
	var base []string
	cmd := &cobra.Command{
		Use:   "calc INDEX INFILE VARIABLE OUTFILE",
		Short: "Compute one index from one input file",
		Example: `  climate-index calc NINO34 tos_Omon_1950-2010.nc tos nino34.nc
  climate-index calc SAM psl_day.nc psl sam.csv.gz --base 1981-01-01 2010-12-31 --engine collaborator
  climate-index calc NINOCT tos_Omon_1950-2010.nc tos ninoct.parquet --base 1971-01-01,2000-12-31`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseBase(base)
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			resp, err := a.Compute.Execute(cmd.Context(), usecase.ComputeRequest{
				Index:      args[0],
				InFile:     args[1],
				Variable:   args[2],
				OutFile:    args[3],
				BaseStart:  start,
				BaseEnd:    end,
				Provenance: provenance,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringSliceVar(&base, "base", nil, "base period START END or START,END (default from configuration)")
	return cmd
}

func newBatchCmd(v *viper.Viper, setup setupFunc, provenance string) *cobra.Command {
	var (
		base   []string
		format string
	)
	cmd := &cobra.Command{
		Use:   "batch INDEX VARIABLE OUTDIR INFILE...",
		Short: "Compute one index for many input files concurrently",
		Example: `  climate-index batch NINO34 tos out/ tos_*.nc --format .csv.gz
  CLIMIDX_BATCH_CONCURRENCY=8 climate-index batch ZW3 zg out/ zg_*.nc --base 1981-01-01 2010-12-31`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseBase(base)
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			resp, err := a.Compute.ExecuteBatch(cmd.Context(), usecase.BatchRequest{
				Index:      args[0],
				Variable:   args[1],
				OutDir:     args[2],
				InFiles:    args[3:],
				Extension:  format,
				BaseStart:  start,
				BaseEnd:    end,
				Provenance: provenance,
			}, a.Config.Concurrency)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, resp); err != nil {
				return err
			}
			if len(resp.Failures) > 0 {
				return fmt.Errorf("%d of %d files failed", len(resp.Failures), len(args[3:]))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&base, "base", nil, "base period START END or START,END (default from configuration)")
	cmd.Flags().StringVar(&format, "format", ".nc", fmt.Sprintf("output format, one of %v", writer.Extensions))
	cmd.Flags().Int("concurrency", 4, "maximum number of files computed at once")
	bindFlags(v, cmd.Flags(), map[string]string{"batch.concurrency": "concurrency"})
	return cmd
}

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the supported indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return printJSON(cmd, index.Entries())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tFAMILY\tREGIONS\tCOLLABORATOR\tDESCRIPTION")
			for _, e := range index.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", e.Name, e.FamilyName, strings.Join(e.Regions, ","), e.Collaborator, e.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the named regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REGION\tSOUTH\tNORTH\tWEST\tEAST")
			for _, r := range domain.Regions() {
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\n", r.Name, r.South, r.North, r.West, r.East)
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print a CSV index file written by calc",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := writer.ReadCSV(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			header := []string{"DATE"}
			for _, s := range res.Series {
				header = append(header, s.Attrs.ID)
			}
			fmt.Fprintln(w, strings.Join(header, "\t"))
			for t, ts := range res.Time.Times {
				row := []string{ts.Format("2006-01-02")}
				for _, s := range res.Series {
					row = append(row, fmt.Sprintf("%.4f", s.Values[t]))
				}
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
			return w.Flush()
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
