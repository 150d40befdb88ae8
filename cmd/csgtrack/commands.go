package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/csgtrack/pkg/config"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/logging"
	"github.com/spf13/cobra"
)

// errInvalidModel is returned when a script fails to evaluate or validate.
var errInvalidModel = errors.New("model has errors")

// =============================================================================
// ROOT COMMAND
// =============================================================================

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "csgtrack",
		Short: "Evaluate CSG model scripts and track rays through them",
		Long: `csgtrack loads a model script (surfaces, materials and cells written
as boolean rules over signed surfaces) and answers geometric queries.

Subcommands:
  check   - Evaluate and validate a model
  locate  - Find the cell holding a point
  track   - Walk a segment through the model, cell by cell
  attn    - Attenuation-weighted path lengths from points to a target

Examples:
  csgtrack check examples/two_cubes.lisp
  csgtrack locate examples/two_cubes.lisp --at 0.5,0,0
  csgtrack track examples/two_cubes.lisp --from -2,0,0 --to 4,0,0 --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "write results as JSON")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log every track hop")

	root.AddCommand(
		newCheckCmd(opts),
		newLocateCmd(opts),
		newTrackCmd(opts),
		newAttnCmd(opts),
	)
	return root
}

// setup loads configuration and builds the logger.
func (o *rootOptions) setup(stderr io.Writer) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.verbose {
		cfg.Tracking.Verbose = true
		cfg.Log.Level = logging.LevelDebug.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logging.New(cfg.Logging(stderr))
	return nil
}

// load evaluates the model script at path and reports its findings.
func (o *rootOptions) load(cmd *cobra.Command, path string) (*App, EvalResult, error) {
	app, err := NewApp(o.cfg, o.logger)
	if err != nil {
		return nil, EvalResult{}, err
	}
	res, err := app.LoadFile(path)
	if err != nil {
		return nil, res, err
	}
	for _, w := range res.Warnings {
		o.logger.Warn("model warning", "cell", w.Cell, "message", w.Message)
	}
	if len(res.Errors) > 0 && !o.jsonOutput {
		for _, e := range res.Errors {
			printFinding(cmd.ErrOrStderr(), "error", e)
		}
	}
	if app.Model() == nil {
		return app, res, errInvalidModel
	}
	return app, res, nil
}

func (o *rootOptions) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFinding(w io.Writer, kind string, e EvalErrorData) {
	switch {
	case e.Line > 0:
		fmt.Fprintf(w, "%s: line %d: %s\n", kind, e.Line, e.Message)
	case e.Cell != 0:
		fmt.Fprintf(w, "%s: cell %d: %s\n", kind, e.Cell, e.Message)
	default:
		fmt.Fprintf(w, "%s: %s\n", kind, e.Message)
	}
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check MODEL",
		Short: "Evaluate and validate a model script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, res, err := opts.load(cmd, args[0])
			if err != nil && !errors.Is(err, errInvalidModel) {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if werr := opts.writeJSON(out, res); werr != nil {
					return werr
				}
			} else {
				for _, w := range res.Warnings {
					printFinding(out, "warning", w)
				}
				if app != nil && app.Model() != nil {
					fmt.Fprintf(out, "%d cells, %d surfaces, %d materials\n",
						len(res.Cells), app.Model().Surfaces().Len(), app.Model().Materials().Len())
				}
			}
			if err != nil || len(res.Errors) > 0 {
				return errInvalidModel
			}
			return nil
		},
	}
}

func newLocateCmd(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "locate MODEL",
		Short: "Find the cell holding a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := geom.ParseVec(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			app, _, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := app.Locate(p)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return opts.writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: cell %d (material %d)", geom.Format(p), res.Cell, res.Material)
			if len(res.OnSurfaces) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " on surfaces %v", res.OnSurfaces)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "point as x,y,z")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newTrackCmd(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "track MODEL",
		Short: "Walk a segment through the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := geom.ParseVec(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			b, err := geom.ParseVec(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			app, _, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := app.Track(a, b)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return opts.writeJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-8s %-24s %s\n", "cell", "surface", "exit", "length")
			for _, u := range res.Units {
				fmt.Fprintf(out, "%-6d %-8d %-24s %g\n",
					u.Cell, u.Surface, geom.Format(geom.V(u.Exit[0], u.Exit[1], u.Exit[2])), u.Length)
			}
			fmt.Fprintf(out, "total %g", res.Distance)
			if res.Terminated {
				fmt.Fprint(out, " (terminated)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start point as x,y,z")
	cmd.Flags().StringVar(&to, "to", "", "end point as x,y,z")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newAttnCmd(opts *rootOptions) *cobra.Command {
	var target string
	var origins []string
	cmd := &cobra.Command{
		Use:   "attn MODEL",
		Short: "Attenuation-weighted path lengths from points to a target",
		Long: `Track from each --from point to the --target point and report, per
cell holding an origin, the track length, the length through material
and the attenuation sum (length x atom density x meanA^0.66).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := geom.ParseVec(target)
			if err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			pts := make([]geom.Vec, 0, len(origins))
			for _, s := range origins {
				p, err := geom.ParseVec(s)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				pts = append(pts, p)
			}
			app, _, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			rows, trackErr := app.Attenuation(cmd.Context(), t, pts)
			if opts.jsonOutput {
				if err := opts.writeJSON(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-6s %-10s %-10s %s\n", "cell", "distance", "material", "attn")
				for _, r := range rows {
					fmt.Fprintf(out, "%-6d %-10.4g %-10.4g %.6g\n", r.Cell, r.Distance, r.MatSum, r.AttnSum)
				}
			}
			return trackErr
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "target point as x,y,z")
	cmd.Flags().StringArrayVar(&origins, "from", nil, "origin point as x,y,z (repeatable)")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
