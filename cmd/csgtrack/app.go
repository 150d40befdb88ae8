package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chazu/csgtrack/pkg/config"
	"github.com/chazu/csgtrack/pkg/engine"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/geometry"
	"github.com/chazu/csgtrack/pkg/material"
	"github.com/chazu/csgtrack/pkg/rule"
	"github.com/chazu/csgtrack/pkg/track"
)

// App evaluates a model script and answers queries against the result.
// Its result types are JSON-serializable for --json output.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	logger *slog.Logger
	model  *geometry.Model
}

// EvalErrorData is a JSON-serializable eval error or validation finding.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Cell    int    `json:"cell,omitempty"`
	Message string `json:"message"`
}

// CellData summarises one cell of the evaluated model.
type CellData struct {
	Name       int     `json:"name"`
	Material   int     `json:"material"`
	Temp       float64 `json:"temp"`
	Rule       string  `json:"rule"`
	Importance string  `json:"importance"`
}

// EvalResult is the outcome of evaluating and validating a script.
type EvalResult struct {
	Cells    []CellData      `json:"cells"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// UnitData is one hop of a track.
type UnitData struct {
	Cell    int        `json:"cell"`
	Surface int        `json:"surface"`
	Exit    [3]float64 `json:"exit"`
	Length  float64    `json:"length"`
}

// TrackResult is a computed track.
type TrackResult struct {
	From       [3]float64 `json:"from"`
	To         [3]float64 `json:"to"`
	Units      []UnitData `json:"units"`
	Distance   float64    `json:"distance"`
	Terminated bool       `json:"terminated"`
}

// LocateResult names the cell holding a point.
type LocateResult struct {
	Point      [3]float64 `json:"point"`
	Cell       int        `json:"cell"`
	Material   int        `json:"material"`
	OnSurfaces []int      `json:"on_surfaces,omitempty"`
}

// AttnData is the attenuation summary of one cell's track.
type AttnData struct {
	Cell     int     `json:"cell"`
	Distance float64 `json:"distance"`
	MatSum   float64 `json:"mat_sum"`
	AttnSum  float64 `json:"attn_sum"`
}

// NewApp creates an App with an engine configured from cfg.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []engine.Option{
		engine.WithTimeout(time.Duration(cfg.Engine.Timeout)),
		engine.WithLogger(logger),
	}
	if cfg.Engine.Materials != "" {
		db := material.NewDB()
		if err := db.LoadFile(cfg.Engine.Materials); err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithMaterials(db))
	}
	rule.MaxPairedSurfaces = cfg.Rule.MaxPairedSurfaces
	return &App{cfg: cfg, engine: engine.NewEngine(opts...), logger: logger}, nil
}

// Model returns the last successfully evaluated model, or nil.
func (a *App) Model() *geometry.Model { return a.model }

// LoadFile evaluates the script at path.
func (a *App) LoadFile(path string) (EvalResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, err
	}
	return a.Evaluate(string(source)), nil
}

// Evaluate runs a model script. On success the model is kept for later
// queries and validation warnings are reported.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Cells:    []CellData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	a.model = nil

	// Step 1: Evaluate the script into a finalized model.
	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Error("evaluate fatal error", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Validate.
	for _, v := range geometry.Validate(m) {
		d := EvalErrorData{Cell: v.Cell, Message: v.Message}
		if v.Severity == geometry.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}

	// Step 3: Summarise cells.
	for _, o := range m.Cells() {
		result.Cells = append(result.Cells, CellData{
			Name:       o.Name(),
			Material:   o.MaterialID(),
			Temp:       o.Temp(),
			Rule:       o.Rule().String(),
			Importance: o.Importance().String(),
		})
	}
	a.model = m
	return result
}

func (a *App) trackOptions() track.Options {
	return track.Options{
		MaxHops: a.cfg.Tracking.MaxHops,
		Verbose: a.cfg.Tracking.Verbose,
		Logger:  a.logger,
	}
}

func (a *App) requireModel() error {
	if a.model == nil {
		return fmt.Errorf("no model loaded")
	}
	return nil
}

// Track walks the segment from..to through the model.
func (a *App) Track(from, to geom.Vec) (TrackResult, error) {
	if err := a.requireModel(); err != nil {
		return TrackResult{}, err
	}
	lt := track.NewLineTrack(from, to)
	lt.Options = a.trackOptions()
	if err := lt.Calculate(a.model); err != nil {
		return TrackResult{}, err
	}
	res := TrackResult{
		From:       array(from),
		To:         array(to),
		Units:      []UnitData{},
		Distance:   lt.TrackDistance(),
		Terminated: lt.Terminated(),
	}
	for _, u := range lt.Units() {
		res.Units = append(res.Units, UnitData{
			Cell:    u.CellNumber,
			Surface: u.SurfNumber,
			Exit:    array(u.ExitPoint),
			Length:  u.SegmentLength,
		})
	}
	return res, nil
}

// Locate finds the cell holding p.
func (a *App) Locate(p geom.Vec) (LocateResult, error) {
	if err := a.requireModel(); err != nil {
		return LocateResult{}, err
	}
	o, err := a.model.FindCell(p, nil)
	if err != nil {
		return LocateResult{}, err
	}
	return LocateResult{
		Point:      array(p),
		Cell:       o.Name(),
		Material:   o.MaterialID(),
		OnSurfaces: o.IsOnSurface(p),
	}, nil
}

// Attenuation tracks from each origin to target. Origins are keyed by the
// cell they lie in; later origins in the same cell replace earlier ones.
// Tracks that fail are reported in the error while the rest are returned.
func (a *App) Attenuation(ctx context.Context, target geom.Vec, origins []geom.Vec) ([]AttnData, error) {
	if err := a.requireModel(); err != nil {
		return nil, err
	}
	points := make(map[int]geom.Vec, len(origins))
	for _, p := range origins {
		o, err := a.model.FindCell(p, nil)
		if err != nil {
			return nil, fmt.Errorf("origin %s: %w", geom.Format(p), err)
		}
		points[o.Name()] = p
	}

	act := track.NewObjectTrackAct(target, a.trackOptions())
	trackErr := act.CreateAll(ctx, a.model, points, a.cfg.Tracking.Workers)

	var out []AttnData
	for _, cn := range act.Cells() {
		d, err := act.GetDistance(cn)
		if err != nil {
			continue
		}
		mat, _ := act.GetMatSum(cn)
		attn, _ := act.GetAttnSum(cn)
		out = append(out, AttnData{Cell: cn, Distance: d, MatSum: mat, AttnSum: attn})
	}
	return out, trackErr
}

func array(v geom.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
