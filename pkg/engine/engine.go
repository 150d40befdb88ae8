// Package engine provides the Lisp evaluation engine for model scripts.
// It wraps zygomys in a sandboxed environment and produces a finalized
// geometry.Model from user source code.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/csgtrack/pkg/geometry"
	"github.com/chazu/csgtrack/pkg/material"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a model that
// does not finalize.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for model evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh model.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	logger  *slog.Logger
	mats    []*material.Material
}

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult carries an evaluation outcome back from its goroutine.
type evalResult struct {
	model  *geometry.Model
	errors []EvalError
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a single evaluation. Non-positive values keep
// EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger handed to every model built.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaterials preloads every material of db into each model before the
// script runs.
func WithMaterials(db *material.DB) Option {
	return func(e *Engine) {
		for _, id := range db.IDs() {
			if id == 0 {
				continue
			}
			m, err := db.Get(id)
			if err == nil {
				e.mats = append(e.mats, m)
			}
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Evaluate takes Lisp source code and produces a finalized Model.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns model + nil errors + nil error
//   - On parse/eval/finalize failure: returns nil model + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*geometry.Model, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{model: m, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// await returns the result of evaluation gen from ch, or an error once the
// engine's timeout passes. A result whose generation is no longer current
// is discarded. On timeout the evaluating goroutine keeps running; its
// result is dropped by the generation check when it completes.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*geometry.Model, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.model, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", e.timeout)
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*geometry.Model, []EvalError, error) {
	m := geometry.New(geometry.WithLogger(e.logger))
	for _, mat := range e.mats {
		if err := m.AddMaterial(mat); err != nil {
			return nil, nil, fmt.Errorf("preloading materials: %w", err)
		}
	}

	// Empty source is a valid program that produces an empty model.
	if strings.TrimSpace(source) != "" {
		// Sandbox mode prevents user code from accessing the filesystem or syscalls.
		env := zygo.NewZlispSandbox()
		defer env.Stop()

		b := newBuilder(m)
		registerBuiltins(env, b)

		if err := env.LoadString(preprocessSource(source)); err != nil {
			return nil, parseZygomysError(err), nil
		}
		if _, err := env.Run(); err != nil {
			return nil, parseZygomysError(err), nil
		}
		e.logger.Debug("model script evaluated",
			"cells", len(m.CellNames()),
			"surfaces", m.Surfaces().Len(),
			"materials", m.Materials().Len())
	}

	if err := m.Finalize(); err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	return m, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
