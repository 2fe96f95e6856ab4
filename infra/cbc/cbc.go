// Package cbc runs models through the COIN-OR CBC command line solver.
package cbc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mishra-lab/scheduler/core/logger"
	"github.com/mishra-lab/scheduler/core/mip"
)

// Config configures the CBC backend.
type Config struct {
	// Path is the cbc executable; empty means look it up on PATH.
	Path string `json:"path"`
	// TimeLimitSeconds is passed as -sec when positive.
	TimeLimitSeconds int `json:"time_limit_seconds"`
	// Threads is passed as -threads when positive.
	Threads int `json:"threads"`
	// KeepFiles leaves the model and solution files in WorkDir.
	KeepFiles bool   `json:"keep_files"`
	WorkDir   string `json:"work_dir"`
}

// Solver implements mip.Solver by writing the model in LP format and parsing
// the solution file produced by cbc.
type Solver struct {
	cfg    Config
	log    logger.Logger
	lookup func(string) (string, error)
	run    func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

// New returns a CBC-backed solver.
func New(cfg Config, log logger.Logger) *Solver {
	return &Solver{cfg: cfg, log: logger.OrNop(log), lookup: exec.LookPath, run: runCommand}
}

func runCommand(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// Available reports whether the executable can be found.
func (s *Solver) Available() error {
	_, err := s.binary()
	return err
}

func (s *Solver) binary() (string, error) {
	name := s.cfg.Path
	if name == "" {
		name = "cbc"
	}
	bin, err := s.lookup(name)
	if err != nil {
		return "", fmt.Errorf("%w: cbc executable %q: %v", mip.ErrSolverUnavailable, name, err)
	}
	return bin, nil
}

// Solve implements mip.Solver.
func (s *Solver) Solve(ctx context.Context, m *mip.Model) (*mip.Solution, error) {
	bin, err := s.binary()
	if err != nil {
		return &mip.Solution{Status: mip.StatusError}, err
	}
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "cbc-*")
	if err != nil {
		return &mip.Solution{Status: mip.StatusError}, fmt.Errorf("cbc workdir: %w", err)
	}
	if !s.cfg.KeepFiles {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				s.log.Warnf("cbc cleanup %s: %v", dir, err)
			}
		}()
	}

	modelPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "solution.txt")
	if err := writeModel(modelPath, m); err != nil {
		return &mip.Solution{Status: mip.StatusError}, err
	}

	args := []string{modelPath}
	if s.cfg.TimeLimitSeconds > 0 {
		args = append(args, "-sec", strconv.Itoa(s.cfg.TimeLimitSeconds))
	}
	if s.cfg.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(s.cfg.Threads))
	}
	args = append(args, "-solve", "-solu", solPath)

	start := time.Now()
	s.log.Debugf("running %s %s", bin, strings.Join(args, " "))
	out, err := s.run(ctx, bin, args...)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return &mip.Solution{Status: mip.StatusLimit, Duration: elapsed}, nil
	}
	if err != nil {
		return &mip.Solution{Status: mip.StatusError, Duration: elapsed}, fmt.Errorf("cbc: %w: %s", err, tail(out))
	}

	f, err := os.Open(solPath)
	if err != nil {
		return &mip.Solution{Status: mip.StatusError, Duration: elapsed}, fmt.Errorf("cbc solution: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warnf("close cbc solution: %v", err)
		}
	}()
	sol, err := ParseSolution(f, m)
	if err != nil {
		return &mip.Solution{Status: mip.StatusError, Duration: elapsed}, err
	}
	sol.Duration = elapsed
	return sol, nil
}

func writeModel(path string, m *mip.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc model: %w", err)
	}
	if err := mip.WriteLP(f, m); err != nil {
		_ = f.Close()
		return fmt.Errorf("cbc model: %w", err)
	}
	return f.Close()
}

// ParseSolution reads a CBC solution file. Variables missing from the file are
// zero; the objective is recomputed from the values.
func ParseSolution(r io.Reader, m *mip.Model) (*mip.Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc solution: %w", err)
		}
		return nil, errors.New("cbc solution: empty file")
	}
	header := strings.ToLower(strings.TrimSpace(sc.Text()))
	sol := &mip.Solution{Status: parseStatus(header)}
	switch sol.Status {
	case mip.StatusInfeasible:
		return sol, nil
	case mip.StatusError:
		return sol, fmt.Errorf("cbc solution: unexpected status line %q", header)
	}

	sol.Values = make([]float64, m.NumVars())
	for sc.Scan() {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(fields) < 3 {
			continue
		}
		v, ok := m.Var(fields[1])
		if !ok {
			// Constraint rows share the format; skip unknown names.
			continue
		}
		val, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc solution: value for %s: %w", fields[1], err)
		}
		sol.Values[v.ID] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc solution: %w", err)
	}
	for _, v := range m.Vars() {
		if v.Integer {
			sol.Values[v.ID] = roundInt(sol.Values[v.ID])
		}
	}
	obj, _ := m.Objective()
	sol.Objective = obj.Eval(sol.Values)
	return sol, nil
}

func parseStatus(header string) mip.Status {
	switch {
	case strings.HasPrefix(header, "optimal"):
		return mip.StatusOptimal
	case strings.Contains(header, "infeasible"):
		return mip.StatusInfeasible
	case strings.HasPrefix(header, "stopped"):
		return mip.StatusLimit
	default:
		return mip.StatusError
	}
}

func roundInt(f float64) float64 {
	if f < 0 {
		return -float64(int64(-f + 0.5))
	}
	return float64(int64(f + 0.5))
}

func tail(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
