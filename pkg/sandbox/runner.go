package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Verdict classifies the outcome of one test-case execution. VerdictAccepted
// means the program ran to completion with exit code zero; whether its output
// matches the expected answer is decided by the caller, which is the only
// place that can see the expected output.
type Verdict string

// Execution verdicts.
const (
	VerdictAccepted            Verdict = "AC"
	VerdictWrongAnswer         Verdict = "WA"
	VerdictTimeLimitExceeded   Verdict = "TLE"
	VerdictMemoryLimitExceeded Verdict = "MLE"
	VerdictRuntimeError        Verdict = "RE"
	VerdictCompilationError    Verdict = "CE"
)

// ExecutionResult is the outcome of running a submission against one input.
type ExecutionResult struct {
	Success   bool
	Output    string
	Error     string
	RuntimeMs int64
	MemoryKB  int64
	Verdict   Verdict
}

// RunnerConfig groups runner configuration knobs.
type RunnerConfig struct {
	// WorkspaceRoot is where per-execution scratch directories are created.
	WorkspaceRoot string
	// CompileTimeout bounds the compile phase for compiled languages.
	CompileTimeout time.Duration
}

// Runner prepares a disposable workspace and drives the isolation layer to
// compile and execute submitted code against a single input.
type Runner struct {
	engine ContainerRunner
	cfg    RunnerConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewRunner constructs a sandbox runner on top of a container runner.
func NewRunner(engine ContainerRunner, cfg RunnerConfig, logger zerolog.Logger) *Runner {
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = 30 * time.Second
	}

	return &Runner{
		engine: engine,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/codearena/arena-go-api/pkg/sandbox"),
		logger: logger.With().Str("component", "sandbox_runner").Logger(),
	}
}

// Run executes code against one input under the given limits. Failures are
// encoded in the result verdict; Run never returns an error to the caller.
func (r *Runner) Run(ctx context.Context, code, language, input string, timeLimitMs, memoryLimitMB int) ExecutionResult {
	ctx, span := r.tracer.Start(ctx, "sandbox.runner.run", trace.WithAttributes(
		attribute.String("sandbox.language", language),
	))
	defer span.End()

	cfg, err := LookupLanguage(language)
	if err != nil {
		return infrastructureFailure(err)
	}

	workspace := filepath.Join(r.cfg.WorkspaceRoot, "judge-"+uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return infrastructureFailure(fmt.Errorf("create workspace: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			r.logger.Error().Err(err).Str("workspace", workspace).Msg("failed to remove workspace")
		}
	}()

	if err := os.WriteFile(filepath.Join(workspace, cfg.FileName), []byte(code), 0o600); err != nil {
		return infrastructureFailure(fmt.Errorf("write source: %w", err))
	}
	if err := os.WriteFile(filepath.Join(workspace, "input.txt"), []byte(input), 0o600); err != nil {
		return infrastructureFailure(fmt.Errorf("write input: %w", err))
	}

	if cfg.Compiled {
		compile, err := r.engine.Run(ctx, ContainerRequest{
			Image:         cfg.Image,
			Cmd:           []string{"/bin/sh", "-c", cfg.CompileCmd},
			Workspace:     workspace,
			MemoryLimitMB: int64(memoryLimitMB),
			Timeout:       r.cfg.CompileTimeout,
		})
		if err != nil {
			r.logger.Error().Err(err).Str("language", language).Msg("compile phase failed at isolation layer")
			return infrastructureFailure(err)
		}
		if compile.TimedOut {
			return ExecutionResult{Verdict: VerdictCompilationError, Error: "compilation timed out"}
		}
		if compile.ExitCode != 0 {
			return ExecutionResult{
				Verdict: VerdictCompilationError,
				Error:   combineOutput(compile.Stdout, compile.Stderr),
			}
		}
	}

	run, err := r.engine.Run(ctx, ContainerRequest{
		Image:         cfg.Image,
		Cmd:           []string{"/bin/sh", "-c", cfg.RunCmd + " < input.txt"},
		Workspace:     workspace,
		MemoryLimitMB: int64(memoryLimitMB),
		Timeout:       time.Duration(timeLimitMs) * time.Millisecond,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("language", language).Msg("run phase failed at isolation layer")
		return infrastructureFailure(err)
	}

	switch {
	case run.TimedOut:
		// The measured wall clock is meaningless once the process has been
		// killed, so the limit itself is reported as the runtime.
		return ExecutionResult{
			Verdict:   VerdictTimeLimitExceeded,
			RuntimeMs: int64(timeLimitMs),
		}
	case run.OOMKilled:
		return ExecutionResult{
			Verdict:   VerdictMemoryLimitExceeded,
			Error:     combineOutput(run.Stdout, run.Stderr),
			RuntimeMs: run.Duration.Milliseconds(),
			MemoryKB:  run.MemoryUsageBytes / 1024,
		}
	case run.ExitCode != 0:
		return ExecutionResult{
			Verdict:   VerdictRuntimeError,
			Error:     combineOutput(run.Stdout, run.Stderr),
			RuntimeMs: run.Duration.Milliseconds(),
			MemoryKB:  run.MemoryUsageBytes / 1024,
		}
	default:
		return ExecutionResult{
			Success:   true,
			Verdict:   VerdictAccepted,
			Output:    strings.TrimSpace(run.Stdout),
			RuntimeMs: run.Duration.Milliseconds(),
			MemoryKB:  run.MemoryUsageBytes / 1024,
		}
	}
}

func infrastructureFailure(err error) ExecutionResult {
	return ExecutionResult{Verdict: VerdictRuntimeError, Error: err.Error()}
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}
