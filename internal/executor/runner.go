package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Runner turns a job's source code into the output reported back to the
// marketplace. Compile and runtime failures are part of the output; an error
// means the job could not be attempted and should be retried.
type Runner interface {
	Run(ctx context.Context, requestID uint, codeText string) (string, error)
}

// CompilerRunner compiles C sources with OpenMP support and runs the binary.
type CompilerRunner struct {
	WorkDir  string
	Compiler string
	Timeout  time.Duration
}

var _ Runner = (*CompilerRunner)(nil)

func NewCompilerRunner(workDir, compiler string, timeout time.Duration) *CompilerRunner {
	if compiler == "" {
		compiler = "gcc"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CompilerRunner{WorkDir: workDir, Compiler: compiler, Timeout: timeout}
}

func (c *CompilerRunner) Run(ctx context.Context, requestID uint, codeText string) (string, error) {
	dir := filepath.Join(c.WorkDir, fmt.Sprintf("job_%d", requestID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	src := filepath.Join(dir, "job.c")
	exe := filepath.Join(dir, "job.out")
	if err := os.WriteFile(src, []byte(codeText), 0o644); err != nil {
		return "", fmt.Errorf("failed to write source: %w", err)
	}

	var compileErr bytes.Buffer
	compile := exec.CommandContext(ctx, c.Compiler, "-fopenmp", src, "-o", exe)
	compile.Stderr = &compileErr
	if err := compile.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return "COMPILATION ERROR:\n" + compileErr.String(), nil
		}
		return "", fmt.Errorf("failed to run compiler: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	run := exec.CommandContext(runCtx, exe)
	run.Dir = dir
	run.Stdout = &stdout
	run.Stderr = &stderr
	run.WaitDelay = time.Second

	err := run.Run()
	switch {
	case err == nil:
		return stdout.String(), nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("RUNTIME ERROR (timeout after %s):\n%s", c.Timeout, stderr.String()), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("RUNTIME ERROR (code %d):\n%s", exitErr.ExitCode(), stderr.String()), nil
	}
	return "", fmt.Errorf("failed to run job binary: %w", err)
}
