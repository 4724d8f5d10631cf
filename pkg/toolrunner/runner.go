// Package toolrunner invokes the external media tools (transcoder, speech
// recognizer) with a hard timeout and maps every way a run can go wrong onto
// a distinct error type, so stage handlers can report failures precisely
// instead of logging and moving on.
package toolrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// SpawnError indicates the executable could not be started at all,
// typically because it is not installed or not on PATH.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %s", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// NonZeroExitError indicates the tool ran but exited with a failure code.
// Output holds the combined stdout/stderr for diagnostics.
type NonZeroExitError struct {
	Executable string
	Code       int
	Output     string
}

func (e *NonZeroExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Executable, e.Code)
}

// TimeoutError indicates the tool exceeded its allotted run time and was
// killed.
type TimeoutError struct {
	Executable string
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Executable, e.Timeout)
}

// MissingOutputError indicates the tool exited cleanly but the output file it
// was expected to produce does not exist. Guards against tool version drift
// changing output naming conventions.
type MissingOutputError struct {
	Path string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("expected tool output missing: %s", e.Path)
}

// Runner runs external executables.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

// waitDelay bounds how long Run keeps reading the tool's output pipes after
// the process is gone.
const waitDelay = 3 * time.Second

// Run executes the tool and waits for it to finish, up to timeout. The tool
// and every process it forked are killed when the timeout expires. A
// canceled parent context (worker shutdown) is returned as the context
// error, not as a tool failure.
func (r *Runner) Run(ctx context.Context, executable string, args []string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, executable, args...)
	// The tool gets its own process group so cancellation kills the whole
	// tree: the recognizer forks the transcoder underneath itself, and
	// killing only the direct child would leave the fork running and the
	// output pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	// Clean exit with a descendant still holding the pipes; the output is
	// diagnostics only, so losing its tail is fine.
	if errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Executable: executable, Timeout: timeout}
	}
	if runCtx.Err() != nil {
		return runCtx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &NonZeroExitError{
			Executable: executable,
			Code:       exitErr.ExitCode(),
			Output:     string(output),
		}
	}

	return &SpawnError{Executable: executable, Err: err}
}

// EnsureOutput verifies that the output file a tool derives from its input
// path actually exists after a clean run.
func EnsureOutput(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &MissingOutputError{Path: path}
	}
	return nil
}
