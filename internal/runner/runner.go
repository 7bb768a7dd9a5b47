package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// Policy defines resource limits for sandbox execution.
type Policy struct {
	Timeout   time.Duration // wall-clock limit for the whole run
	MaxOutput int64         // per-stream captured output limit in bytes
	TempRoot  string        // parent for per-run workspaces; "" means os.TempDir
}

// DefaultPolicy returns the limits applied to collaborative runs.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:   5 * time.Second,
		MaxOutput: 1 << 20, // 1 MiB
	}
}

// Result is the normalized outcome of one execution. Execute always produces
// a Result; internal failures are encoded, never raised.
type Result struct {
	Succeeded      bool      `json:"succeeded"`
	StandardOutput string    `json:"standardOutput"`
	StandardError  string    `json:"standardError"`
	ProducedAt     time.Time `json:"producedAt"`
}

// Runner executes untrusted source text under a child process with a hard
// timeout and output cap. Each run gets its own workspace directory with a
// collision-free random name, removed unconditionally when the run finishes.
type Runner struct {
	policy     Policy
	toolchains Toolchains
}

// New creates a Runner with the given policy.
func New(policy Policy) *Runner {
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultPolicy().Timeout
	}
	if policy.MaxOutput <= 0 {
		policy.MaxOutput = DefaultPolicy().MaxOutput
	}
	return &Runner{policy: policy}
}

// SetToolchains installs per-language argv overrides.
func (r *Runner) SetToolchains(tc Toolchains) {
	r.toolchains = tc
}

// Execute materializes source into an isolated workspace, runs the language's
// toolchain and returns the captured outcome. It never returns an error: a
// write fault, compile error, runtime fault, timeout or oversized output all
// come back as Succeeded=false with a diagnostic in StandardError.
func (r *Runner) Execute(ctx context.Context, source string, lang Language) Result {
	dir, err := os.MkdirTemp(r.policy.TempRoot, "coderoom-run-*")
	if err != nil {
		return failure(fmt.Sprintf("creating workspace: %v", err))
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, lang.SourceFile())
	if err := os.WriteFile(src, []byte(source), 0o644); err != nil {
		return failure(fmt.Sprintf("writing source: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	stdout := newCapWriter(r.policy.MaxOutput, cancel)
	stderr := newCapWriter(r.policy.MaxOutput, cancel)

	steps := r.toolchains.steps(lang, dir, src, filepath.Join(dir, "main"))
	if steps == nil {
		steps = lang.steps(dir)
	}

	var runErr error
	for _, argv := range steps {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		supervise(cmd)
		if runErr = cmd.Run(); runErr != nil {
			break
		}
	}

	res := Result{
		Succeeded:      runErr == nil,
		StandardOutput: stdout.String(),
		StandardError:  stderr.String(),
		ProducedAt:     time.Now().UTC(),
	}

	switch {
	case runErr == nil:
	case stdout.Exceeded() || stderr.Exceeded():
		res.StandardError = appendDiagnostic(res.StandardError,
			fmt.Sprintf("output limit of %d bytes exceeded", r.policy.MaxOutput))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.StandardError = appendDiagnostic(res.StandardError,
			fmt.Sprintf("execution timed out after %s", r.policy.Timeout))
	case res.StandardError == "":
		res.StandardError = runErr.Error()
	}

	return res
}

// supervise makes context cancellation kill the child's whole process tree,
// not just the direct child. Toolchains fork — go run execs the compiled
// binary, bash forks every command — and an orphaned grandchild would
// otherwise hold the output pipes open past the deadline, stalling Run
// indefinitely. The child becomes its own process group leader, cancellation
// signals the negative pgid, and WaitDelay abandons the pipes shortly after
// in case a descendant escaped the group.
func supervise(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
}

func failure(diag string) Result {
	return Result{
		Succeeded:     false,
		StandardError: diag,
		ProducedAt:    time.Now().UTC(),
	}
}

func appendDiagnostic(stderr, diag string) string {
	if stderr == "" {
		return diag
	}
	return stderr + "\n" + diag
}

// capWriter captures a child process stream up to a byte limit. Crossing the
// limit cancels the run's context, which kills the child; the overflow is
// discarded rather than surfaced as a copy error so the exec machinery does
// not deadlock on a full pipe.
type capWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int64
	exceeded bool
	cancel   context.CancelFunc
}

func newCapWriter(limit int64, cancel context.CancelFunc) *capWriter {
	return &capWriter{limit: limit, cancel: cancel}
}

func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remain := w.limit - int64(w.buf.Len())
	if remain <= 0 {
		w.trip()
		return len(p), nil
	}
	if int64(len(p)) > remain {
		w.buf.Write(p[:remain])
		w.trip()
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *capWriter) trip() {
	if !w.exceeded {
		w.exceeded = true
		w.cancel()
	}
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *capWriter) Exceeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exceeded
}
