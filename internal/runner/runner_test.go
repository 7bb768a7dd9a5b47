package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// requireTool skips the test when a toolchain binary is not installed.
func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not found in PATH", name)
	}
}

func TestExecutePython(t *testing.T) {
	requireTool(t, "python3")

	r := New(DefaultPolicy())
	res := r.Execute(context.Background(), "print(1+1)", Python)

	if !res.Succeeded {
		t.Fatalf("Succeeded = false, stderr: %q", res.StandardError)
	}
	if !strings.Contains(res.StandardOutput, "2") {
		t.Errorf("stdout = %q, want it to contain 2", res.StandardOutput)
	}
	if res.ProducedAt.IsZero() {
		t.Error("ProducedAt not set")
	}
}

func TestExecuteReportsToolchainFault(t *testing.T) {
	requireTool(t, "python3")

	r := New(DefaultPolicy())
	res := r.Execute(context.Background(), "print(undefined_name)", Python)

	if res.Succeeded {
		t.Fatal("Succeeded = true for a runtime fault")
	}
	if !strings.Contains(res.StandardError, "NameError") {
		t.Errorf("stderr = %q, want the interpreter's diagnostic", res.StandardError)
	}
}

func TestExecuteTimeoutLeavesNoArtifacts(t *testing.T) {
	requireTool(t, "bash")

	root := t.TempDir()
	r := New(Policy{Timeout: 200 * time.Millisecond, MaxOutput: 1 << 20, TempRoot: root})

	res := r.Execute(context.Background(), "sleep 5", Shell)

	if res.Succeeded {
		t.Fatal("Succeeded = true for a timed-out run")
	}
	if !strings.Contains(res.StandardError, "timed out") {
		t.Errorf("stderr = %q, want a timeout diagnostic", res.StandardError)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace leaked after timeout: %v", entries)
	}
}

func TestExecuteTimeoutBoundHoldsWhenChildForks(t *testing.T) {
	requireTool(t, "bash")

	root := t.TempDir()
	r := New(Policy{Timeout: 300 * time.Millisecond, MaxOutput: 1 << 20, TempRoot: root})

	// bash forks sleep as a grandchild; killing only the direct child would
	// leave sleep holding the output pipes and stall Execute for the full
	// five seconds.
	start := time.Now()
	res := r.Execute(context.Background(), "sleep 5", Shell)
	elapsed := time.Since(start)

	if res.Succeeded {
		t.Fatal("Succeeded = true for a timed-out run")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("Execute returned after %s; timeout was 300ms", elapsed)
	}
	if !strings.Contains(res.StandardError, "timed out") {
		t.Errorf("stderr = %q, want a timeout diagnostic", res.StandardError)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace leaked: %v", entries)
	}
}

func TestExecuteOutputCap(t *testing.T) {
	requireTool(t, "bash")

	r := New(Policy{Timeout: 5 * time.Second, MaxOutput: 1024, TempRoot: t.TempDir()})
	res := r.Execute(context.Background(), "while true; do echo xxxxxxxxxxxxxxxx; done", Shell)

	if res.Succeeded {
		t.Fatal("Succeeded = true for an oversize run")
	}
	if !strings.Contains(res.StandardError, "output limit") {
		t.Errorf("stderr = %q, want an output-limit diagnostic", res.StandardError)
	}
	if int64(len(res.StandardOutput)) > 1024 {
		t.Errorf("captured %d bytes, cap is 1024", len(res.StandardOutput))
	}
}

func TestExecuteWorkspaceFault(t *testing.T) {
	r := New(Policy{Timeout: time.Second, MaxOutput: 1024, TempRoot: "/nonexistent/path"})
	res := r.Execute(context.Background(), "print(1)", Python)

	if res.Succeeded {
		t.Fatal("Succeeded = true when the workspace cannot be created")
	}
	if !strings.Contains(res.StandardError, "workspace") {
		t.Errorf("stderr = %q, want a workspace diagnostic", res.StandardError)
	}
}

func TestConcurrentExecutionsDoNotInterfere(t *testing.T) {
	requireTool(t, "bash")

	root := t.TempDir()
	r := New(Policy{Timeout: 5 * time.Second, MaxOutput: 1 << 20, TempRoot: root})

	const n = 8
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Execute(context.Background(),
				fmt.Sprintf("echo token-%d", i), Shell)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if !res.Succeeded {
			t.Errorf("run %d failed: %q", i, res.StandardError)
			continue
		}
		want := fmt.Sprintf("token-%d", i)
		if !strings.Contains(res.StandardOutput, want) {
			t.Errorf("run %d: stdout = %q, want %q", i, res.StandardOutput, want)
		}
		for j := 0; j < n; j++ {
			if j != i && strings.Contains(res.StandardOutput, fmt.Sprintf("token-%d\n", j)) {
				t.Errorf("run %d captured run %d's output", i, j)
			}
		}
	}

	// Every workspace cleaned up, no collisions corrupted the temp root.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspaces leaked: %v", entries)
	}
}

func TestCapWriterTruncatesAndCancels(t *testing.T) {
	cancelled := false
	w := newCapWriter(10, func() { cancelled = true })

	n, err := w.Write([]byte("0123456789abcdef"))
	if err != nil || n != 16 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := w.String(); got != "0123456789" {
		t.Errorf("captured %q, want first 10 bytes", got)
	}
	if !w.Exceeded() {
		t.Error("Exceeded = false after overflow")
	}
	if !cancelled {
		t.Error("overflow did not cancel the run")
	}

	// Further writes are discarded without error
	if n, err := w.Write([]byte("more")); err != nil || n != 4 {
		t.Errorf("post-overflow Write = %d, %v", n, err)
	}
	if got := w.String(); got != "0123456789" {
		t.Errorf("buffer grew after overflow: %q", got)
	}
}
