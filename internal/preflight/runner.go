package preflight

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every import check and pip invocation. pip on a
// slow connection is the long pole.
const DefaultCommandTimeout = 5 * time.Minute

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(file string) (string, error)
}

// ExecRunner runs commands on the host through os/exec.
type ExecRunner struct {
	Timeout time.Duration
	Dir     string
}

// NewExecRunner returns an ExecRunner with the default timeout.
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Timeout: DefaultCommandTimeout, Dir: dir}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return out.Bytes(), fmt.Errorf("%s timed out after %v", name, timeout)
		}
		return out.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out.Bytes(), nil
}

func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

var _ Runner = (*ExecRunner)(nil)
