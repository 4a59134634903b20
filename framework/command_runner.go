package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// CommandRequest captures process execution metadata.
type CommandRequest struct {
	Workdir string
	Args    []string
	Timeout time.Duration
}

// CommandRunner describes a primitive capable of executing commands.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (stdout string, stderr string, err error)
}

// LocalCommandRunner launches commands directly on the host.
type LocalCommandRunner struct {
	workspace string
	logger    *log.Logger
}

// NewLocalCommandRunner returns a runner that resolves relative workdirs
// against workspace.
func NewLocalCommandRunner(workspace string, logger *log.Logger) (*LocalCommandRunner, error) {
	if workspace == "" {
		workspace = "."
	}
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if logger == nil {
		logger = DiscardLogger()
	}
	return &LocalCommandRunner{workspace: filepath.Clean(absWorkspace), logger: logger}, nil
}

// Run executes the requested command and captures both output streams. A
// non-zero exit status is returned as an *exec.ExitError.
func (r *LocalCommandRunner) Run(ctx context.Context, req CommandRequest) (string, string, error) {
	if r == nil {
		return "", "", errors.New("command runner missing")
	}
	if len(req.Args) == 0 {
		return "", "", errors.New("command arguments required")
	}
	execCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()
	cmd := exec.CommandContext(execCtx, req.Args[0], req.Args[1:]...)
	cmd.Dir = r.workdir(req.Workdir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	started := time.Now()
	err := cmd.Run()
	r.logger.Debug("Command finished", "args", req.Args, "duration", time.Since(started), "err", err)
	return stdout.String(), stderr.String(), err
}

func (r *LocalCommandRunner) workdir(workdir string) string {
	if workdir == "" {
		return r.workspace
	}
	if filepath.IsAbs(workdir) {
		return filepath.Clean(workdir)
	}
	return filepath.Join(r.workspace, workdir)
}
