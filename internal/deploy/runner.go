package deploy

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// Command describes one external command invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the process working
	// directory, used only by global prune actions.
	Dir string
}

func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Process is one started external command. Lines must be drained before
// Wait is called; the channel closes when the process stops producing
// output. Cancelling the context passed to Runner.Start terminates the
// underlying process, so an abandoned invocation never leaves an orphan.
type Process interface {
	// Lines yields combined stdout and stderr, one line per receive, in
	// emission order. The sequence is finite and not restartable.
	Lines() <-chan string

	// Wait reports the final exit status after Lines is exhausted. A
	// non-zero exit is returned as an error.
	Wait() error
}

// Runner starts external commands. The fake used throughout the tests is
// the other implementation of this interface.
type Runner interface {
	// Start launches the command. Failure to start (missing executable,
	// permission denied) is returned immediately and produces no lines.
	Start(ctx context.Context, cmd Command) (Process, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

// NewRunner returns the Runner backed by the host's git and docker
// binaries.
func NewRunner() Runner {
	return execRunner{}
}

// lineBufferSize caps a single output line; compose build output can carry
// very long lines.
const lineBufferSize = 1024 * 1024

func (execRunner) Start(ctx context.Context, cmd Command) (Process, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	// Ask nicely first on cancellation; compose traps SIGTERM and stops
	// log streaming cleanly. SIGKILL follows if the process lingers.
	c.Cancel = func() error {
		return c.Process.Signal(syscall.SIGTERM)
	}
	c.WaitDelay = 5 * time.Second

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe %s: %w", cmd.Name, err)
	}
	c.Stderr = c.Stdout

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), lineBufferSize)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return &execProcess{cmd: c, lines: lines}, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	lines chan string
}

func (p *execProcess) Lines() <-chan string {
	return p.lines
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
