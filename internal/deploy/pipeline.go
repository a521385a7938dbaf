package deploy

import (
	"context"
	"fmt"
	"os"
)

// State is the pipeline lifecycle: Pending until the first step starts,
// Running while steps execute, then exactly one of Succeeded or Failed.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// pipeline executes one action's ordered step list against one target,
// feeding all output into a single stream. A step's zero exit is the
// precondition for the next step; the first failure halts the pipeline
// with the failing step's prior output preserved.
type pipeline struct {
	action Action
	steps  []Step
	runner Runner

	state State
	step  int
}

// run drives the state machine to a terminal state and emits exactly one
// terminal marker, unless the consumer disconnects first (in which case
// the stream is simply abandoned and the context kills any live process).
func (p *pipeline) run(ctx context.Context, s *Stream) {
	p.state = StateRunning
	for i, step := range p.steps {
		p.step = i
		if step.Banner != "" {
			if err := s.section(ctx, step.Banner); err != nil {
				p.state = StateFailed
				return
			}
		}
		if err := p.runStep(ctx, s, step); err != nil {
			p.state = StateFailed
			if ctx.Err() != nil {
				// Consumer disconnected; nobody is left to read a
				// terminal marker.
				return
			}
			_ = s.send(ctx, Event{Kind: EventError, Payload: err.Error()})
			return
		}
	}
	p.state = StateSucceeded
	_ = s.send(ctx, Event{Kind: EventDone, Payload: string(p.action) + " complete"})
}

func (p *pipeline) runStep(ctx context.Context, s *Stream, step Step) error {
	if !step.IsCommand() {
		return runFSOp(step)
	}

	proc, err := p.runner.Start(ctx, step.command())
	if err != nil {
		return err
	}

	// Drain fully before Wait so the failing step's output reaches the
	// stream ahead of the error marker. On consumer disconnect the send
	// fails with the context error and CommandContext reaps the process.
	var sendErr error
	for line := range proc.Lines() {
		if sendErr == nil {
			sendErr = s.line(ctx, line)
		}
	}
	if waitErr := proc.Wait(); waitErr != nil {
		return fmt.Errorf("%s: %w", step.command(), waitErr)
	}
	return sendErr
}

func runFSOp(step Step) error {
	switch step.Op {
	case OpEnsureDir:
		return os.MkdirAll(step.Path, 0o755)
	case OpRemoveTree:
		return os.RemoveAll(step.Path)
	}
	return fmt.Errorf("step %q has no command and no filesystem operation", step.Banner)
}
