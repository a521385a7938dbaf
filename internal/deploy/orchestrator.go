package deploy

import (
	"context"
	"log/slog"
	"sync"
)

// Request is one validated unit of work: an action from the catalog, the
// target it operates on, and an optional service scope. All facts the
// pipeline needs travel in the request; the orchestrator reads no ambient
// state.
type Request struct {
	Action Action
	Target Target
	// Scope narrows container actions to one compose service. Required by
	// the container_* actions, optional for logs.
	Scope string
}

// DefaultLogTail is how many trailing lines a logs action replays before
// following.
const DefaultLogTail = 100

// Orchestrator is the core's sole entry point: it validates requests
// against the action catalog and executes the matching pipeline, returning
// the stream its output is delivered on.
type Orchestrator struct {
	runner   Runner
	resolver *Resolver
	logTail  int

	// mu guards locks. Each resolved working directory gets one mutex so
	// mutating actions against the same deployment serialize instead of
	// racing. Read-only actions and global prunes take no lock: a log
	// follow lives until the client disconnects and must never queue a
	// stop or deploy behind it.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator wires a runner and resolver into an orchestrator.
// logTail <= 0 selects DefaultLogTail.
func NewOrchestrator(runner Runner, resolver *Resolver, logTail int) *Orchestrator {
	if logTail <= 0 {
		logTail = DefaultLogTail
	}
	return &Orchestrator{
		runner:   runner,
		resolver: resolver,
		logTail:  logTail,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Invoke validates the request and, if it is well formed, starts its
// pipeline and returns the stream carrying the live transcript. Validation
// failures (unknown action, missing target or scope) are returned
// synchronously: no stream is opened and no process starts. Resolution
// failures discovered after validation arrive as the stream's single error
// event.
//
// The caller owns the stream and must drain it. Cancelling ctx (the hosting
// layer ties it to the client connection) stops production and terminates
// any running process.
func (o *Orchestrator) Invoke(ctx context.Context, req Request) (*Stream, error) {
	spec, ok := catalog[req.Action]
	if !ok {
		return nil, ErrUnknownAction
	}
	if spec.needsTarget && (req.Target.Repo == "" || req.Target.Dir == "") {
		return nil, ErrMissingTarget
	}
	if spec.needsScope && req.Scope == "" {
		return nil, ErrMissingScope
	}

	stream := newStream()
	go o.execute(ctx, req, spec, stream)
	return stream, nil
}

func (o *Orchestrator) execute(ctx context.Context, req Request, spec actionSpec, stream *Stream) {
	defer stream.close()

	if spec.needsTarget && !spec.readOnly {
		lock := o.dirLock(req.Target.Dir)
		lock.Lock()
		defer lock.Unlock()
	}

	// Clone-vs-pull is decided here, after the lock is held, so the check
	// reflects whatever the previous action left on disk.
	in := stepInput{
		target: req.Target,
		scope:  req.Scope,
		cloned: spec.needsTarget && o.resolver.Cloned(req.Target),
		tail:   o.logTail,
	}
	steps, err := spec.build(in)
	if err != nil {
		_ = stream.send(ctx, Event{Kind: EventError, Payload: err.Error()})
		actionsTotal.WithLabelValues(string(req.Action), "failed").Inc()
		return
	}

	p := &pipeline{action: req.Action, steps: steps, runner: o.runner}
	p.run(ctx, stream)

	actionsTotal.WithLabelValues(string(req.Action), p.state.String()).Inc()
	slog.Info("pipeline finished",
		"action", req.Action,
		"repo", req.Target.Repo,
		"state", p.state.String(),
		"steps_run", p.step+1)
}

func (o *Orchestrator) dirLock(dir string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[dir]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[dir] = lock
	}
	return lock
}
