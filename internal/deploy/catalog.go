package deploy

import "strconv"

// Action identifies one fixed deployment operation. The catalog below is
// the allow-list: anything else is rejected before a stream is opened.
type Action string

// Repository-scoped actions.
const (
	ActionDeploy       Action = "deploy"
	ActionRedeploy     Action = "redeploy"
	ActionPull         Action = "pull"
	ActionDeleteRepo   Action = "delete_repo"
	ActionLogs         Action = "logs"
	ActionStop         Action = "stop"
	ActionPrune        Action = "prune"
	ActionBuildNoCache Action = "build_no_cache"
	ActionStart        Action = "start"
)

// Container-scoped actions, narrowed to a single compose service.
const (
	ActionContainerStart   Action = "container_start"
	ActionContainerStop    Action = "container_stop"
	ActionContainerRestart Action = "container_restart"
	ActionContainerRemove  Action = "container_rm"
	ActionContainerLogs    Action = "container_logs"
	ActionContainerRebuild Action = "container_rebuild"
)

// Global actions, not gated on a selected repository.
const (
	ActionPruneImages     Action = "prune_images"
	ActionPruneContainers Action = "prune_containers"
)

// stepInput carries the per-invocation facts a step builder needs. cloned
// is evaluated fresh by the orchestrator immediately before building.
type stepInput struct {
	target Target
	scope  string
	cloned bool
	tail   int
}

// actionSpec describes one catalog entry: its entry requirements and the
// builder producing its ordered step list.
type actionSpec struct {
	needsTarget bool
	needsScope  bool
	// readOnly marks actions that only observe the deployment. They skip
	// the directory lock: a log follow runs until the operator closes the
	// tab, and must not pin the repository for that long.
	readOnly bool
	build    func(in stepInput) ([]Step, error)
}

// catalog maps every known action to its spec. Encoding actions as static
// step lists keeps the halt-on-failure rule uniform and lets every action
// be replayed against a fake runner in tests.
var catalog = map[Action]actionSpec{
	ActionDeploy:   {needsTarget: true, build: buildDeploy},
	ActionRedeploy: {needsTarget: true, build: buildDeploy},

	ActionPull: {needsTarget: true, build: func(in stepInput) ([]Step, error) {
		if !in.cloned {
			return nil, ErrNotCloned
		}
		return []Step{gitStep("Fetching latest changes", in.target, "pull")}, nil
	}},

	ActionDeleteRepo: {needsTarget: true, build: func(in stepInput) ([]Step, error) {
		return []Step{{
			Banner: "Deleting deployment directory " + in.target.Dir,
			Op:     OpRemoveTree,
			Path:   in.target.Dir,
		}}, nil
	}},

	ActionLogs: {needsTarget: true, readOnly: true, build: func(in stepInput) ([]Step, error) {
		args := []string{"logs", "--follow", "--tail=" + strconv.Itoa(in.tail)}
		banner := "Streaming logs for all services"
		if in.scope != "" {
			args = append(args, in.scope)
			banner = "Streaming logs for " + in.scope
		}
		return []Step{composeStep(banner, in.target, args...)}, nil
	}},

	ActionStop:         {needsTarget: true, build: composeAction("Stopping containers", "stop")},
	ActionPrune:        {needsTarget: true, build: composeAction("Taking deployment down", "down", "--remove-orphans")},
	ActionBuildNoCache: {needsTarget: true, build: composeAction("Rebuilding images without cache", "build", "--no-cache")},
	ActionStart:        {needsTarget: true, build: composeAction("Starting containers", "start")},

	ActionContainerStart:   {needsTarget: true, needsScope: true, build: scopedComposeAction("Starting", "start")},
	ActionContainerStop:    {needsTarget: true, needsScope: true, build: scopedComposeAction("Stopping", "stop")},
	ActionContainerRestart: {needsTarget: true, needsScope: true, build: scopedComposeAction("Restarting", "restart")},

	ActionContainerRemove: {needsTarget: true, needsScope: true, build: func(in stepInput) ([]Step, error) {
		return []Step{
			composeStep("Stopping "+in.scope, in.target, "stop", in.scope),
			composeStep("Removing "+in.scope, in.target, "rm", "-f", in.scope),
		}, nil
	}},

	ActionContainerLogs: {needsTarget: true, needsScope: true, readOnly: true, build: func(in stepInput) ([]Step, error) {
		return []Step{composeStep(
			"Streaming logs for "+in.scope, in.target,
			"logs", "--follow", "--tail="+strconv.Itoa(in.tail), in.scope,
		)}, nil
	}},

	ActionContainerRebuild: {needsTarget: true, needsScope: true, build: func(in stepInput) ([]Step, error) {
		return []Step{
			composeStep("Rebuilding "+in.scope+" without cache", in.target, "build", "--no-cache", in.scope),
			composeStep("Recreating "+in.scope, in.target, "up", "-d", "--force-recreate", in.scope),
		}, nil
	}},

	ActionPruneImages: {build: func(stepInput) ([]Step, error) {
		return []Step{{
			Banner: "Pruning unused images",
			Name:   "docker",
			Args:   []string{"image", "prune", "-a", "-f"},
		}}, nil
	}},
	ActionPruneContainers: {build: func(stepInput) ([]Step, error) {
		return []Step{{
			Banner: "Pruning stopped containers",
			Name:   "docker",
			Args:   []string{"container", "prune", "-f"},
		}}, nil
	}},
}

// buildDeploy is the clone-or-pull, then build-and-start sequence. The
// clone branch is chosen iff the working directory holds no
// version-control metadata at invocation time.
func buildDeploy(in stepInput) ([]Step, error) {
	steps := []Step{{
		Banner: "Starting deployment of " + in.target.Repo,
		Op:     OpEnsureDir,
		Path:   in.target.Dir,
	}}
	if in.cloned {
		steps = append(steps, gitStep("Existing repository found, fetching latest changes", in.target, "pull"))
	} else {
		steps = append(steps, gitStep("No existing repository found, cloning into "+in.target.Dir,
			in.target, "clone", in.target.CloneURL, "."))
	}
	steps = append(steps, composeStep("Building and starting containers", in.target, "up", "--build", "-d"))
	return steps, nil
}

func composeAction(banner string, args ...string) func(stepInput) ([]Step, error) {
	return func(in stepInput) ([]Step, error) {
		return []Step{composeStep(banner, in.target, args...)}, nil
	}
}

func scopedComposeAction(verb string, args ...string) func(stepInput) ([]Step, error) {
	return func(in stepInput) ([]Step, error) {
		scoped := append(append([]string{}, args...), in.scope)
		return []Step{composeStep(verb+" "+in.scope, in.target, scoped...)}, nil
	}
}

// ContainerAction maps the short lifecycle verbs the dashboard uses for a
// single service onto catalog actions.
func ContainerAction(verb string) (Action, bool) {
	switch verb {
	case "start":
		return ActionContainerStart, true
	case "stop":
		return ActionContainerStop, true
	case "restart":
		return ActionContainerRestart, true
	case "rm":
		return ActionContainerRemove, true
	case "logs":
		return ActionContainerLogs, true
	case "rebuild":
		return ActionContainerRebuild, true
	}
	return "", false
}
