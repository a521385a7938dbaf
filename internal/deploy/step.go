package deploy

// FSOp enumerates the local filesystem operations a step may perform
// instead of running a command.
type FSOp int

const (
	// OpNone marks a command step.
	OpNone FSOp = iota
	// OpEnsureDir creates the step's path and any missing parents.
	OpEnsureDir
	// OpRemoveTree recursively deletes the step's path. A missing path is
	// a no-op success.
	OpRemoveTree
)

// Step is one unit of pipeline work: either an external command or a local
// filesystem operation. Step lists are static per action; the pipeline
// halts at the first step that fails.
type Step struct {
	// Banner, when non-empty, is emitted as a section marker before the
	// step runs.
	Banner string

	// Command step fields. Name is the executable; Dir is the working
	// directory (empty for global actions, which run outside any
	// repository).
	Name string
	Args []string
	Dir  string

	// Filesystem step fields, used when Name is empty.
	Op   FSOp
	Path string
}

// IsCommand reports whether the step runs an external command.
func (s Step) IsCommand() bool {
	return s.Name != ""
}

func (s Step) command() Command {
	return Command{Name: s.Name, Args: s.Args, Dir: s.Dir}
}

// composeStep builds a docker compose step against the target's compose
// file.
func composeStep(banner string, t Target, args ...string) Step {
	return Step{
		Banner: banner,
		Name:   "docker",
		Args:   append([]string{"compose", "-f", composeFile}, args...),
		Dir:    t.Dir,
	}
}

func gitStep(banner string, t Target, args ...string) Step {
	return Step{Banner: banner, Name: "git", Args: args, Dir: t.Dir}
}

// composeFile is the compose file every deployment is expected to carry at
// its repository root.
const composeFile = "docker-compose.yml"
