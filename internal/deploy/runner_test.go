package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesCombinedOutput(t *testing.T) {
	runner := NewRunner()

	proc, err := runner.Start(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; echo late"},
		Dir:  t.TempDir(),
	})
	require.NoError(t, err)

	var lines []string
	for line := range proc.Lines() {
		lines = append(lines, line)
	}
	require.NoError(t, proc.Wait())

	// stdout and stderr share one pipe, so relative order between the two
	// descriptors is not guaranteed; content and stdout ordering are.
	assert.ElementsMatch(t, []string{"out", "err", "late"}, lines)
	assert.Less(t, indexOf(lines, "out"), indexOf(lines, "late"))
}

func TestExecRunnerReportsNonZeroExit(t *testing.T) {
	runner := NewRunner()

	proc, err := runner.Start(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo doomed; exit 3"},
	})
	require.NoError(t, err)

	var lines []string
	for line := range proc.Lines() {
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"doomed"}, lines)

	err = proc.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestExecRunnerStartFailureIsImmediate(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Start(context.Background(), Command{Name: "definitely-not-a-binary-on-this-host"})
	require.Error(t, err)
}

func TestExecRunnerKillsProcessOnCancel(t *testing.T) {
	runner := NewRunner()

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := runner.Start(ctx, Command{
		Name: "sh",
		Args: []string{"-c", "echo started; sleep 60"},
	})
	require.NoError(t, err)

	require.Equal(t, "started", <-proc.Lines())
	cancel()

	done := make(chan error, 1)
	go func() {
		for range proc.Lines() {
		}
		done <- proc.Wait()
	}()

	select {
	case err := <-done:
		require.Error(t, err, "cancelled process must not report success")
	case <-time.After(10 * time.Second):
		t.Fatal("process outlived its context")
	}
}

func indexOf(lines []string, want string) int {
	for i, l := range lines {
		if l == want {
			return i
		}
	}
	return -1
}
