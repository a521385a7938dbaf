package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndRecent(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "stats.log"), 3)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, st.Append(Sample{TS: i, CPU: float64(i)}))
	}

	recent := st.Recent()
	require.Len(t, recent, 3, "window must stay capped")
	assert.Equal(t, int64(3), recent[0].TS)
	assert.Equal(t, int64(5), recent[2].TS)
}

func TestStoreReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.log")

	st, err := NewStore(path, 100)
	require.NoError(t, err)
	require.NoError(t, st.Append(Sample{TS: 7, CPU: 12.5, RAM: 40, Disk: 60}))

	reloaded, err := NewStore(path, 100)
	require.NoError(t, err)
	recent := reloaded.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, Sample{TS: 7, CPU: 12.5, RAM: 40, Disk: 60}, recent[0])
}

func TestStoreSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.log")
	content := `{"ts":1,"cpu":1,"ram":1,"disk":1}` + "\nnot json\n" + `{"ts":2,"cpu":2,"ram":2,"disk":2}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st, err := NewStore(path, 100)
	require.NoError(t, err)
	recent := st.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[1].TS)
}

func TestSamplerStartStop(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "stats.log"), 100)
	require.NoError(t, err)

	s := NewSampler(st, 5*time.Millisecond)
	s.probe = func() (Sample, error) {
		return Sample{TS: time.Now().Unix(), CPU: 1}, nil
	}

	s.Start()
	assert.Eventually(t, func() bool {
		return len(st.Recent()) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	// Stop joins the loop: no further samples may land.
	n := len(st.Recent())
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, n, len(st.Recent()))
}
