package stats

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

var (
	cpuGauge  = promauto.NewGauge(prometheus.GaugeOpts{Name: "opsdeck_host_cpu_percent", Help: "Host CPU usage."})
	ramGauge  = promauto.NewGauge(prometheus.GaugeOpts{Name: "opsdeck_host_memory_percent", Help: "Host memory usage."})
	diskGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "opsdeck_host_disk_percent", Help: "Host root filesystem usage."})
)

// Sampler owns the periodic collection loop. It is an explicitly owned
// handle: NewSampler then Start, and Stop signals the loop and joins it.
// Nothing else in the process reaches into the loop's state.
type Sampler struct {
	store    *Store
	interval time.Duration
	probe    func() (Sample, error)

	stop    chan struct{}
	stopped chan struct{}
}

// NewSampler builds a sampler writing into store every interval.
func NewSampler(store *Store, interval time.Duration) *Sampler {
	return &Sampler{
		store:    store,
		interval: interval,
		probe:    probeHost,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the collection loop.
func (s *Sampler) Start() {
	go s.loop()
}

// Stop signals the loop and waits for it to exit.
func (s *Sampler) Stop() {
	close(s.stop)
	<-s.stopped
}

func (s *Sampler) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			sample, err := s.probe()
			if err != nil {
				slog.Error("host stats probe failed", "err", err)
				continue
			}
			cpuGauge.Set(sample.CPU)
			ramGauge.Set(sample.RAM)
			diskGauge.Set(sample.Disk)
			if err := s.store.Append(sample); err != nil {
				slog.Error("failed to persist host stats sample", "err", err)
			}
		}
	}
}

func probeHost() (Sample, error) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		return Sample{}, err
	}
	if len(cpuPercents) == 0 {
		return Sample{}, errors.New("no cpu usage reported")
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}
	du, err := disk.Usage("/")
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		TS:   time.Now().Unix(),
		CPU:  cpuPercents[0],
		RAM:  vm.UsedPercent,
		Disk: du.UsedPercent,
	}, nil
}
