package jobs

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is implemented by storage.Stager.
type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// StagingSweepJob removes staged files a crashed process left behind.
// Files of in-flight publishes are younger than maxAge and are never touched.
type StagingSweepJob struct {
	stager   Sweeper
	interval time.Duration
	maxAge   time.Duration
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewStagingSweepJob(stager Sweeper, interval, maxAge time.Duration) *StagingSweepJob {
	return &StagingSweepJob{
		stager:   stager,
		interval: interval,
		maxAge:   maxAge,
		done:     make(chan struct{}),
	}
}

func (j *StagingSweepJob) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("maxAge", j.maxAge).Msg("staging sweep job started")
}

func (j *StagingSweepJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("staging sweep job stopped")
	})
}

func (j *StagingSweepJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *StagingSweepJob) sweep() {
	count, err := j.stager.Sweep(j.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep staging directory")
		return
	}
	if count > 0 {
		log.Info().Int("count", count).Msg("removed orphaned staged files")
	}
}
