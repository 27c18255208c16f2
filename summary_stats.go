package deviant

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
)

const (
	statsReportSize   = 10
	statsBacklogLimit = 1000

	// SummaryStatsName names the tally of deviance summaries saved by
	// this process in its log messages.
	SummaryStatsName = "summaries"
)

// Stat records a count of saved summaries for one signature group and
// deviance status. An empty status means the series had no data to
// classify.
type Stat struct {
	Count      int
	Framework  string
	Repository string
	Status     string
}

type statDimension string

const (
	statFramework  statDimension = "framework"
	statRepository statDimension = "repository"
	statStatus     statDimension = "status"
)

func (s Stat) key(dim statDimension) string {
	switch dim {
	case statFramework:
		return s.Framework
	case statRepository:
		return s.Repository
	default:
		return s.Status
	}
}

// summaryStats tallies saved summaries and logs the tally every interval.
type summaryStats struct {
	name     string
	incoming chan Stat
	interval time.Duration

	mu           sync.Mutex
	saved        int
	unclassified int
	deviant      int
	counts       map[statDimension]map[string]int
}

func newSummaryStats(name string) *summaryStats {
	s := &summaryStats{
		name:     name,
		incoming: make(chan Stat, statsBacklogLimit),
		interval: time.Minute,
	}
	s.reset()
	return s
}

func (s *summaryStats) reset() {
	s.saved, s.unclassified, s.deviant = 0, 0, 0
	s.counts = map[statDimension]map[string]int{
		statFramework:  {},
		statRepository: {},
		statStatus:     {},
	}
}

// Add queues a stat for the tally, failing when the backlog is full
// rather than blocking the caller.
func (s *summaryStats) Add(stat Stat) error {
	select {
	case s.incoming <- stat:
		return nil
	default:
		return errors.Errorf("%s stats backlog is full", s.name)
	}
}

func (s *summaryStats) record(stat Stat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved += stat.Count
	switch stat.Status {
	case "":
		s.unclassified += stat.Count
	case string(perf.StatusOK):
	default:
		s.deviant += stat.Count
	}
	for dim, counts := range s.counts {
		counts[stat.key(dim)] += stat.Count
	}
}

// flush returns the tally as a log message and starts a new one. It returns
// nil when nothing was saved since the last flush.
func (s *summaryStats) flush() message.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved == 0 {
		return nil
	}

	msg := message.Fields{
		"message":      "saved deviance summaries",
		"stats":        s.name,
		"saved":        s.saved,
		"deviant":      s.deviant,
		"unclassified": s.unclassified,
	}
	for dim, counts := range s.counts {
		msg["by_"+string(dim)] = ranked(counts, statsReportSize)
	}
	s.reset()

	return msg
}

func (s *summaryStats) start(ctx context.Context) {
	go s.run(ctx)
}

func (s *summaryStats) run(ctx context.Context) {
	defer func() {
		grip.Error(message.WrapError(recovery.HandlePanicWithError(recover(), nil, "summary stats"), message.Fields{
			"message": "summary stats stopped",
			"stats":   s.name,
		}))
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			grip.InfoWhen(s.pending(), s.flush())
			return
		case stat := <-s.incoming:
			s.record(stat)
		case <-ticker.C:
			grip.InfoWhen(s.pending(), s.flush())
		}
	}
}

func (s *summaryStats) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved > 0
}

type rankedCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ranked orders counts from most to least frequent, breaking ties by key,
// and keeps the first n.
func ranked(counts map[string]int, n int) []rankedCount {
	out := make([]rankedCount, 0, len(counts))
	for key, count := range counts {
		out = append(out, rankedCount{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
