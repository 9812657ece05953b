package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/config"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

const defaultJobTimeout = 10 * time.Second

// Job is one background refresh.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs the polling jobs that keep notification and chat counters
// fresh while no realtime event arrives.
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
	// active gates every run; polling stops while it returns false
	active func() bool

	mu   sync.Mutex
	jobs map[string]Job
}

// NewScheduler creates a new scheduler. active may be nil.
func NewScheduler(log zerolog.Logger, active func() bool) *Scheduler {
	clog := cronLogger{log: log}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog))),
		log:     log,
		timeout: defaultJobTimeout,
		active:  active,
		jobs:    make(map[string]Job),
	}
}

// PollJobs returns the notification and chat polls at the configured
// intervals. A zero interval leaves that poll out.
func PollJobs(c *query.Client, cfg *config.Config) []Job {
	all := []Job{
		{Name: "notification_count", Interval: cfg.NotificationCountInterval, Run: c.Notifications.PollUnread},
		{Name: "notification_list", Interval: cfg.NotificationListInterval, Run: c.Notifications.PollList},
		{Name: "chat_unread", Interval: cfg.ChatUnreadInterval, Run: c.Chat.PollUnread},
	}
	jobs := all[:0]
	for _, j := range all {
		if j.Interval > 0 {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Add registers a job. It may be called before or after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	s.mu.Lock()
	if _, ok := s.jobs[job.Name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("job %s already registered", job.Name)
	}
	s.jobs[job.Name] = job
	s.mu.Unlock()

	if _, err := s.cron.AddFunc("@every "+job.Interval.String(), func() { _ = s.run(job) }); err != nil {
		s.mu.Lock()
		delete(s.jobs, job.Name)
		s.mu.Unlock()
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Strs("jobs", s.Jobs()).Msg("[Cron] Scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("[Cron] Scheduler stopped")
}

// Jobs lists the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManualTrigger runs a job now, or every job for "all".
func (s *Scheduler) ManualTrigger(name string) error {
	if name == "all" {
		for _, n := range s.Jobs() {
			if err := s.ManualTrigger(n); err != nil {
				return err
			}
		}
		return nil
	}
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	if s.active != nil && !s.active() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Warn().Err(err).Str("job", job.Name).Msg("[Cron] poll failed")
		return err
	}
	s.log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("[Cron] poll done")
	return nil
}

// cronLogger routes robfig/cron's own messages to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("[Cron] " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("[Cron] " + msg)
}
