// Package scheduler runs a job on a cron schedule.
package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers a job on a cron spec in a fixed location. Runs never
// overlap: a tick that fires while the previous run is active is skipped.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	jobID    cron.EntryID
	spec     string
	location *time.Location
	job      func()
}

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// New creates a scheduler. The schedule is a standard five-field cron spec,
// a descriptor such as "@every 1h" or "@daily", or a daily "HH:MM".
func New(schedule, timezone string, job func()) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if timezone == "" {
		timezone = "Local"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &Scheduler{cron: c, location: loc, job: job}
	if err := s.schedule(schedule); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins cron execution.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Update replaces the schedule.
func (s *Scheduler) Update(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.jobID
	if err := s.scheduleLocked(schedule); err != nil {
		return err
	}
	if old != 0 {
		s.cron.Remove(old)
	}
	return nil
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron.Entry(s.jobID).Next
}

// Spec returns the effective cron spec.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Location returns the scheduler location.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

func (s *Scheduler) schedule(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(schedule)
}

func (s *Scheduler) scheduleLocked(schedule string) error {
	spec, err := normalize(schedule)
	if err != nil {
		return err
	}
	id, err := s.cron.AddFunc(spec, s.job)
	if err != nil {
		return fmt.Errorf("add cron %q: %w", spec, err)
	}
	s.jobID = id
	s.spec = spec
	return nil
}

// normalize turns a daily "HH:MM" into a cron spec and passes anything else
// through.
func normalize(schedule string) (string, error) {
	if schedule == "" {
		return "", errors.New("schedule must not be empty")
	}
	if !timeHHMM.MatchString(schedule) {
		return schedule, nil
	}
	parsed, err := time.Parse("15:04", schedule)
	if err != nil {
		return "", fmt.Errorf("invalid time: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", parsed.Minute(), parsed.Hour()), nil
}
