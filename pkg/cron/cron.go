// Package cron runs scheduled jobs with the command context shape.
package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/logger"
)

// DefaultTimezone is used when neither the job nor the manager names one.
const DefaultTimezone = "Asia/Manila"

const jobTimeout = 5 * time.Minute

// AccessSource supplies the guard inputs current at execution time.
type AccessSource interface {
	Access() *commands.Access
}

// Status is a snapshot of one scheduled job.
type Status struct {
	Name        string
	Schedule    string
	Timezone    string
	ChatID      int64
	NextRun     time.Time
	LastRun     time.Time
	RunCount    int
	LastError   string
	LastSuccess bool
}

type entry struct {
	job    commands.Job
	id     cron.EntryID
	status Status
}

// Manager schedules jobs. Replace swaps the whole job set.
type Manager struct {
	log      *logger.Logger
	chats    *chat.Factory
	bindings commands.Bindings
	registry *commands.Registry
	access   AccessSource
	timezone string

	scheduler *cron.Cron
	entries   map[string]*entry
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a cron manager. access may be nil.
func New(
	log *logger.Logger,
	chats *chat.Factory,
	bindings commands.Bindings,
	registry *commands.Registry,
	access AccessSource,
	timezone string,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if timezone == "" {
		timezone = DefaultTimezone
	}

	return &Manager{
		log:       log.Named("cron"),
		chats:     chats,
		bindings:  bindings,
		registry:  registry,
		access:    access,
		timezone:  timezone,
		scheduler: cron.New(),
		entries:   make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the scheduler.
func (m *Manager) Start() error {
	m.log.Info("Starting cron manager", zap.String("timezone", m.timezone))
	m.scheduler.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (m *Manager) Stop() error {
	m.log.Info("Stopping cron manager")

	ctx := m.scheduler.Stop()
	m.cancel()
	<-ctx.Done()

	m.log.Info("Cron manager stopped")
	return nil
}

// Replace removes every scheduled job and schedules jobs instead. Jobs
// with an invalid schedule or timezone are skipped; the returned error
// lists them.
func (m *Manager) Replace(jobs []commands.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, e := range m.entries {
		m.scheduler.Remove(e.id)
		delete(m.entries, name)
	}

	var failed []string
	for _, job := range jobs {
		if err := m.scheduleJob(job); err != nil {
			m.log.Warn("Failed to schedule job",
				zap.String("job", job.Name),
				zap.String("schedule", job.Schedule),
				zap.Error(err))
			failed = append(failed, job.Name)
		}
	}

	m.log.Info("Cron jobs replaced",
		zap.Int("scheduled", len(m.entries)),
		zap.Int("skipped", len(failed)))

	if len(failed) > 0 {
		return fmt.Errorf("invalid jobs: %v", failed)
	}
	return nil
}

// scheduleJob adds job to the scheduler. Caller must hold m.mu.
func (m *Manager) scheduleJob(job commands.Job) error {
	if job.Name == "" {
		return commands.ErrEmptyName
	}
	if _, exists := m.entries[job.Name]; exists {
		return fmt.Errorf("%w: %s", commands.ErrDuplicateName, job.Name)
	}
	if job.Execute == nil {
		return fmt.Errorf("job %s has no handler", job.Name)
	}

	tz := job.Timezone
	if tz == "" {
		tz = m.timezone
	}
	spec, err := Spec(job.Schedule, tz)
	if err != nil {
		return err
	}

	name := job.Name
	id, err := m.scheduler.AddFunc(spec, func() { m.executeJob(name) })
	if err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}

	m.entries[name] = &entry{
		job: job,
		id:  id,
		status: Status{
			Name:     name,
			Schedule: job.Schedule,
			Timezone: tz,
			ChatID:   job.ChatID,
			NextRun:  m.scheduler.Entry(id).Next,
		},
	}
	return nil
}

// Spec validates a five field schedule and binds it to a timezone.
func Spec(schedule, timezone string) (string, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return "", fmt.Errorf("invalid cron schedule: %w", err)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return "CRON_TZ=" + timezone + " " + schedule, nil
}

// Run executes the named job immediately, outside its schedule.
func (m *Manager) Run(name string) error {
	m.mu.RLock()
	_, exists := m.entries[name]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job not found: %s", name)
	}
	m.executeJob(name)
	return nil
}

func (m *Manager) executeJob(name string) {
	m.mu.RLock()
	e, exists := m.entries[name]
	var job commands.Job
	if exists {
		job = e.job
	}
	m.mu.RUnlock()
	if !exists {
		return
	}

	m.log.Info("Executing cron job", zap.String("job", name), zap.Int64("chat_id", job.ChatID))

	ctx, cancel := context.WithTimeout(m.ctx, jobTimeout)
	defer cancel()

	err := m.call(ctx, job)

	m.mu.Lock()
	if e, exists := m.entries[name]; exists {
		e.status.LastRun = time.Now()
		e.status.RunCount++
		e.status.NextRun = m.scheduler.Entry(e.id).Next
		if err != nil {
			e.status.LastSuccess = false
			e.status.LastError = err.Error()
		} else {
			e.status.LastSuccess = true
			e.status.LastError = ""
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Error("Cron job failed", zap.String("job", name), zap.Error(err))
		return
	}
	m.log.Info("Cron job completed", zap.String("job", name))
}

func (m *Manager) call(ctx context.Context, job commands.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			m.log.Error("Cron job panicked",
				zap.String("job", job.Name),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	c := &commands.Context{
		Chat:   m.chats.ForChat(job.ChatID),
		Name:   job.Name,
		ChatID: job.ChatID,
		UserID: job.UserID,
		Log:    m.log.With(zap.String("job", job.Name)),
	}
	if m.access != nil {
		c.Access = m.access.Access()
	}
	if m.registry != nil {
		c.Table = m.registry.Table()
	}
	c.Bind(m.bindings)

	return job.Execute(ctx, c)
}

// List returns the status of every scheduled job, sorted by name.
func (m *Manager) List() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
