package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/inbox"
	sync_feature "go-clinic/internal/features/sync"
	"go-clinic/internal/features/tenant"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/apperrors"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnknownJob = apperrors.NotFound("job")

type Tenants interface {
	List(ctx context.Context) ([]tenant.Tenant, error)
}

type Appointments interface {
	Upcoming(ctx context.Context, scope common_models.Scope, date string) ([]appointment.Appointment, error)
	MarkReminded(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
}

type Notifier interface {
	Notify(ctx context.Context, scope common_models.Scope, channel inbox.Channel, contact, name string, body string) (*inbox.Message, error)
}

type Syncer interface {
	Run(ctx context.Context, scope common_models.Scope, trigger string) (*sync_feature.Run, error)
}

// Scheduler runs the clinic's periodic jobs.
type Scheduler struct {
	Tenants      Tenants
	Appointments Appointments
	Notifier     Notifier
	Syncer       Syncer
	Metrics      *metrics.Metrics
	Logger       *zap.Logger

	// now is replaced in tests.
	now func() time.Time

	cron    *cron.Cron
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	id       cron.EntryID
	schedule string
	run      func(ctx context.Context) error
}

func NewScheduler(cfg *config.Config, tenants Tenants, appointments Appointments, notifier Notifier, syncer Syncer, m *metrics.Metrics, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	clog := cronLogger{logger.Sugar()}
	s := &Scheduler{
		Tenants:      tenants,
		Appointments: appointments,
		Notifier:     notifier,
		Syncer:       syncer,
		Metrics:      m,
		Logger:       logger,
		now:          time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
			cron.WithLogger(clog),
		),
		entries: make(map[string]entry),
	}

	if err := s.register(JobReminders, cfg.ReminderSchedule, func(ctx context.Context) error {
		_, err := s.SendReminders(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.register(JobSync, cfg.SyncSchedule, s.RunSync); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds a job. An empty schedule disables it.
func (s *Scheduler) register(name, schedule string, run func(ctx context.Context) error) error {
	if schedule == "" {
		s.Logger.Info("Job disabled", zap.String("job", name))
		return nil
	}
	id, err := s.cron.AddFunc(schedule, func() {
		if err := run(context.Background()); err != nil {
			s.Logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}
	s.mu.Lock()
	s.entries[name] = entry{id: id, schedule: schedule, run: run}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.Logger.Info("Scheduler started", zap.Int("jobs", len(s.entries)))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs lists the registered jobs with their next run.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobInfo, 0, len(s.entries))
	for _, name := range []string{JobReminders, JobSync} {
		e, ok := s.entries[name]
		if !ok {
			continue
		}
		ce := s.cron.Entry(e.id)
		out = append(out, JobInfo{Name: name, Schedule: e.schedule, Next: ce.Next, Prev: ce.Prev})
	}
	return out
}

// Trigger runs a job now, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownJob
	}
	return e.run(ctx)
}

// SendReminders texts every patient booked for tomorrow, in each clinic's own time zone.
// Appointments are marked only after the message went out, so failures retry next pass.
func (s *Scheduler) SendReminders(ctx context.Context) (*ReminderResult, error) {
	res := &ReminderResult{}
	tenants, err := s.Tenants.List(ctx)
	if err != nil {
		s.Metrics.JobRun(JobReminders, false)
		return nil, err
	}

	for i := range tenants {
		t := &tenants[i]
		res.Tenants++
		scope := common_models.SystemScope(t.ID)
		date := s.now().In(t.Location()).AddDate(0, 0, 1).Format("2006-01-02")

		appts, err := s.Appointments.Upcoming(ctx, scope, date)
		if err != nil {
			s.Logger.Error("Failed to load appointments for reminders", zap.String("tenant", t.Slug), zap.Error(err))
			res.Failed++
			continue
		}
		for j, a := range appts {
			if a.PatientPhone == "" {
				res.Skipped++
				continue
			}
			body := RenderReminder(t.Reminder(), a)
			_, err := s.Notifier.Notify(ctx, scope, inbox.ChannelSMS, a.PatientPhone, a.PatientName, body)
			if errors.Is(err, inbox.ErrChannelDisabled) {
				s.Logger.Warn("SMS channel not configured, reminders skipped")
				res.Skipped += len(appts) - j
				s.Metrics.JobRun(JobReminders, false)
				return res, nil
			}
			if err != nil {
				s.Logger.Warn("Reminder not delivered",
					zap.String("tenant", t.Slug),
					zap.String("appointment_id", a.ID.Hex()),
					zap.Error(err),
				)
				res.Failed++
				continue
			}
			if err := s.Appointments.MarkReminded(ctx, scope, a.ID); err != nil {
				s.Logger.Warn("Failed to mark reminder", zap.String("appointment_id", a.ID.Hex()), zap.Error(err))
			}
			res.Sent++
		}
	}

	s.Logger.Info("Reminders sent",
		zap.Int("tenants", res.Tenants),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	s.Metrics.JobRun(JobReminders, res.Failed == 0)
	return res, nil
}

// RunSync mirrors appointments into the warehouse. A disabled warehouse or an
// overlapping run is not an error for the schedule.
func (s *Scheduler) RunSync(ctx context.Context) error {
	scope := common_models.Scope{Role: common_models.RoleSuperAdmin}
	_, err := s.Syncer.Run(ctx, scope, sync_feature.TriggerSchedule)
	switch {
	case errors.Is(err, sync_feature.ErrSyncDisabled):
		return nil
	case errors.Is(err, sync_feature.ErrSyncRunning):
		s.Logger.Info("Sync still running, skipping")
		return nil
	}
	return err
}

// StartScheduler ties the scheduler to the fx lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
