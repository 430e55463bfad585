// Package scheduler запускает периодические задачи (обновление таблицы якорей).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const AnchorsRefreshJob = "anchors-refresh"

type Scheduler struct {
	s   gocron.Scheduler
	log *slog.Logger
	now func() time.Time
}

// New создаёт планировщик в UTC. Задачи не выполняются до Run.
func New(log *slog.Logger) (*Scheduler, error) {
	log = log.With("component", "scheduler")
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logAdapter{log: log}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{s: s, log: log, now: time.Now}, nil
}

// AddJob регистрирует job по cron-выражению (5 полей)
func (s *Scheduler) AddJob(name, cronExpr string, job func()) error {
	if name == "" {
		return errors.New("empty job name")
	}
	if cronExpr == "" {
		return errors.New("empty cron expression")
	}
	if job == nil {
		return errors.New("nil job function")
	}

	j, err := s.s.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(job),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	s.log.Info("job scheduled", "name", name, "cron", cronExpr, "id", j.ID())
	return nil
}

// ScheduleAnchors добавляет задачу обновления якорей
func (s *Scheduler) ScheduleAnchors(cronExpr string, refresh func(now time.Time) error) error {
	if refresh == nil {
		return errors.New("nil refresh function")
	}
	return s.AddJob(AnchorsRefreshJob, cronExpr, func() {
		if err := refresh(s.now()); err != nil {
			s.log.Error("anchors refresh failed", "error", err)
			return
		}
		s.log.Debug("anchors refreshed")
	})
}

// RunNow запускает задачу по имени вне расписания
func (s *Scheduler) RunNow(name string) error {
	for _, j := range s.s.Jobs() {
		if j.Name() == name {
			return j.RunNow()
		}
	}
	return fmt.Errorf("job %q not found", name)
}

// Run стартует планировщик и останавливает его при отмене ctx
func (s *Scheduler) Run(ctx context.Context) error {
	s.s.Start()
	s.log.Debug("scheduler started", "jobs", len(s.s.Jobs()))

	<-ctx.Done()
	return s.Stop()
}

// Stop ждёт завершения запущенных задач
func (s *Scheduler) Stop() error {
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

// logAdapter gocron.Logger поверх slog
type logAdapter struct {
	log *slog.Logger
}

func (l logAdapter) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l logAdapter) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l logAdapter) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l logAdapter) Error(msg string, args ...any) { l.log.Error(msg, args...) }
