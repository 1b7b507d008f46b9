package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const checkTimeout = 5 * time.Second

// DB is the part of *sql.DB the health check needs.
type DB interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// Scheduler runs the periodic database health check.
type Scheduler struct {
	db   DB
	log  *logrus.Logger
	cron *cron.Cron
}

// New schedules the health check (standard cron syntax or
// descriptors such as "@every 5m"). An empty schedule disables the job.
func New(db DB, schedule string, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{db: db, log: log}
	if schedule == "" {
		return s, nil
	}
	cl := cronLogger{log: log}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := s.cron.AddFunc(schedule, s.Check); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Enabled reports whether a schedule is configured.
func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	if s.cron == nil {
		s.log.Info("Maintenance disabled")
		return
	}
	s.cron.Start()
	s.log.Info("Maintenance scheduler started")
}

// Stop halts scheduling and waits for a running check, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Maintenance check still running at shutdown")
	}
}

// Check pings the database and logs pool statistics.
func (s *Scheduler) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		s.log.WithError(err).Error("Database health check failed")
		return
	}
	stats := s.db.Stats()
	s.log.WithFields(logrus.Fields{
		"ping_ms":          time.Since(start).Milliseconds(),
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
	}).Info("Database health check passed")
}

// cronLogger routes scheduler diagnostics to logrus.
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
