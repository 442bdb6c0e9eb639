package service

import (
	"context"
	"encoding/json"
	"time"

	"nmt_prep_backend/pkg/logger"

	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Scheduler drives the periodic progress flush and the lesson reminder job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	progress  *ProgressService
	calendar  *CalendarService
	redis     *redis.Client
}

func NewScheduler(progress *ProgressService, calendar *CalendarService, rdb *redis.Client) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		progress:  progress,
		calendar:  calendar,
		redis:     rdb,
	}
}

// Start registers the jobs and begins running them asynchronously.
func (s *Scheduler) Start() {
	interval := int(s.progress.FlushInterval().Seconds())
	if interval <= 0 {
		interval = 30
	}

	if _, err := s.scheduler.Every(interval).Seconds().Do(func() {
		s.progress.FlushAll("interval")
	}); err != nil {
		logger.Log.Error("failed to schedule progress flush", zap.Error(err))
		return
	}

	if _, err := s.scheduler.Every(1).Hour().Do(s.publishLessonReminders); err != nil {
		logger.Log.Error("failed to schedule lesson reminders", zap.Error(err))
	}

	s.scheduler.StartAsync()
	logger.Log.Info("background jobs scheduled", zap.Int("flush_interval_seconds", interval))
}

// publishLessonReminders drops each student's upcoming lessons into redis
// where the client's notification poll picks them up.
func (s *Scheduler) publishLessonReminders() {
	if s.redis == nil {
		return
	}

	lessons, err := s.calendar.UpcomingLessons()
	if err != nil {
		logger.Log.Error("lesson reminder query failed", zap.Error(err))
		return
	}

	byStudent := make(map[string][]interface{})
	for _, lesson := range lessons {
		byStudent[lesson.StudentEmail] = append(byStudent[lesson.StudentEmail], map[string]string{
			"title": lesson.Title,
			"date":  lesson.Date,
			"time":  lesson.Time,
		})
	}

	ctx := context.Background()
	for email, upcoming := range byStudent {
		raw, err := json.Marshal(upcoming)
		if err != nil {
			continue
		}
		if err := s.redis.Set(ctx, "calendar:upcoming:"+email, raw, 2*time.Hour).Err(); err != nil {
			logger.Log.Warn("reminder publish failed", zap.String("student", email), zap.Error(err))
		}
	}
}

// Stop halts the scheduler and writes out whatever is still dirty.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.progress.FlushAll("shutdown")
}
