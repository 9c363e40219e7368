package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
)

const revalidateTimeout = 2 * time.Second

// Cache key layout shared by readers and the revalidator.
const (
	statsKeyPrefix     = "attendance:stats"
	dashboardKeyPrefix = "dashboard"
)

func statsCacheKey(classroomID string, date *time.Time) string {
	classroom := classroomID
	if classroom == "" {
		classroom = models.AllClassrooms
	}
	day := "any"
	if date != nil {
		day = date.Format(models.DateLayout)
	}
	return fmt.Sprintf("%s:%s:%s", statsKeyPrefix, classroom, day)
}

func dashboardCacheKey(date time.Time) string {
	return fmt.Sprintf("%s:%s", dashboardKeyPrefix, date.Format(models.DateLayout))
}

// Revalidator drops cached views after writes. Failures are logged and never reach the caller.
type Revalidator struct {
	cache  *CacheService
	logger *zap.Logger
}

// NewRevalidator constructs a Revalidator.
func NewRevalidator(cache *CacheService, logger *zap.Logger) *Revalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Revalidator{cache: cache, logger: logger}
}

// AttendanceChanged invalidates stats for the given classrooms, the global stats and the dashboard.
func (r *Revalidator) AttendanceChanged(ctx context.Context, classroomIDs ...string) {
	patterns := make([]string, 0, len(classroomIDs)+2)
	for _, id := range classroomIDs {
		if id != "" {
			patterns = append(patterns, fmt.Sprintf("%s:%s:*", statsKeyPrefix, id))
		}
	}
	patterns = append(patterns, fmt.Sprintf("%s:%s:*", statsKeyPrefix, models.AllClassrooms), dashboardKeyPrefix+":*")
	r.invalidate(ctx, patterns)
}

// AllAttendanceChanged invalidates every cached stats entry and the dashboard.
func (r *Revalidator) AllAttendanceChanged(ctx context.Context) {
	r.invalidate(ctx, []string{statsKeyPrefix + ":*", dashboardKeyPrefix + ":*"})
}

// RosterChanged invalidates the dashboard after classroom or student changes.
func (r *Revalidator) RosterChanged(ctx context.Context) {
	r.invalidate(ctx, []string{dashboardKeyPrefix + ":*"})
}

func (r *Revalidator) invalidate(ctx context.Context, patterns []string) {
	if r == nil || !r.cache.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revalidateTimeout)
	defer cancel()
	for _, pattern := range patterns {
		if err := r.cache.Invalidate(ctx, pattern); err != nil {
			r.logger.Warn("revalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
