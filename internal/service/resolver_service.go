package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
)

type resolverLookups interface {
	CoursePattern(ctx context.Context, courseID string, on time.Time) (*models.Pattern, error)
	ProgramPattern(ctx context.Context, programID string, on time.Time) (*models.Pattern, error)
	DefaultPattern(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability) (*models.Pattern, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type patternCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ResolvedPattern is a resolver verdict: which pattern applies to a course
// and which level of the hierarchy supplied it.
type ResolvedPattern struct {
	Pattern *models.Pattern `json:"pattern"`
	Source  PatternSource   `json:"source"`
}

// PatternSource names the hierarchy level a pattern was resolved from.
type PatternSource string

const (
	SourceCourse             PatternSource = "course"
	SourceProgram            PatternSource = "program"
	SourceInstitutionDefault PatternSource = "institution_default"
)

const defaultResolutionCacheTTL = 10 * time.Minute

// ResolverService finds the single pattern that governs a course on a given
// date. Precedence is strict: a course-level association wins over a
// program-level one, which wins over the institution default. Levels never
// merge; the first hit is the answer.
type ResolverService struct {
	lookups  resolverLookups
	courses  courseReader
	cache    patternCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewResolverService constructs service. Cache may be nil; resolution then
// always hits the database.
func NewResolverService(lookups resolverLookups, courses courseReader, cache patternCache, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{lookups: lookups, courses: courses, cache: cache, cacheTTL: defaultResolutionCacheTTL, logger: logger}
}

// SetCacheTTL overrides how long resolved patterns stay cached. Values of
// zero or less keep the default.
func (s *ResolverService) SetCacheTTL(d time.Duration) {
	if d > 0 {
		s.cacheTTL = d
	}
}

// Resolve returns the applicable pattern for a course on the given date, or
// ErrPatternNotConfigured when no level of the hierarchy yields one.
func (s *ResolverService) Resolve(ctx context.Context, courseID string, on time.Time) (*ResolvedPattern, error) {
	cacheKey := fmt.Sprintf("pattern:resolved:%s:%s", courseID, on.Format("2006-01-02"))
	if s.cache != nil {
		var cached ResolvedPattern
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached.Pattern != nil {
			return &cached, nil
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	resolved, err := s.resolve(ctx, course, on)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resolved, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache resolved pattern", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return resolved, nil
}

func (s *ResolverService) resolve(ctx context.Context, course *models.Course, on time.Time) (*ResolvedPattern, error) {
	pattern, err := s.lookups.CoursePattern(ctx, course.ID, on)
	switch {
	case err == nil:
		return &ResolvedPattern{Pattern: pattern, Source: SourceCourse}, nil
	case err != sql.ErrNoRows:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course pattern lookup failed")
	}

	if course.ProgramID != nil {
		pattern, err = s.lookups.ProgramPattern(ctx, *course.ProgramID, on)
		switch {
		case err == nil:
			return &ResolvedPattern{Pattern: pattern, Source: SourceProgram}, nil
		case err != sql.ErrNoRows:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "program pattern lookup failed")
		}
	}

	pattern, err = s.lookups.DefaultPattern(ctx, course.InstitutionID, course.CourseType)
	switch {
	case err == nil:
		return &ResolvedPattern{Pattern: pattern, Source: SourceInstitutionDefault}, nil
	case err != sql.ErrNoRows:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "default pattern lookup failed")
	}

	s.logger.Warn("no pattern configured for course",
		zap.String("course_id", course.ID),
		zap.String("course_code", course.CourseCode))
	return nil, appErrors.Clone(appErrors.ErrPatternNotConfigured,
		fmt.Sprintf("no assessment pattern configured for course %s", course.CourseCode))
}

// Invalidate drops cached resolutions for one course, or for every course
// when courseID is empty. Configuration writes call this.
func (s *ResolverService) Invalidate(ctx context.Context, courseID string) error {
	if s.cache == nil {
		return nil
	}
	pattern := "pattern:resolved:*"
	if courseID != "" {
		pattern = fmt.Sprintf("pattern:resolved:%s:*", courseID)
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate pattern cache")
	}
	return nil
}
