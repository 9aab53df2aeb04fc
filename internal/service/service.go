package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tokobuku/backend/internal/cache"
	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/logger"
	"tokobuku/backend/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("admin role required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache    cache.ReportCache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopReportCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		reports:  opts.Cache,
		cacheTTL: opts.CacheTTL,
		validate: newValidator(),
		log:      opts.Logger.Named("service"),
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	l := logger.FromContextOr(ctx, s.log)
	if actor, ok := ActorFromContext(ctx); ok {
		l = l.With(zap.String("actor", actor.Username))
	}
	return l
}

// fail logs err at warn for business rejections and at error otherwise, then
// returns it unchanged.
func (s *Service) fail(ctx context.Context, op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if isRejection(err) {
		s.logger(ctx).Warn("operation rejected", fields...)
	} else {
		s.logger(ctx).Error("operation failed", fields...)
	}
	return err
}

func isRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrConflict) ||
		errors.Is(err, store.ErrInsufficientStock) ||
		errors.Is(err, store.ErrInvalidTransaction)
}

// ledgerChanged drops cached reports after a successful write. A cache failure
// never fails the write.
func (s *Service) ledgerChanged(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		s.logger(ctx).Warn("report cache invalidation failed", zap.Error(err))
	}
}

func parseOptionalDate(field string, raw string) (time.Time, error) {
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}

// ParseRange builds a report range from optional YYYY-MM-DD bounds.
func ParseRange(start string, end string) (domain.DateRange, error) {
	var r domain.DateRange
	var err error
	if r.Start, err = domain.ParseDate(start); err != nil {
		return r, fmt.Errorf("%w: start: %v", ErrInvalidInput, err)
	}
	if r.End, err = domain.ParseDate(end); err != nil {
		return r, fmt.Errorf("%w: end: %v", ErrInvalidInput, err)
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return r, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
