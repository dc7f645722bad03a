package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bizu/backend/internal/cache"
	"bizu/backend/internal/combo"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/saga"
	"bizu/backend/internal/snapshot"
	"bizu/backend/internal/store"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrInvalidPIN = errors.New("invalid reversal pin")
)

type Options struct {
	// Policy decides what happens to completed steps when a multi-row write
	// fails midway.
	Policy   saga.Policy
	Cache    cache.ReportCache
	CacheTTL time.Duration
	Bundles  []combo.Bundle
	// Location is the business calendar used for analytics periods.
	Location     *time.Location
	BusinessName string
	PixKey       string
	// ReversalPINHash is a bcrypt hash; empty disables the PIN gate.
	ReversalPINHash []byte
	// BootstrapAdmin is always authorized as admin, even with an empty
	// collaborators table.
	BootstrapAdmin string
	Now            func() time.Time
}

type Service struct {
	repo   store.Repository
	loader *snapshot.Loader
	combos *combo.Engine
	cache  cache.ReportCache
	opts   Options
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopReportCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.BusinessName == "" {
		opts.BusinessName = "Bizu do Bigode"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.BootstrapAdmin = normalizeEmail(opts.BootstrapAdmin)

	return &Service{
		repo:   repo,
		loader: snapshot.NewLoader(repo),
		combos: combo.NewEngine(opts.Bundles),
		cache:  opts.Cache,
		opts:   opts,
	}
}

// Authorize resolves the caller's role from the collaborators allowlist.
// Emails absent from it get ErrForbidden.
func (s *Service) Authorize(ctx context.Context, email string) (domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Session{}, ErrForbidden
	}
	if s.opts.BootstrapAdmin != "" && email == s.opts.BootstrapAdmin {
		return domain.Session{Email: email, Role: domain.RoleAdmin}, nil
	}

	row, err := s.repo.GetCollaborator(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrForbidden
		}
		return domain.Session{}, err
	}

	role := domain.RoleCollaborator
	if row.Role == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Session{Email: email, Role: role}, nil
}

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

func requireSession(sess domain.Session) error {
	if sess.Email == "" {
		return ErrForbidden
	}
	return nil
}

func requireAdmin(sess domain.Session) error {
	if sess.Email == "" || !sess.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalid, fmt.Sprintf(format, args...))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) checkPIN(pin string) error {
	if len(s.opts.ReversalPINHash) == 0 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(s.opts.ReversalPINHash, []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// invalidateReports drops cached analytics after a write. Failures only cost
// staleness up to the TTL, so they are logged and swallowed.
func (s *Service) invalidateReports(ctx context.Context, cause string) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Log.Warn().Err(err).Str("cause", cause).Msg("analytics cache invalidation failed")
	}
}

func (s *Service) runSaga(ctx context.Context, op string, steps ...saga.Step) error {
	err := saga.Run(ctx, s.opts.Policy, steps...)
	if pf, ok := saga.AsPartial(err); ok {
		logger.Log.Warn().
			Str("op", op).
			Str("failed_step", pf.Failed).
			Strs("completed", pf.Completed).
			Str("policy", pf.Policy.String()).
			Err(pf.Cause).
			Msg("multi-row write stopped midway")
		for _, undoErr := range pf.UndoErrors {
			logger.Log.Error().Str("op", op).Err(undoErr).Msg("compensation failed")
		}
		// Some rows may have changed even though the call failed.
		s.invalidateReports(ctx, op+"_partial")
	}
	return err
}
