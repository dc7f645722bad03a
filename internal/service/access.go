package service

import (
	"context"
	"net/mail"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
)

func (s *Service) ListCollaborators(ctx context.Context, sess domain.Session) ([]domain.Collaborator, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	return s.repo.ListCollaborators(ctx)
}

// GrantAccess adds email to the allowlist as a counter collaborator. An
// existing row keeps its creation date and is demoted to collaborator.
func (s *Service) GrantAccess(ctx context.Context, sess domain.Session, email string) (domain.Collaborator, error) {
	if err := requireAdmin(sess); err != nil {
		return domain.Collaborator{}, err
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Collaborator{}, invalid("invalid email %q", email)
	}
	if email == sess.Email || email == s.opts.BootstrapAdmin {
		return domain.Collaborator{}, invalid("cannot change your own access")
	}

	saved, err := s.repo.UpsertCollaborator(ctx, domain.Collaborator{
		Email:     email,
		Role:      domain.RoleCollaborator,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Collaborator{}, err
	}
	logger.Log.Info().Str("email", email).Str("by", sess.Email).Msg("access granted")
	return *saved, nil
}

func (s *Service) RevokeAccess(ctx context.Context, sess domain.Session, email string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == sess.Email || email == s.opts.BootstrapAdmin {
		return invalid("cannot change your own access")
	}
	if err := s.repo.DeleteCollaborator(ctx, email); err != nil {
		return err
	}
	logger.Log.Info().Str("email", email).Str("by", sess.Email).Msg("access revoked")
	return nil
}
