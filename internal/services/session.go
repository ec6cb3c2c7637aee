package services

import (
	"context"

	"github.com/openexcavate/fieldbook-backend/internal/clients/keycloak"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// SessionService turns the identity provider's token pair into application
// state: actor identity, display role, and the reference data every form
// needs.
type SessionService interface {
	Begin(ctx context.Context, accessToken, refreshToken string) error
}

type sessionService struct {
	log    *logger.Logger
	tokens *keycloak.TokenManager
	store  *store.Store
	vocab  VocabService
}

func NewSessionService(log *logger.Logger, tokens *keycloak.TokenManager, st *store.Store, vocab VocabService) SessionService {
	return &sessionService{
		log:    log.With("service", "SessionService"),
		tokens: tokens,
		store:  st,
		vocab:  vocab,
	}
}

func (s *sessionService) Begin(ctx context.Context, accessToken, refreshToken string) error {
	s.tokens.SetTokens(accessToken, refreshToken)

	subject, username := keycloak.Identity(accessToken)
	s.store.SetActor(subject, username)
	s.store.SetRole(s.tokens.Role())
	s.log.Info("session started", "actor", username, "role", s.tokens.Role())

	return s.vocab.Bootstrap(ctx)
}
