package signup

import (
	"context"

	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/identity"
	"github.com/signalrelay/authgate/repository"
	"github.com/signalrelay/authgate/usecase"
)

// AccountProvider is the slice of the identity provider needed here.
type AccountProvider interface {
	CreateUser(ctx context.Context, email, password string) (*identity.User, error)
}

type UseCase struct {
	idp     AccountProvider
	store   repository.ProfileStore
	journal usecase.WriteJournal
	logger  *zap.Logger
}

func New(idp AccountProvider, store repository.ProfileStore, journal usecase.WriteJournal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		idp:     idp,
		store:   store,
		journal: journal,
		logger:  logger,
	}
}

// Signup provisions an identity-provider account with the email
// pre-confirmed and persists the full profile record keyed by the new user
// id. Returns that id.
func (uc *UseCase) Signup(ctx context.Context, email, password, name string, plan domain.Plan) (string, error) {
	if email == "" || password == "" {
		return "", domain.ErrInvalidPayload
	}
	if plan != "" && !domain.ValidPlan(plan) {
		return "", domain.ErrInvalidPlan
	}

	user, err := uc.idp.CreateUser(ctx, email, password)
	if err != nil {
		return "", err
	}

	profile := domain.NewProfile(user.ID, user.Email, name, plan)
	if err := uc.store.Put(ctx, profile); err != nil {
		if uc.journal != nil {
			if jErr := uc.journal.JournalProfile(ctx, profile); jErr != nil {
				uc.logger.Error("failed to journal signup profile", zap.Error(jErr))
				return "", err
			}
			uc.logger.Warn("signup profile journaled due to store error", zap.Error(err))
			return user.ID, nil
		}
		return "", err
	}

	uc.logger.Info("profile created",
		zap.String("user_id", user.ID),
		zap.String("role", string(profile.Role)),
		zap.String("plan", string(profile.Plan)))
	return user.ID, nil
}
