package usecase

import (
	"context"

	"github.com/shandysiswandi/mynotes/internal/pkg/jwt"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

// Identity resolves the account behind a request.
type Identity interface {
	CurrentAccount(ctx context.Context) (entity.Account, bool)
}

// JWTIdentity reads the account from verified bearer claims.
type JWTIdentity struct{}

func (JWTIdentity) CurrentAccount(ctx context.Context) (entity.Account, bool) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.AccountID == "" {
		return entity.Account{}, false
	}

	return entity.Account{ID: clm.AccountID, Label: clm.AccountLabel}, true
}
