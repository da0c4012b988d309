package inbound

import (
	"context"

	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/shandysiswandi/mynotes/internal/security/usecase"
)

type ucStream interface {
	StreamTokens(ctx context.Context, in usecase.SessionInput) (<-chan entity.Token, error)
	ProvisioningMatrix(ctx context.Context, in usecase.SessionInput) (*otp.Matrix, error)
}

type uc interface {
	ucStream

	Algorithms(ctx context.Context) []otp.AlgorithmSpec
	OpenSession(ctx context.Context) (*entity.Status, error)
	SessionStatus(ctx context.Context, in usecase.SessionInput) (*entity.Status, error)
	CloseSession(ctx context.Context, in usecase.SessionInput) error
	Enroll(ctx context.Context, in usecase.EnrollInput) (*entity.Enrollment, error)
	Validate(ctx context.Context, in usecase.ValidateInput) (*entity.ValidationResult, error)
	SetAlgorithm(ctx context.Context, in usecase.SetAlgorithmInput) (*entity.Status, error)
	Disable(ctx context.Context, in usecase.SessionInput) error
	CurrentToken(ctx context.Context, in usecase.SessionInput) (*entity.Token, error)
}
