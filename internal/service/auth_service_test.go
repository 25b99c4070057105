package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/internal/core/ports/mocks"
	"ledgerbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (
	*AuthServiceImpl,
	*mocks.MockUserRepository,
	*mocks.MockHashService,
	*mocks.MockTokenService,
) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	return NewAuthService(userRepo, hashSvc, tokenSvc, newTestLogger()), userRepo, hashSvc, tokenSvc
}

func TestAuthService_Register_Email(t *testing.T) {
	svc, userRepo, hashSvc, tokenSvc := setupAuthService(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(nil, nil)
	hashSvc.EXPECT().Hash("pw123456").Return("$argon2id$hashed", nil)
	userRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		require.NotNil(t, u.Email)
		assert.Equal(t, "ann@example.com", *u.Email)
		assert.Nil(t, u.Phone)
		assert.Equal(t, "Ann", u.Name)
		assert.True(t, u.WalletBalance.IsZero())
		assert.Equal(t, "$argon2id$hashed", u.PasswordHash)
		return nil
	})
	tokenSvc.EXPECT().Generate(gomock.Any()).Return("jwt", exp, nil)

	res, err := svc.Register(ctx, ports.RegisterRequest{Name: " Ann ", Identifier: " Ann@Example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, exp, res.ExpiresAt)
	assert.NotEqual(t, uuid.Nil, res.User.ID)
}

func TestAuthService_Register_Phone(t *testing.T) {
	svc, userRepo, hashSvc, tokenSvc := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByIdentifier(ctx, "+15550001").Return(nil, nil)
	hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	userRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		assert.Nil(t, u.Email)
		require.NotNil(t, u.Phone)
		assert.Equal(t, "+15550001", *u.Phone)
		return nil
	})
	tokenSvc.EXPECT().Generate(gomock.Any()).Return("jwt", time.Now(), nil)

	_, err := svc.Register(ctx, ports.RegisterRequest{Name: "Bob", Identifier: "+15550001", Password: "pw"})
	require.NoError(t, err)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	for _, req := range []ports.RegisterRequest{
		{Identifier: "a@b.c", Password: "pw"},
		{Name: "A", Password: "pw"},
		{Name: "A", Identifier: "a@b.c"},
		{Name: "   ", Identifier: "a@b.c", Password: "pw"},
	} {
		_, err := svc.Register(context.Background(), req)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), fmt.Sprintf("%+v", req))
	}
}

func TestAuthService_Register_IdentifierExists(t *testing.T) {
	svc, userRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(&domain.User{ID: uuid.New()}, nil)
	_, err := svc.Register(ctx, ports.RegisterRequest{Name: "Ann", Identifier: "ann@example.com", Password: "pw"})
	assert.True(t, apperror.HasCode(err, apperror.CodeIdentifierExists))

	// Lost race: the unique index reports the duplicate.
	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(nil, nil)
	hashSvc.EXPECT().Hash("pw").Return("h", nil)
	userRepo.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("insert user: %w", ports.ErrUniqueViolation))
	_, err = svc.Register(ctx, ports.RegisterRequest{Name: "Ann", Identifier: "ann@example.com", Password: "pw"})
	assert.True(t, apperror.HasCode(err, apperror.CodeIdentifierExists))
}

func TestAuthService_Register_StoreFailure(t *testing.T) {
	svc, userRepo, _, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(nil, errors.New("conn refused"))
	_, err := svc.Register(ctx, ports.RegisterRequest{Name: "Ann", Identifier: "ann@example.com", Password: "pw"})
	assert.True(t, apperror.HasCode(err, apperror.CodeStoreFailure))
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo, hashSvc, tokenSvc := setupAuthService(t)
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), PasswordHash: "h"}

	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(user, nil)
	hashSvc.EXPECT().Verify("pw", "h").Return(true, nil)
	tokenSvc.EXPECT().Generate(user.ID).Return("jwt", time.Now().Add(time.Hour), nil)

	res, err := svc.Login(ctx, "ANN@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, user, res.User)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, userRepo, hashSvc, _ := setupAuthService(t)
	ctx := context.Background()

	userRepo.EXPECT().GetByIdentifier(ctx, "nobody@example.com").Return(nil, nil)
	_, err := svc.Login(ctx, "nobody@example.com", "pw")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCredentials))

	userRepo.EXPECT().GetByIdentifier(ctx, "ann@example.com").Return(&domain.User{PasswordHash: "h"}, nil)
	hashSvc.EXPECT().Verify("wrong", "h").Return(false, nil)
	_, err = svc.Login(ctx, "ann@example.com", "wrong")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCredentials))
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	_, err := svc.Login(context.Background(), "", "pw")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
