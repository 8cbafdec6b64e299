package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/internal/token"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

type fakeUsers struct {
	byEmail func(string) (*entity.User, error)
	byID    func(int64) (*entity.User, error)
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (*entity.User, error) {
	if f.byEmail == nil {
		return nil, errors.New("unexpected call")
	}
	return f.byEmail(email)
}

func (f *fakeUsers) UserByID(_ context.Context, id int64) (*entity.User, error) {
	if f.byID == nil {
		return nil, errors.New("unexpected call")
	}
	return f.byID(id)
}

func newTestService(t *testing.T, users *fakeUsers) *Service {
	t.Helper()
	issuer, err := token.NewIssuer("staff-secret-for-tests", 12*time.Hour)
	require.NoError(t, err)
	return &Service{users: users, staffTok: issuer, logger: zap.NewNop()}
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginSignsStaffToken(t *testing.T) {
	user := &entity.User{ID: 7, Email: "manager@stagelink.test", PasswordHash: hash(t, "hunter2"), AccountStatus: entity.AccountActive}
	users := &fakeUsers{
		byEmail: func(email string) (*entity.User, error) {
			require.Equal(t, "manager@stagelink.test", email)
			return user, nil
		},
		byID: func(int64) (*entity.User, error) { return user, nil },
	}
	svc := newTestService(t, users)

	signed, got, err := svc.Login(context.Background(), "  Manager@Stagelink.Test ", "hunter2")
	require.NoError(t, err)
	require.Equal(t, user, got)

	resolved, err := svc.Resolve(context.Background(), signed)
	require.NoError(t, err)
	require.Equal(t, int64(7), resolved.ID)
}

func TestLoginUnknownEmailIsUniform(t *testing.T) {
	users := &fakeUsers{byEmail: func(string) (*entity.User, error) { return nil, registry.ErrNotFound }}
	svc := newTestService(t, users)

	_, _, err := svc.Login(context.Background(), "ghost@stagelink.test", "hunter2")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
	require.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginWrongPasswordIsUniform(t *testing.T) {
	user := &entity.User{ID: 7, PasswordHash: hash(t, "hunter2"), AccountStatus: entity.AccountActive}
	users := &fakeUsers{byEmail: func(string) (*entity.User, error) { return user, nil }}
	svc := newTestService(t, users)

	_, _, err := svc.Login(context.Background(), "manager@stagelink.test", "wrong")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
	require.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginSuspendedAccount(t *testing.T) {
	user := &entity.User{ID: 7, PasswordHash: hash(t, "hunter2"), AccountStatus: entity.AccountSuspended}
	users := &fakeUsers{byEmail: func(string) (*entity.User, error) { return user, nil }}
	svc := newTestService(t, users)

	_, _, err := svc.Login(context.Background(), "manager@stagelink.test", "hunter2")
	require.True(t, errorbank.IsKind(err, errorbank.KindForbidden))
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc := newTestService(t, &fakeUsers{})

	_, err := svc.Resolve(context.Background(), "not-a-token")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
}

func TestResolveRejectsDeletedUser(t *testing.T) {
	users := &fakeUsers{byID: func(int64) (*entity.User, error) { return nil, registry.ErrNotFound }}
	svc := newTestService(t, users)

	issuer, err := token.NewIssuer("staff-secret-for-tests", 12*time.Hour)
	require.NoError(t, err)
	signed, err := issuer.Sign("42")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), signed)
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
}
