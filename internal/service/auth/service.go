package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/internal/token"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/trustdrive/stagelink/service/auth")

// userStore is the slice of the registry repository the service needs.
type userStore interface {
	UserByEmail(ctx context.Context, email string) (*entity.User, error)
	UserByID(ctx context.Context, id int64) (*entity.User, error)
}

// tokenIssuer signs and verifies staff credentials.
type tokenIssuer interface {
	Sign(subject string) (string, error)
	Verify(raw string) (string, error)
}

// Service authenticates staff and resolves staff credentials back to users.
type Service struct {
	users    userStore
	staffTok tokenIssuer
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Registry *registry.Repository
	Tokens   *token.Issuers
	Logger   *zap.Logger
}

// Module provides the auth service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{users: p.Registry, staffTok: p.Tokens.Staff, logger: p.Logger}
}

// Login verifies an email and password pair and mints a staff credential.
// Failures are reported uniformly so the response does not reveal whether
// the account exists.
func (s *Service) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, errorbank.BadRequest("email and password are required")
	}
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return "", nil, errorbank.Unauthorized("invalid credentials")
		}
		return "", nil, s.internal(span, "failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errorbank.Unauthorized("invalid credentials")
	}
	if user.AccountStatus == entity.AccountSuspended {
		return "", nil, errorbank.Forbidden("account is suspended")
	}
	signed, err := s.staffTok.Sign(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return "", nil, s.internal(span, "failed to sign staff token", err)
	}
	return signed, user, nil
}

// Resolve maps a raw staff credential back to its user. Used by the staff
// guard on every authenticated request.
func (s *Service) Resolve(ctx context.Context, raw string) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Resolve")
	defer span.End()

	subject, err := s.staffTok.Verify(raw)
	if err != nil {
		return nil, errorbank.Unauthorized("invalid or expired token")
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, errorbank.Unauthorized("invalid or expired token")
	}
	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.Unauthorized("invalid or expired token")
		}
		return nil, s.internal(span, "failed to load user", err)
	}
	if user.AccountStatus == entity.AccountSuspended {
		return nil, errorbank.Forbidden("account is suspended")
	}
	return user, nil
}

func (s *Service) internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
