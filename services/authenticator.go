package services

import (
	"context"
	"errors"
	"time"

	"github.com/relife/service-api/config"
	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/keycloak"
	"github.com/relife/service-api/models"
	"go.uber.org/zap"
)

// Authentication stages, used in error details, logs and metrics
const (
	StageVerifying       = "verifying"
	StageMetadata        = "metadata"
	StageExchangingToken = "exchanging_token"
	StageResolvingRoles  = "resolving_roles"
	StageDone            = "done"
)

var (
	errMissingIssuer  = errors.New("identity metadata has no issuer")
	errMissingSubject = errors.New("identity metadata has no provider_id")
)

// IdentityVerifier verifies bearer credentials against the identity backend
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, credential string) (*models.IdentityRecord, error)
}

// TokenExchanger obtains an admin token for a realm
type TokenExchanger interface {
	Exchange(ctx context.Context, issuerURL, clientID, clientSecret string) (keycloak.AdminToken, error)
}

// RoleResolver fetches the realm roles of a user
type RoleResolver interface {
	ResolveRoles(ctx context.Context, issuerURL string, token keycloak.AdminToken, subjectID string) ([]models.Role, error)
}

// Authenticator turns a bearer credential into an AuthenticatedIdentity,
// optionally enriched with the user's realm roles.
type Authenticator struct {
	verifier      IdentityVerifier
	exchanger     TokenExchanger
	resolver      RoleResolver
	authServer    config.AuthServerConfig
	adminRoleName string
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(
	verifier IdentityVerifier,
	exchanger TokenExchanger,
	resolver RoleResolver,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		verifier:      verifier,
		exchanger:     exchanger,
		resolver:      resolver,
		authServer:    cfg.AuthServer,
		adminRoleName: cfg.AdminRoleName,
		metrics:       metrics,
		logger:        logger,
	}
}

// Authenticate verifies credential and, when wantRoles is set, resolves the
// caller's realm roles. Every failure is an unauthorized DomainError; the
// underlying cause stays reachable through errors.Is/As.
func (a *Authenticator) Authenticate(ctx context.Context, credential string, wantRoles bool) (*models.AuthenticatedIdentity, error) {
	logger := observability.LoggerFromContext(ctx, a.logger)

	start := time.Now()
	record, err := a.verifier.VerifyToken(ctx, credential)
	a.metrics.ObserveUpstream(observability.UpstreamIdentity, err, time.Since(start))
	if err == nil && record == nil {
		err = errors.New("identity backend returned no user")
	}
	if err != nil {
		return nil, a.fail(logger, StageVerifying, wantRoles, err)
	}

	identity := models.NewAuthenticatedIdentity(credential, *record, a.adminRoleName)
	logger = logger.With(zap.String("user_id", identity.UserID()))

	if !wantRoles {
		a.succeed(logger, wantRoles)
		return identity, nil
	}

	issuer, ok := record.Metadata.IssuerURL()
	if !ok {
		return nil, a.fail(logger, StageMetadata, wantRoles, errMissingIssuer)
	}
	subject, ok := record.Metadata.SubjectID()
	if !ok {
		return nil, a.fail(logger, StageMetadata, wantRoles, errMissingSubject)
	}
	logger = logger.With(zap.String("issuer", issuer))

	start = time.Now()
	token, err := a.exchanger.Exchange(ctx, issuer, a.authServer.ClientID, a.authServer.ClientSecret)
	a.metrics.ObserveUpstream(observability.UpstreamTokenGrant, err, time.Since(start))
	if err != nil {
		return nil, a.fail(logger, StageExchangingToken, wantRoles, err)
	}

	start = time.Now()
	roles, err := a.resolver.ResolveRoles(ctx, issuer, token, subject)
	a.metrics.ObserveUpstream(observability.UpstreamRoles, err, time.Since(start))
	if err != nil {
		return nil, a.fail(logger, StageResolvingRoles, wantRoles, err)
	}

	identity = identity.WithRoles(roles)
	a.succeed(logger, wantRoles, zap.Int("roles", len(roles)), zap.Bool("is_admin", identity.IsAdmin()))
	return identity, nil
}

func (a *Authenticator) succeed(logger *zap.Logger, wantRoles bool, fields ...zap.Field) {
	a.metrics.RecordAuthAttempt(observability.ResultSuccess, StageDone, wantRoles)
	logger.Debug("authentication successful", append(fields, zap.Bool("with_roles", wantRoles))...)
}

func (a *Authenticator) fail(logger *zap.Logger, stage string, wantRoles bool, cause error) error {
	a.metrics.RecordAuthAttempt(observability.ResultFailure, stage, wantRoles)
	logger.Warn("authentication failed",
		zap.String("stage", stage),
		zap.Bool("with_roles", wantRoles),
		zap.Error(cause))

	return NewDomainError(ErrorTypeUnauthorized, "authentication failed", cause).
		WithDetail("stage", stage)
}

// RequireAdmin fails with a forbidden error unless identity carries the admin role.
// Identities authenticated without role resolution never pass.
func RequireAdmin(identity *models.AuthenticatedIdentity) error {
	if identity == nil {
		return ErrForbidden
	}
	if _, resolved := identity.Roles(); !resolved {
		return NewDomainError(ErrorTypeForbidden, ErrAdminRequired.Message, ErrRolesNotResolved)
	}
	if !identity.IsAdmin() {
		return NewDomainError(ErrorTypeForbidden, ErrAdminRequired.Message, nil)
	}
	return nil
}
