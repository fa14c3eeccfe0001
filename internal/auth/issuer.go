package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"account-service/internal/observability"
)

const (
	OutcomeSuccess            = "success"
	OutcomeValidationError    = "validation_error"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

var tracer = otel.Tracer("account-service/internal/auth")

type IssuerConfig struct {
	Store    UserStore
	Signer   TokenSigner
	Messages Messages
	Metrics  *observability.Metrics
}

// Issuer turns a credential into a signed token pair carrying the principal's
// display name in the "name" claim.
type Issuer struct {
	authenticator *Authenticator
	signer        TokenSigner
	messages      Messages
	metrics       *observability.Metrics
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	messages := cfg.Messages
	if messages == (Messages{}) {
		messages = EnglishMessages
	}

	return &Issuer{
		authenticator: NewAuthenticator(cfg.Store),
		signer:        cfg.Signer,
		messages:      messages,
		metrics:       cfg.Metrics,
	}
}

// Issue authenticates the credential and returns the login response. Expire is
// read back from the signed access token so it always matches what the token
// asserts; username and email come from the freshly loaded user record.
func (i *Issuer) Issue(ctx context.Context, cred Credential) (LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.Issuer.Issue")
	defer span.End()

	start := time.Now()
	user, pair, err := i.issuePair(ctx, cred)
	if err != nil {
		i.fail(span, err)
		return LoginResponse{}, err
	}

	access, err := i.signer.Decode(pair.Access, TokenTypeAccess)
	if err != nil {
		err = fmt.Errorf("decode issued access token: %w", err)
		i.fail(span, err)
		return LoginResponse{}, err
	}

	i.metrics.LoginAttempt(OutcomeSuccess)
	i.metrics.TokensIssued("login")
	i.metrics.ObserveIssue(time.Since(start))

	return LoginResponse{
		Refresh:  pair.Refresh,
		Access:   pair.Access,
		Expire:   access.ExpiresAt.Unix(),
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// IssuePair is the plain obtain-pair flow: same checks and claims as Issue,
// without the reshaped response.
func (i *Issuer) IssuePair(ctx context.Context, cred Credential) (TokenPair, error) {
	ctx, span := tracer.Start(ctx, "auth.Issuer.IssuePair")
	defer span.End()

	_, pair, err := i.issuePair(ctx, cred)
	if err != nil {
		i.fail(span, err)
		return TokenPair{}, err
	}

	i.metrics.LoginAttempt(OutcomeSuccess)
	i.metrics.TokensIssued("pair")
	return pair, nil
}

// Refresh mints a new access token from a refresh token.
func (i *Issuer) Refresh(ctx context.Context, refresh string) (string, error) {
	_, span := tracer.Start(ctx, "auth.Issuer.Refresh")
	defer span.End()

	access, err := i.signer.Refresh(refresh)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return "", err
	}

	i.metrics.TokensIssued("refresh")
	return access, nil
}

func (i *Issuer) issuePair(ctx context.Context, cred Credential) (User, TokenPair, error) {
	cred, err := i.messages.Validate(cred)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	user, err := i.authenticator.Authenticate(ctx, cred.Username, cred.Password)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	claims := i.signer.ClaimsFor(user)
	claims.Name = user.Username

	pair, err := i.signer.SignPair(claims)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("sign token pair: %w", err)
	}

	return user, pair, nil
}

func (i *Issuer) fail(span trace.Span, err error) {
	i.metrics.LoginAttempt(Outcome(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, Outcome(err))
}

// Outcome classifies a login error for metrics and logs.
func Outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &verr):
		return OutcomeValidationError
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	default:
		return OutcomeError
	}
}
