package flows

import (
	"context"

	"github.com/MrEthical07/authguard/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Decode != nil && s.deps.Login.Encode != nil
}

func (s Service) Login(ctx context.Context, identity string, details map[string]any) LoginResult {
	return RunLogin(ctx, identity, details, s.deps.Login)
}

// Authenticate runs the credential flow. Its Login hook is bound to this
// service when the caller left it unset.
func (s Service) Authenticate(ctx context.Context, identifier, password string) AuthenticateResult {
	deps := s.deps.Authenticate
	if deps.Login == nil {
		deps.Login = s.Login
	}
	return RunAuthenticate(ctx, identifier, password, deps)
}

func (s Service) ValidateAccess(tokenStr, asserted string) ValidateResult {
	return RunValidateAccess(tokenStr, asserted, s.deps.Validate)
}

func (s Service) ValidateRefresh(ctx context.Context, tokenStr string) ValidateResult {
	return RunValidateRefresh(ctx, tokenStr, s.deps.Validate)
}

func (s Service) Reissue(identity string, details map[string]any, typ jwt.TokenType) ReissueResult {
	return RunReissue(identity, details, typ, s.deps.Reissue)
}

func (s Service) Logout(ctx context.Context, identity string) error {
	return RunLogout(ctx, identity, s.deps.Logout)
}
