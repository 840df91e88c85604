/*
Package access provides role elevation and capability tokens.

PURPOSE:
  Each establishment (scope) has two shared secrets: one for employees, one
  for managers. Presenting a scope's secret elevates the caller to that role
  and returns a signed, short-lived capability token. Review endpoints then
  require a token instead of re-checking raw secrets on every call, so
  secrets travel over the wire exactly once per session.

ROLES:
  RoleEmployee: May review requests within the scope (approve/reject)
  RoleManager:  Employee powers plus scope administration

TOKENS:
  HS256 JWTs with registered claims (iss, exp, iat) plus the scope and role.
  Verification rejects unexpected signing methods, expired tokens, and
  tokens from other issuers. The signing key comes from configuration and
  is never persisted.

SECRET COMPARISON:
  Secrets are compared with constant-time comparison so response timing
  leaks nothing about prefix matches.

USAGE:
  keeper := access.NewKeeper(scopes, signingKey, 12*time.Hour)

  grant, err := keeper.Elevate("hunter2", "hospital")
  // grant.Role == access.RoleManager, grant.Token is a JWT

  claims, err := keeper.Verify(grant.Token)
  // claims.ScopeID == "hospital", claims.Role == access.RoleManager

SEE ALSO:
  - api/server.go: Token-gated review routes
  - factory: Builds scopes from town configuration
*/
package access

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yunhopapisaoko-dot/township/engine"
)

// =============================================================================
// ROLES AND SCOPES
// =============================================================================

type Role string

const (
	RoleNone     Role = "none"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// AtLeast reports whether the role grants the powers of required.
func (r Role) AtLeast(required Role) bool {
	rank := map[Role]int{RoleNone: 0, RoleEmployee: 1, RoleManager: 2}
	return rank[r] >= rank[required]
}

// Scope is an establishment with its own staff secrets.
type Scope struct {
	ID             string
	Name           string
	EmployeeSecret string
	ManagerSecret  string
}

// Grant is the result of a successful elevation.
type Grant struct {
	ScopeID   string
	Role      Role
	Token     string
	ExpiresAt time.Time
}

// Claims are the verified contents of a capability token.
type Claims struct {
	ScopeID string
	Role    Role
}

var (
	ErrUnknownScope = errors.New("unknown scope")
	ErrInvalidToken = errors.New("invalid capability token")
)

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	ScopeID string `json:"scope_id"`
	Role    string `json:"role"`
}

const tokenIssuer = "township"

// =============================================================================
// KEEPER - Elevation and verification
// =============================================================================

// Keeper issues and verifies capability tokens for a fixed set of scopes.
type Keeper struct {
	// Now is injectable for tests.
	Now func() time.Time

	scopes     map[string]Scope
	signingKey []byte
	ttl        time.Duration
}

func NewKeeper(scopes []Scope, signingKey []byte, ttl time.Duration) *Keeper {
	byID := make(map[string]Scope, len(scopes))
	for _, s := range scopes {
		byID[s.ID] = s
	}
	return &Keeper{
		Now:        func() time.Time { return time.Now().UTC() },
		scopes:     byID,
		signingKey: signingKey,
		ttl:        ttl,
	}
}

// Scopes returns the known scope IDs.
func (k *Keeper) Scopes() []string {
	ids := make([]string, 0, len(k.scopes))
	for id := range k.scopes {
		ids = append(ids, id)
	}
	return ids
}

// Elevate checks a secret against a scope's staff secrets and, on match,
// issues a capability token for the granted role. Manager is checked first
// so a manager secret never degrades to employee.
func (k *Keeper) Elevate(secret, scopeID string) (*Grant, error) {
	scope, ok := k.scopes[scopeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scopeID)
	}

	role := RoleNone
	switch {
	case secretMatches(secret, scope.ManagerSecret):
		role = RoleManager
	case secretMatches(secret, scope.EmployeeSecret):
		role = RoleEmployee
	default:
		return nil, engine.ErrInvalidSecret
	}

	now := k.Now()
	expiresAt := now.Add(k.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		ScopeID: scope.ID,
		Role:    string(role),
	})

	signed, err := token.SignedString(k.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Grant{
		ScopeID:   scope.ID,
		Role:      role,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses a capability token and returns its claims.
func (k *Keeper) Verify(token string) (*Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return k.signingKey, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(k.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role := Role(parsed.Role)
	switch role {
	case RoleEmployee, RoleManager:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, parsed.Role)
	}
	if _, ok := k.scopes[parsed.ScopeID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, parsed.ScopeID)
	}

	return &Claims{ScopeID: parsed.ScopeID, Role: role}, nil
}

// secretMatches compares in constant time; empty configured secrets never match.
func secretMatches(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
