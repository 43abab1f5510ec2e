package token

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-service/internal/model"
)

const (
	// Claim values distinguishing the two token kinds.
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	revokedPrefix = "revoked:"
	userPrefix    = "user:"
)

// Key layout in the store:
//
//	revoked:<token>        – revocation marker, TTL = remaining token lifetime
//	user:<uid>:<token>     – live refresh-token index entry, TTL = token lifetime
//	user:<uid>:tokens      – set of the user's live refresh tokens
//
// The index entry is the authoritative "issued and not yet revoked" signal;
// the set exists so revoke-all can enumerate without prefix scans.
func revokedKey(token string) string        { return revokedPrefix + token }
func userTokenKey(uid, token string) string { return userPrefix + uid + ":" + token }
func userSetKey(uid string) string          { return userPrefix + uid + ":tokens" }

// Service issues and validates HS256 JWTs and tracks refresh-token state in
// a Store. Access tokens are stateless; refresh tokens are indexed at issue
// time and revocable until natural expiry. The secret is read-only after
// construction, so the service is safe for concurrent use.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	tokenType  string
	store      Store
	now        func() time.Time
}

// NewService builds a token service. tokenType is the label returned in auth
// responses (normally "Bearer").
func NewService(secret string, accessTTL, refreshTTL time.Duration, tokenType string, store Store) *Service {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		tokenType:  tokenType,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock; tests use it to control iat/exp.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TokenType returns the response label for issued tokens.
func (s *Service) TokenType() string { return s.tokenType }

// ----- issuing -----

// GenerateAccessToken signs a short-lived access token carrying the user's
// identity and roles.
func (s *Service) GenerateAccessToken(u model.User) (string, error) {
	return s.GenerateAccessTokenWithTTL(u, s.accessTTL)
}

// GenerateAccessTokenWithTTL signs an access token with an explicit
// lifetime.
func (s *Service) GenerateAccessTokenWithTTL(u model.User, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"roles":    u.Roles,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"typ":      TypeAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// GenerateAccessTokenWithClaims signs an access token with extra custom
// claims. Custom claims cannot override the reserved ones.
func (s *Service) GenerateAccessTokenWithClaims(u model.User, custom map[string]any) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{}
	for k, v := range custom {
		claims[k] = v
	}
	claims["sub"] = u.ID
	claims["username"] = u.Username
	claims["roles"] = u.Roles
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.accessTTL).Unix()
	claims["typ"] = TypeAccess
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// GenerateRefreshToken signs a refresh token and records it in the store:
// an index entry under user:<uid>:<token> plus membership in the user's
// token set, both expiring with the token. A store write failure surfaces
// so the caller never hands out an unindexed (and therefore unusable)
// refresh token.
func (s *Service) GenerateRefreshToken(ctx context.Context, u model.User) (string, error) {
	return s.GenerateRefreshTokenWithTTL(ctx, u, s.refreshTTL)
}

// GenerateRefreshTokenWithTTL is GenerateRefreshToken with an explicit
// lifetime.
func (s *Service) GenerateRefreshTokenWithTTL(ctx context.Context, u model.User, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"roles":    u.Roles,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"typ":      TypeRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, userTokenKey(u.ID, signed), "1", ttl); err != nil {
		return "", fmt.Errorf("index refresh token: %w", err)
	}
	if err := s.store.AddToSet(ctx, userSetKey(u.ID), signed, ttl); err != nil {
		return "", fmt.Errorf("index refresh token: %w", err)
	}
	return signed, nil
}

// ----- parsing -----

func (s *Service) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
	}
	return s.secret, nil
}

// parse verifies the signature and validates registered claims (exp, nbf).
func (s *Service) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, s.keyFunc)
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// parseUnvalidated verifies only the signature; expired tokens still parse
// so their metadata stays readable.
func (s *Service) parseUnvalidated(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, s.keyFunc); err != nil {
		return nil, err
	}
	return claims, nil
}

// IsTokenValid reports whether the signature verifies and the claims are
// well-formed. Expiry is not considered.
func (s *Service) IsTokenValid(token string) bool {
	_, err := s.parseUnvalidated(token)
	return err == nil
}

// IsTokenSignatureValid is a signature-only check; an expired but correctly
// signed token still passes.
func (s *Service) IsTokenSignatureValid(token string) bool {
	return s.IsTokenValid(token)
}

// IsTokenValidAndNotExpired reports whether the token verifies, has not
// expired and carries no revocation marker.
func (s *Service) IsTokenValidAndNotExpired(ctx context.Context, token string) bool {
	if _, err := s.parse(token); err != nil {
		return false
	}
	exp, ok := s.GetExpirationTime(token)
	if !ok || !exp.After(s.now()) {
		return false
	}
	revoked, err := s.IsRefreshTokenRevoked(ctx, token)
	if err != nil {
		// A store failure means revocation cannot be ruled out.
		return false
	}
	return !revoked
}

// ----- claim extraction (works on expired tokens) -----

// ExtractUserID returns the sub claim.
func (s *Service) ExtractUserID(token string) (string, bool) {
	v, ok := s.ExtractClaim(token, "sub")
	if !ok {
		return "", false
	}
	sub, ok := v.(string)
	return sub, ok && sub != ""
}

// ExtractUsername returns the username claim.
func (s *Service) ExtractUsername(token string) (string, bool) {
	v, ok := s.ExtractClaim(token, "username")
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// ExtractRoles returns the roles claim as a string slice.
func (s *Service) ExtractRoles(token string) ([]string, bool) {
	v, ok := s.ExtractClaim(token, "roles")
	if !ok {
		return nil, false
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		str, ok := r.(string)
		if !ok {
			return nil, false
		}
		roles = append(roles, str)
	}
	return roles, true
}

// ExtractClaim returns a single claim by name.
func (s *Service) ExtractClaim(token, name string) (any, bool) {
	claims, err := s.parseUnvalidated(token)
	if err != nil {
		return nil, false
	}
	v, ok := claims[name]
	return v, ok
}

// ExtractAllClaims returns every claim in the token.
func (s *Service) ExtractAllClaims(token string) (map[string]any, bool) {
	claims, err := s.parseUnvalidated(token)
	if err != nil {
		return nil, false
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, true
}

// GetExpirationTime returns the exp claim as UTC.
func (s *Service) GetExpirationTime(token string) (time.Time, bool) {
	return s.claimTime(token, "exp")
}

// GetIssueTime returns the iat claim as UTC.
func (s *Service) GetIssueTime(token string) (time.Time, bool) {
	return s.claimTime(token, "iat")
}

func (s *Service) claimTime(token, name string) (time.Time, bool) {
	v, ok := s.ExtractClaim(token, name)
	if !ok {
		return time.Time{}, false
	}
	secs, ok := v.(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0).UTC(), true
}

// ----- refresh & revocation -----

// RefreshAccessToken exchanges a live refresh token for a new access token.
// The refresh token must verify, be unexpired and unrevoked, carry
// typ=refresh, still be indexed in the store, and name a subject. Username
// and roles are carried over into the new access token. The refresh token
// itself is not rotated.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, bool) {
	if !s.IsTokenValidAndNotExpired(ctx, refreshToken) {
		return "", false
	}
	if typ, _ := s.ExtractClaim(refreshToken, "typ"); typ != TypeRefresh {
		return "", false
	}
	uid, ok := s.ExtractUserID(refreshToken)
	if !ok {
		return "", false
	}
	indexed, err := s.store.Exists(ctx, userTokenKey(uid, refreshToken))
	if err != nil || !indexed {
		return "", false
	}

	u := model.User{ID: uid}
	if name, ok := s.ExtractUsername(refreshToken); ok {
		u.Username = name
	}
	if roles, ok := s.ExtractRoles(refreshToken); ok {
		u.Roles = roles
	}
	access, err := s.GenerateAccessToken(u)
	if err != nil {
		log.Printf("token: minting access token on refresh failed: %v", err)
		return "", false
	}
	return access, true
}

// RevokeRefreshToken marks a refresh token revoked and drops its index
// entry. Idempotent: invalid or already-revoked tokens are a no-op. The
// marker's TTL equals the remaining token lifetime, after which natural
// expiry takes over.
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if !s.IsTokenValid(refreshToken) {
		return nil
	}
	uid, ok := s.ExtractUserID(refreshToken)
	if !ok {
		return nil
	}
	if err := s.revokeOne(ctx, uid, refreshToken); err != nil {
		return err
	}
	return s.store.RemoveFromSet(ctx, userSetKey(uid), refreshToken)
}

// revokeOne writes the revocation marker before deleting the index entry,
// so a concurrent refresh observes at least one of the two.
func (s *Service) revokeOne(ctx context.Context, uid, refreshToken string) error {
	if exp, ok := s.GetExpirationTime(refreshToken); ok {
		if ttl := exp.Sub(s.now()); ttl > 0 {
			if err := s.store.Put(ctx, revokedKey(refreshToken), "revoked", ttl); err != nil {
				return err
			}
		}
	}
	return s.store.Delete(ctx, userTokenKey(uid, refreshToken))
}

// RevokeAllTokensForUser revokes every refresh token indexed for the user
// and clears the index. Idempotent; a user with no live tokens is a no-op.
func (s *Service) RevokeAllTokensForUser(ctx context.Context, uid string) error {
	tokens, err := s.store.SetMembers(ctx, userSetKey(uid))
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := s.revokeOne(ctx, uid, t); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, userSetKey(uid))
}

// IsRefreshTokenRevoked reports presence of the revocation marker.
func (s *Service) IsRefreshTokenRevoked(ctx context.Context, refreshToken string) (bool, error) {
	return s.store.Exists(ctx, revokedKey(refreshToken))
}
