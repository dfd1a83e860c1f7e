// Package token signs and verifies the paired access/refresh JWTs. The two
// token classes use distinct HMAC secrets, so possession of one class never
// allows forging the other, and refresh tokens carry a discriminator claim
// so an access token can never be replayed on the refresh path.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/invoicemenecer/api/internal/config"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// issuer or audience, missing discriminator, expired. Callers must not be
// able to tell which check failed.
var ErrInvalidToken = errors.New("invalid token")

const refreshTokenType = "refresh"

var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by a refresh token. TokenType is the
// discriminator that separates the two token classes.
type RefreshClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with immutable configuration. Construct
// one at startup; it is safe for concurrent use.
type Codec struct {
	issuer        string
	audience      string
	accessSecret  []byte
	refreshSecret []byte
}

func NewCodec(cfg *config.JWTConfig) (*Codec, error) {
	if cfg.Secret == "" || cfg.RefreshSecret == "" {
		return nil, config.ErrMissingSecret
	}
	if cfg.Secret == cfg.RefreshSecret {
		return nil, config.ErrSameSecret
	}
	return &Codec{
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		accessSecret:  []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
	}, nil
}

// SignAccessToken issues an access token for the user with a fresh jti and
// expiry now+ttl. Returns the compact token and its expiry.
func (c *Codec) SignAccessToken(userID, name, email string, roles []string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := AccessClaims{
		Name:  name,
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// SignRefreshToken issues a refresh token whose jti is the caller-supplied
// tokenID, signed with the refresh secret.
func (c *Codec) SignRefreshToken(userID, tokenID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := RefreshClaims{
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   userID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken validates signature, issuer, audience and expiry with
// zero clock skew and returns the claims.
func (c *Codec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.accessSecret, nil },
		jwt.WithValidMethods(signingMethods),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken validates a refresh token and returns the subject and
// jti. With validateExpiry false the exp claim is ignored; that mode exists
// only for the revoke path, so an already-expired token can still be
// explicitly revoked. Signature, issuer, audience and the refresh
// discriminator are enforced in both modes.
func (c *Codec) VerifyRefreshToken(tokenString string, validateExpiry bool) (userID, tokenID string, err error) {
	claims := &RefreshClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods(signingMethods)}
	if validateExpiry {
		opts = append(opts,
			jwt.WithIssuer(c.issuer),
			jwt.WithAudience(c.audience),
			jwt.WithExpirationRequired(),
		)
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, parseErr := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.refreshSecret, nil },
		opts...,
	)
	if parseErr != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}

	if !validateExpiry {
		// Claims validation was skipped entirely; issuer and audience
		// still have to match.
		if claims.Issuer != c.issuer || !containsAudience(claims.Audience, c.audience) {
			return "", "", ErrInvalidToken
		}
	}

	if claims.TokenType != refreshTokenType {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.ID, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
