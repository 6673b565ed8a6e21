package utils // package utils provides helpers for token signing and password hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens

	"github.com/iliyamo/trades-marketplace/internal/model"
)

// Verification failures.  VerifyToken returns exactly one of these.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

// TokenKind separates access tokens from refresh tokens.  It travels as the
// aud claim and VerifyToken only accepts the kind it is asked for.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// SessionClaim is the identity carried by both the access and the refresh
// token.  It is never persisted.
type SessionClaim struct {
	AccountID uint64     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

// ClaimFor builds the session claim of an account.
func ClaimFor(a model.Account) SessionClaim {
	return SessionClaim{AccountID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// Claims is the JWT body: the session claim plus the registered sub/aud/iat/exp.
type Claims struct {
	SessionClaim
	jwt.RegisteredClaims
}

// SignedToken represents a signed JWT along with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// IssueToken signs an HS256 JWT of the given kind carrying claim that
// expires ttl after now.  Two calls with the same inputs and the same now
// produce the same token.
func IssueToken(secret string, kind TokenKind, claim SessionClaim, ttl time.Duration, now time.Time) (SignedToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	c := Claims{
		SessionClaim: claim,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(claim.AccountID, 10),
			Audience:  jwt.ClaimStrings{string(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	// exp is encoded with second precision; report what the token carries.
	return SignedToken{Token: signed, Exp: c.ExpiresAt.Time.UTC()}, nil
}

// VerifyToken checks raw against secret at time now.  It fails with
// ErrSignatureMismatch when the signature was not produced with secret,
// ErrTokenMalformed when raw is not a session token of the wanted kind, and
// ErrTokenExpired once now reaches the embedded expiry.
func VerifyToken(secret string, kind TokenKind, raw string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(string(kind)),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureMismatch
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			// checked before expiry so a stale token of the other kind
			// is never reported as an expired session
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !tok.Valid || claims.AccountID == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
