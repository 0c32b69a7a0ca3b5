package membership

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the session lifetime when none is configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

// TokenService issues and verifies self-contained session tokens.
// There is no revocation store: a token's lifetime is bounded solely by
// its expiry.
type TokenService interface {
	Generate(memberID uuid.UUID) (string, error)
	Validate(raw string) (*SessionClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
	}
}

// Generate creates a signed token bound to the given member identity.
func (ts *TokenServiceImpl) Generate(memberID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   memberID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID: memberID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", err
	}

	return signedString, nil
}

// Validate parses and verifies a token string. It fails closed: a
// signature mismatch, malformed payload, unexpected algorithm, and
// expiry all collapse into ErrInvalidOrExpiredToken so callers cannot
// be used as a verification oracle.
func (ts *TokenServiceImpl) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token service validate could not decode claims")
		return nil, ErrInvalidOrExpiredToken
	}

	if _, err := uuid.Parse(claims.MemberID()); err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	return claims, nil
}
