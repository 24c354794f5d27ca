package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified subject of a bearer token issued by the identity provider
type Identity struct {
	UID   string
	Email string
}

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWKSVerifier validates RS256 tokens against the identity provider's published keys
type JWKSVerifier struct {
	keys    keyfunc.Keyfunc
	options []jwt.ParserOption
}

// NewJWKSVerifier fetches the key set at jwksURL and keeps it refreshed in the background
// until ctx is cancelled
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) (*JWKSVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &JWKSVerifier{keys: k, options: opts}, nil
}

// Verify validates the token and returns its subject
func (v *JWKSVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, v.keys.Keyfunc, v.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return identityFromToken(token)
}

// HMACVerifier validates HS256 tokens signed with a shared secret. It is used
// for local development, where it can also issue tokens.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a shared-secret verifier
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Issue signs a token for uid valid for ttl
func (v *HMACVerifier) Issue(uid, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   uid,
		"email": email,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify validates the token and returns its subject
func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return identityFromToken(token)
}

func identityFromToken(token *jwt.Token) (*Identity, error) {
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("sub not found in token")
	}

	email, _ := claims["email"].(string)
	return &Identity{UID: sub, Email: email}, nil
}
