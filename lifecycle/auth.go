package lifecycle

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("lifecycle: missing bearer token")

	// ErrInvalidToken is returned when a bearer token fails validation.
	ErrInvalidToken = errors.New("lifecycle: invalid bearer token")
)

// VerifierConfig configures bearer token verification for the HTTP
// endpoints.
type VerifierConfig struct {
	// Key is the HMAC signing key tokens are verified against.
	Key []byte

	// Issuer, when set, is the required iss claim.
	Issuer string

	// Audience, when set, is the required aud claim.
	Audience string
}

// TokenVerifier validates HS256 bearer tokens on incoming requests.
type TokenVerifier struct {
	config  VerifierConfig
	options []jwt.ParserOption
}

// NewTokenVerifier creates a token verifier.
func NewTokenVerifier(config VerifierConfig) *TokenVerifier {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if config.Issuer != "" {
		options = append(options, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		options = append(options, jwt.WithAudience(config.Audience))
	}

	return &TokenVerifier{config: config, options: options}
}

// Verify validates the Authorization header value. It returns nil when the
// header carries a valid bearer token.
func (v *TokenVerifier) Verify(header string) error {
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header || strings.TrimSpace(tokenString) == "" {
		return ErrMissingToken
	}
	tokenString = strings.TrimSpace(tokenString)

	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return v.config.Key, nil
	}, v.options...)
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
