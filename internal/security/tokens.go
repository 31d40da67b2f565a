package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired or signed by another key.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims of the access token issued after a successful biometric login.
type AccessClaims struct {
	jwt.RegisteredClaims
	Mobile   string `json:"mobile"`
	UserType string `json:"user_type"`
}

// TokenProvider issues and validates access tokens signed with RS256 or ES256.
type TokenProvider struct {
	signer    crypto.Signer
	publicKey crypto.PublicKey
	method    jwt.SigningMethod
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenProvider returns a provider signing with signer. The algorithm follows the key type.
func NewTokenProvider(signer crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) (*TokenProvider, error) {
	var method jwt.SigningMethod
	switch KeyAlg(signer.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &TokenProvider{
		signer:    signer,
		publicKey: publicKey,
		method:    method,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueAccess signs an access token for the user. Returns the token and its expiry.
func (p *TokenProvider) IssueAccess(userID, mobile, userType string) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.now()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Mobile:   mobile,
		UserType: userType,
	}
	token, err := jwt.NewWithClaims(p.method, claims).SignedString(p.signer)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateAccess checks signature, expiry, issuer and audience and returns the claims.
func (p *TokenProvider) ValidateAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
