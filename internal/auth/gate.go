// Package auth implements the double credential check in front of the
// product and pricing operations: a shared service secret plus a signed
// identity token, optionally requiring the admin role.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"shoppingmart/internal/config"
	"shoppingmart/internal/models"
)

const (
	ReasonInvalidServiceCredential = "invalid service credential"
	ReasonElevatedRequired         = "elevated privileges required"
	reasonInvalidTokenPrefix       = "invalid identity token: "
)

// Verdict is produced fresh for every call and never cached.
type Verdict struct {
	Authorized bool
	Claims     *models.IdentityClaims
	Reason     string
}

// TokenClaims is the payload of an identity token.
type TokenClaims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Gate holds the configured secrets. It has no mutable state and is safe for
// concurrent use.
type Gate struct {
	serviceSecret []byte
	tokenKey      []byte
	parser        *jwt.Parser
}

// NewGate returns a *config.ConfigurationError when either secret is empty.
func NewGate(serviceSecret, tokenSecret string) (*Gate, error) {
	if serviceSecret == "" {
		return nil, &config.ConfigurationError{Key: "DLL_PASSWORD"}
	}
	if tokenSecret == "" {
		return nil, &config.ConfigurationError{Key: "JWT_SECRET"}
	}
	return &Gate{
		serviceSecret: []byte(serviceSecret),
		tokenKey:      []byte(tokenSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Authorize checks the service secret first and only then the token, so a
// wrong secret is rejected without any token verification. The returned
// error is non-nil only for a gate built without secrets.
func (g *Gate) Authorize(serviceSecret, identityToken string, requireElevated bool) (Verdict, error) {
	if g == nil || len(g.serviceSecret) == 0 {
		return Verdict{}, &config.ConfigurationError{Key: "DLL_PASSWORD"}
	}
	if len(g.tokenKey) == 0 {
		return Verdict{}, &config.ConfigurationError{Key: "JWT_SECRET"}
	}

	if subtle.ConstantTimeCompare([]byte(serviceSecret), g.serviceSecret) != 1 {
		return deny(ReasonInvalidServiceCredential), nil
	}

	claims, err := g.verify(identityToken)
	if err != nil {
		return deny(reasonInvalidTokenPrefix + err.Error()), nil
	}

	if requireElevated && claims.Role != models.RoleAdmin {
		return deny(ReasonElevatedRequired), nil
	}

	return Verdict{Authorized: true, Claims: claims}, nil
}

func (g *Gate) verify(token string) (*models.IdentityClaims, error) {
	if token == "" {
		return nil, errors.New("token is missing")
	}
	var tc TokenClaims
	if _, err := g.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return g.tokenKey, nil
	}); err != nil {
		return nil, err
	}
	if tc.UserID <= 0 {
		return nil, errors.New("token has no subject")
	}
	switch models.Role(tc.Role) {
	case models.RoleCustomer, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q", tc.Role)
	}
	return &models.IdentityClaims{
		SubjectID: tc.UserID,
		Email:     tc.Email,
		Role:      models.Role(tc.Role),
	}, nil
}

func deny(reason string) Verdict {
	return Verdict{Authorized: false, Reason: reason}
}
