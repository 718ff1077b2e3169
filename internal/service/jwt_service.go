package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"skywatch/internal/domain"
)

const (
	accessTokenType  = "access"
	defaultTokenTTL  = time.Hour
	defaultJWTIssuer = "skywatch"
)

// JWTService emite y valida tokens JWT de acceso.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// IssuedToken es un token firmado y su vencimiento.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn int64     `json:"expiresIn"`
}

type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	// ErrJWTExpired envuelve ErrJWTInvalid: quien solo compare contra ErrJWTInvalid no distingue el vencimiento.
	ErrJWTExpired  = fmt.Errorf("%w: expired", ErrJWTInvalid)
	ErrJWTNoSecret = errors.New("jwt secret not configured")
)

// NewJWTService falla si el secreto está vacío; el proceso no debe arrancar sin él.
func NewJWTService(secret string, ttl time.Duration, issuer string) (*JWTService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrJWTNoSecret
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = defaultJWTIssuer
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// TTL devuelve la vida útil configurada de los tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

func (s *JWTService) Issue(user domain.User) (IssuedToken, error) {
	if strings.TrimSpace(user.ID) == "" {
		return IssuedToken{}, fmt.Errorf("issue token: empty user id")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID:    user.ID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}

// Verify valida firma, algoritmo, emisor, vencimiento y el vínculo sub/uid.
func (s *JWTService) Verify(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if claims.TokenType != accessTokenType {
		return false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	return claims.Subject == claims.UserID
}
