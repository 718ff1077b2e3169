package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"skywatch/internal/domain"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Google emite ID tokens con cualquiera de estos dos valores de iss.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// IdentityVerifier valida una aserción de identidad federada.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (FederatedIdentity, error)
}

// FederatedIdentity son los datos extraídos de una aserción verificada.
type FederatedIdentity struct {
	Provider   string
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}

// GoogleVerifier verifica ID tokens de Google Identity Services con go-oidc.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
	issuers  []string
}

// NewGoogleVerifier no hace llamadas de red: las claves públicas se descargan en la primera verificación.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrOAuthUnavailable
	}
	keySet := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	return newGoogleVerifierWithKeySet(clientID, keySet, googleIssuers), nil
}

func newGoogleVerifierWithKeySet(clientID string, keySet oidc.KeySet, issuers []string) *GoogleVerifier {
	verifier := oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{
		ClientID: clientID,
		// el emisor se valida contra googleIssuers más abajo
		SkipIssuerCheck: true,
	})
	return &GoogleVerifier{verifier: verifier, issuers: issuers}
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (FederatedIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return FederatedIdentity{}, ErrOAuthInvalid
	}
	idToken, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return FederatedIdentity{}, fmt.Errorf("%w: %v", ErrOAuthInvalid, err)
	}
	if !v.trustedIssuer(idToken.Issuer) {
		return FederatedIdentity{}, fmt.Errorf("%w: unexpected issuer %q", ErrOAuthInvalid, idToken.Issuer)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return FederatedIdentity{}, fmt.Errorf("%w: %v", ErrOAuthInvalid, err)
	}
	email := normalizeEmail(claims.Email)
	if idToken.Subject == "" || email == "" {
		return FederatedIdentity{}, fmt.Errorf("%w: missing subject or email", ErrOAuthInvalid)
	}
	// Un email no verificado permitiría vincular cuentas ajenas.
	if !claims.EmailVerified {
		return FederatedIdentity{}, fmt.Errorf("%w: email not verified by provider", ErrOAuthInvalid)
	}

	return FederatedIdentity{
		Provider:   domain.OAuthProviderGoogle,
		Subject:    idToken.Subject,
		Email:      email,
		GivenName:  strings.TrimSpace(claims.GivenName),
		FamilyName: strings.TrimSpace(claims.FamilyName),
		Picture:    strings.TrimSpace(claims.Picture),
	}, nil
}

func (v *GoogleVerifier) trustedIssuer(iss string) bool {
	for _, allowed := range v.issuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

type disabledVerifier struct{}

// NewDisabledVerifier responde ErrOAuthUnavailable a toda verificación.
func NewDisabledVerifier() IdentityVerifier {
	return disabledVerifier{}
}

func (disabledVerifier) Verify(_ context.Context, _ string) (FederatedIdentity, error) {
	return FederatedIdentity{}, ErrOAuthUnavailable
}
