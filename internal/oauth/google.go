package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.OAuthClient = (*Google)(nil)

const stateBytes = 32

// Config contains Google OAuth client parameters.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	JWKSURL      string
	Issuers      []string
	RedirectURIs []string
	LoginScopes  []string
	GmailScopes  []string
}

// Google is an OAuth 2.0 / OpenID Connect client for Google sign-in and Gmail access.
type Google struct {
	cfg        Config
	allowed    map[string]struct{}
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

// Option configures Google.
type Option func(*options)

type options struct {
	keySet     oidc.KeySet
	httpClient *http.Client
}

// WithKeySet overrides the remote JWKS used to verify identity tokens.
func WithKeySet(ks oidc.KeySet) Option {
	return func(o *options) { o.keySet = ks }
}

// WithHTTPClient sets the client used for token exchange and key fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewGoogle creates a Google client. The allowed redirect URIs are normalized once here.
func NewGoogle(ctx context.Context, cfg Config, opts ...Option) (*Google, error) {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	if len(cfg.Issuers) == 0 {
		return nil, errors.New("at least one issuer is required")
	}

	allowed := make(map[string]struct{}, len(cfg.RedirectURIs))
	for _, uri := range cfg.RedirectURIs {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			continue
		}
		allowed[normalizeLoopback(uri)] = struct{}{}
	}

	keySet := o.keySet
	if keySet == nil {
		if cfg.JWKSURL == "" {
			return nil, errors.New("jwks url is required")
		}
		keySet = oidc.NewRemoteKeySet(oidc.ClientContext(ctx, o.httpClient), cfg.JWKSURL)
	}

	verifier := oidc.NewVerifier(cfg.Issuers[0], keySet, &oidc.Config{
		ClientID: cfg.ClientID,
		// Google issues tokens under two issuer spellings; checked after verification.
		SkipIssuerCheck: true,
	})

	return &Google{
		cfg:        cfg,
		allowed:    allowed,
		verifier:   verifier,
		httpClient: o.httpClient,
	}, nil
}

// AllowedRedirectURI normalizes loopback aliases to localhost and checks the allowlist.
func (g *Google) AllowedRedirectURI(redirectURI string) (string, error) {
	normalized := normalizeLoopback(redirectURI)
	if _, ok := g.allowed[normalized]; !ok {
		return "", fmt.Errorf("%w: %s", model.ErrRedirectNotAllowed, normalized)
	}
	return normalized, nil
}

// AuthorizationURL builds the consent URL and a fresh state value.
func (g *Google) AuthorizationURL(redirectURI string, opts model.AuthorizationOptions) (string, string, error) {
	redirectURI, err := g.AllowedRedirectURI(redirectURI)
	if err != nil {
		return "", "", err
	}

	state, err := newState()
	if err != nil {
		return "", "", err
	}

	scopes := slices.Clone(g.cfg.LoginScopes)
	if opts.ExtendedScopes {
		scopes = append(scopes, g.cfg.GmailScopes...)
	}

	authOpts := []oauth2.AuthCodeOption{}
	if opts.Offline {
		authOpts = append(authOpts,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
			oauth2.SetAuthURLParam("prompt", "consent"),
		)
	}

	return g.config(redirectURI, scopes).AuthCodeURL(state, authOpts...), state, nil
}

// Exchange trades an authorization code for credentials.
func (g *Google) Exchange(ctx context.Context, code, redirectURI string) (model.OAuthCredentials, error) {
	redirectURI, err := g.AllowedRedirectURI(redirectURI)
	if err != nil {
		return model.OAuthCredentials{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.config(redirectURI, nil).Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return model.OAuthCredentials{}, fmt.Errorf("%w: %s", model.ErrAuthFailed, retrieveErr.ErrorCode)
		}
		return model.OAuthCredentials{}, fmt.Errorf("%w: %s", model.ErrUnknownAuth, err.Error())
	}

	creds := model.OAuthCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		creds.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		creds.Scopes = strings.Fields(scope)
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		creds.Expiry = &expiry
	}

	return creds, nil
}

type identityClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// VerifyIdentityToken checks signature, audience, expiry and issuer of an ID token.
func (g *Google) VerifyIdentityToken(ctx context.Context, rawIDToken string) (model.OAuthIdentity, error) {
	if rawIDToken == "" {
		return model.OAuthIdentity{}, fmt.Errorf("%w: token is empty", model.ErrInvalidIdentityToken)
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return model.OAuthIdentity{}, fmt.Errorf("%w: %s", model.ErrInvalidIdentityToken, err.Error())
	}
	if !slices.Contains(g.cfg.Issuers, idToken.Issuer) {
		return model.OAuthIdentity{}, fmt.Errorf("%w: unexpected issuer %q", model.ErrInvalidIdentityToken, idToken.Issuer)
	}

	var claims identityClaims
	if err := idToken.Claims(&claims); err != nil {
		return model.OAuthIdentity{}, fmt.Errorf("%w: %s", model.ErrInvalidIdentityToken, err.Error())
	}

	return model.OAuthIdentity{
		Subject:    idToken.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}, nil
}

func (g *Google) config(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   g.cfg.AuthURL,
			TokenURL:  g.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// normalizeLoopback rewrites 127.0.0.1 and [::1] hosts to localhost.
func normalizeLoopback(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	switch u.Hostname() {
	case "127.0.0.1", "::1":
		host := "localhost"
		if port := u.Port(); port != "" {
			host += ":" + port
		}
		u.Host = host
	}

	return u.String()
}
