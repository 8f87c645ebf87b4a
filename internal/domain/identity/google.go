package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const (
	// DefaultCallbackPort must match a redirect URI registered for the OAuth
	// client.
	DefaultCallbackPort = "6789"

	secureTokenURL = "https://securetoken.googleapis.com/v1/token"
	authTimeout    = 5 * time.Minute
)

// GoogleProvider signs a user in with their Google account and exchanges the
// Google credential for a Firebase session through Identity Toolkit.
type GoogleProvider struct {
	oauth   *oauth2.Config
	apiKey  string
	toolkit *identitytoolkit.Service
	out     io.Writer
	port    string
}

// NewGoogleProvider builds a provider from an OAuth client secrets file
// (the credentials.json downloaded from the Cloud console) and the Firebase
// web API key. The authorization URL is printed to out.
func NewGoogleProvider(ctx context.Context, clientSecrets []byte, apiKey string, out io.Writer) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("firebase api key is required")
	}
	cfg, err := google.ConfigFromJSON(clientSecrets, "openid", "email", "profile")
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create identity toolkit client: %w", err)
	}

	p := &GoogleProvider{oauth: cfg, apiKey: apiKey, toolkit: toolkit, out: out, port: DefaultCallbackPort}
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%s/oauth2callback", p.port)
	return p, nil
}

func (p *GoogleProvider) SignIn(ctx context.Context) (*User, error) {
	tok, err := p.tokenFromWeb(ctx)
	if err != nil {
		return nil, err
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("google did not return an id token")
	}

	body := url.Values{"id_token": {idToken}, "providerId": {"google.com"}}
	resp, err := p.toolkit.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        p.oauth.RedirectURL,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("verify assertion: %w", err)
	}
	return userFromAssertion(resp, time.Now())
}

// SignOut only drops local state; Firebase ID tokens expire on their own.
func (p *GoogleProvider) SignOut(ctx context.Context, u *User) error {
	return nil
}

func (p *GoogleProvider) Refresh(ctx context.Context, u *User) (*User, error) {
	return RefreshWithAPIKey(ctx, p.apiKey, u)
}

// RefreshWithAPIKey trades u's Firebase refresh token for a new ID token.
// The secure token endpoint speaks the OAuth2 refresh grant, so oauth2
// drives it.
func RefreshWithAPIKey(ctx context.Context, apiKey string, u *User) (*User, error) {
	if apiKey == "" {
		return nil, errors.New("firebase api key is required")
	}
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  secureTokenURL + "?key=" + url.QueryEscape(apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: u.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return refreshedUser(u, tok), nil
}

func (p *GoogleProvider) tokenFromWeb(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:"+p.port)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", p.port, err)
	}

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	server := &http.Server{
		Handler:      http.HandlerFunc(callbackHandler(state, codeCh, errCh)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer server.Close()

	authURL := p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(p.out, "Open the following URL in your browser to sign in:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		tok, err := p.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", e):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "authorization code not found", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "Signed in. You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	}
}

func userFromAssertion(resp *identitytoolkit.VerifyAssertionResponse, now time.Time) (*User, error) {
	if resp.ErrorMessage != "" {
		return nil, errors.New(resp.ErrorMessage)
	}
	if resp.LocalId == "" || resp.IdToken == "" {
		return nil, errors.New("identity toolkit returned no session")
	}
	u := &User{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		u.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return u, nil
}

func refreshedUser(u *User, tok *oauth2.Token) *User {
	fresh := u.clone()
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		fresh.IDToken = id
	} else {
		fresh.IDToken = tok.AccessToken
	}
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	fresh.ExpiresAt = tok.Expiry
	return fresh
}
