package shopify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenRefreshSkew renews a token this long before the platform expires it.
const tokenRefreshSkew = 5 * time.Minute

type credential interface {
	token(ctx context.Context) (string, error)
	invalidate()
	refreshable() bool
}

type staticToken string

func (t staticToken) token(context.Context) (string, error) { return string(t), nil }
func (staticToken) invalidate()                             {}
func (staticToken) refreshable() bool                       { return false }

// exchangedToken obtains tokens with the client-credentials grant and keeps
// the current one in memory.
type exchangedToken struct {
	cfg      clientcredentials.Config
	http     *http.Client
	now      func() time.Time
	recorder Recorder

	mu        sync.Mutex
	current   *oauth2.Token
	expiresAt time.Time
}

func newExchangedToken(tokenURL, clientID, clientSecret string, httpClient *http.Client, now func() time.Time, recorder Recorder) *exchangedToken {
	return &exchangedToken{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http:     httpClient,
		now:      now,
		recorder: recorder,
	}
}

func (e *exchangedToken) token(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fresh() {
		return e.current.AccessToken, nil
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.http)
	tok, err := e.cfg.Token(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	e.current = tok
	e.expiresAt = e.expiry(tok)
	e.recorder.TokenRefreshed()
	return tok.AccessToken, nil
}

// fresh reports whether the cached token may still be used. A token without
// an expiry is kept until the platform rejects it.
func (e *exchangedToken) fresh() bool {
	if e.current == nil || e.current.AccessToken == "" {
		return false
	}
	if e.expiresAt.IsZero() {
		return true
	}
	return e.now().Before(e.expiresAt.Add(-tokenRefreshSkew))
}

// expiry places the token lifetime on the client clock. oauth2 stamps
// Token.Expiry with the wall clock, which an injected clock may not follow.
func (e *exchangedToken) expiry(tok *oauth2.Token) time.Time {
	switch {
	case tok.ExpiresIn > 0:
		return e.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		return e.now().Add(time.Until(tok.Expiry))
	}
	return time.Time{}
}

func (e *exchangedToken) invalidate() {
	e.mu.Lock()
	e.current = nil
	e.expiresAt = time.Time{}
	e.mu.Unlock()
}

func (*exchangedToken) refreshable() bool { return true }
