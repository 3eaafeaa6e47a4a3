package ups

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cybership/rating/pkg/carrier"
	"github.com/cybership/rating/pkg/carrier/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshBuffer is subtracted from a token's expiry when deciding
	// whether the cached token is still usable.
	refreshBuffer = 60 * time.Second

	// fallbackTokenTTL is assumed when the token response carries a missing
	// or unparsable expires_in.
	fallbackTokenTTL = 4 * time.Hour

	tokenFlightKey = "token"
)

// authProvider implements carrier.AuthProvider for the UPS OAuth2
// client-credentials flow. A cached token is reused until it enters the
// refresh buffer; concurrent refreshes are deduplicated so that N callers
// during a pending fetch produce exactly one upstream token request.
type authProvider struct {
	authURL      string
	clientID     string
	clientSecret string
	http         *transport.Client
	logger       *otelzap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	flight    singleflight.Group
}

func newAuthProvider(cfg Config, http *transport.Client, logger *otelzap.Logger) *authProvider {
	return &authProvider{
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         http,
		logger:       logger,
	}
}

// Token returns the cached token while it remains outside the refresh
// buffer, otherwise joins or initiates a single-flight fetch.
func (a *authProvider) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.token != "" && time.Now().Before(a.expiresAt.Add(-refreshBuffer)) {
		token := a.token
		a.mu.Unlock()
		return token, nil
	}
	a.mu.Unlock()

	result, err, _ := a.flight.Do(tokenFlightKey, func() (any, error) {
		return a.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token and forgets any in-flight refresh so
// the next Token call fetches fresh credentials.
func (a *authProvider) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.mu.Unlock()
	a.flight.Forget(tokenFlightKey)
}

// fetchToken exchanges the client credentials for an access token. UPS
// expects HTTP Basic auth with a form-encoded body, not JSON.
func (a *authProvider) fetchToken(ctx context.Context) (string, error) {
	credentials := base64.StdEncoding.EncodeToString(
		[]byte(a.clientID + ":" + a.clientSecret))

	resp, err := a.http.Post(ctx, a.authURL,
		[]byte("grant_type=client_credentials"),
		map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": "Basic " + credentials,
		})
	if err != nil {
		var cerr *carrier.Error
		if errors.As(err, &cerr) && cerr.Code == carrier.CodeAuthFailed {
			return "", err
		}
		return "", carrier.NewAuthError(carrierName,
			fmt.Sprintf("Failed to obtain access token: %v", err), err)
	}

	var token tokenResponse
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return "", carrier.NewAuthError(carrierName,
			"Failed to decode token response", err)
	}
	if token.AccessToken == "" {
		return "", carrier.NewAuthError(carrierName,
			"Token response missing access_token field", nil)
	}

	ttl := fallbackTokenTTL
	if secs, perr := strconv.Atoi(token.ExpiresIn); perr == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	} else {
		a.logger.Warn("Could not parse token expires_in, defaulting to 4h",
			zap.String("expires_in", token.ExpiresIn))
	}

	a.mu.Lock()
	a.token = token.AccessToken
	a.expiresAt = time.Now().Add(ttl)
	a.mu.Unlock()

	return token.AccessToken, nil
}

var _ carrier.AuthProvider = (*authProvider)(nil)
