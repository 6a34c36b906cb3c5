package wxcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"miniprogram-ai-chat/internal/infra/metrics"
)

// tokenSafetyMargin is subtracted from the declared token lifetime so a token
// is never handed out near its true expiry.
const tokenSafetyMargin = 200 * time.Second

// Credentials caches the short-lived bearer token issued by the identity
// endpoint and refreshes it on demand. Concurrent refreshes are allowed
// (last writer wins); the mutex only guards the cached token/expiry pair.
type Credentials struct {
	appID     string
	appSecret string
	base      string
	client    *http.Client
	log       *zerolog.Logger

	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewCredentials(appID, appSecret, base string, log *zerolog.Logger) (*Credentials, error) {
	if appID == "" || appSecret == "" {
		return nil, errors.New("wxcloud: app id or secret empty")
	}
	return &Credentials{
		appID:     appID,
		appSecret: appSecret,
		base:      base,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
		now:       time.Now,
	}, nil
}

// Token returns the cached bearer token, refreshing it when expired or absent.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		tok := c.token
		c.mu.Unlock()
		metrics.IncCredential("hit")
		return tok, nil
	}
	c.mu.Unlock()

	token, lifetime, err := c.exchange(ctx)
	if err != nil {
		metrics.IncCredential("failed")
		return "", err
	}

	c.mu.Lock()
	c.token = token
	c.expiresAt = c.now().Add(lifetime - tokenSafetyMargin)
	c.mu.Unlock()

	metrics.IncCredential("refreshed")
	c.log.Debug().Dur("lifetime", lifetime).Msg("access token refreshed")
	return token, nil
}

func (c *Credentials) exchange(ctx context.Context) (string, time.Duration, error) {
	u := fmt.Sprintf("%s/cgi-bin/token?grant_type=client_credential&appid=%s&secret=%s",
		c.base, url.QueryEscape(c.appID), url.QueryEscape(c.appSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("token exchange decode: %w", err)
	}
	if out.AccessToken == "" {
		return "", 0, fmt.Errorf("token exchange rejected: errcode=%d %s", out.ErrCode, out.ErrMsg)
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}
