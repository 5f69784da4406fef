package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/types"
)

// Authorizer signs private channel subscriptions.
type Authorizer interface {
	Authorize(ctx context.Context, socketID, channel, token string) (string, error)
}

// HTTPAuthorizer calls the backend's broadcasting-auth endpoint with the bearer token.
type HTTPAuthorizer struct {
	Endpoint   string
	HTTPClient *http.Client
}

type authResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// NewHTTPAuthorizer returns an authorizer for the given endpoint.
func NewHTTPAuthorizer(endpoint string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *HTTPAuthorizer) Authorize(ctx context.Context, socketID, channel, token string) (string, error) {
	form := url.Values{}
	form.Set("socket_id", socketID)
	form.Set("channel_name", channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build channel auth request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeCanceled, err, "channel auth canceled")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "channel auth request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read channel auth response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var remote types.RemoteError
		_ = json.Unmarshal(body, &remote)
		return "", pkgerrors.FromStatus(resp.StatusCode, fmt.Sprintf("channel %s authorization rejected: %s", channel, strings.TrimSpace(remote.Message)))
	}

	var out authResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode channel auth response")
	}
	if out.Auth == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "channel auth response missing signature")
	}
	return out.Auth, nil
}
