package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/errutil"
	"entitlement-controlplane/pkg/telemetry"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Authority is the remote service that issues and answers for license keys.
type Authority interface {
	RequestTrial(ctx context.Context, req TrialRequest) error
	MarkAsActivated(ctx context.Context, key, platformID string) error
	GetKey(ctx context.Context, key string) (*LicenseKey, error)
}

const apiKeyHeader = "X-API-KEY"

type HTTPAuthority struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	validate  *validator.Validate
	telemetry telemetry.Emitter
}

type AuthorityParams struct {
	fx.In

	Config    *config.Config
	Telemetry telemetry.Emitter `optional:"true"`
}

func NewHTTPAuthority(p AuthorityParams) *HTTPAuthority {
	timeout := p.Config.License.Authority.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAuthority{
		baseURL: strings.TrimRight(p.Config.License.Authority.BaseURL, "/"),
		apiKey:  p.Config.License.Authority.ApiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		validate:  validator.New(),
		telemetry: p.Telemetry,
	}
}

func (a *HTTPAuthority) RequestTrial(ctx context.Context, req TrialRequest) error {
	if err := a.validate.Struct(req); err != nil {
		return errutil.ValidationFailed("invalid trial request", err, errutil.WithDetails(validationDetails(err)...))
	}

	status, body, err := a.do(ctx, "request trial", http.MethodPost, a.baseURL, req)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusConflict:
		return DuplicateActivationError(req.Email)
	case !success(status):
		return a.unexpected("request trial", status, body, nil)
	}
	return nil
}

// MarkAsActivated tells the authority the key is now bound to platformID.
// A key that is unknown or already activated is not an error.
func (a *HTTPAuthority) MarkAsActivated(ctx context.Context, key, platformID string) error {
	status, body, err := a.do(ctx, "mark as activated", http.MethodPost, a.baseURL+"/activate", map[string]string{
		"key":        key,
		"platformId": platformID,
	})
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusConflict, status == http.StatusNotFound:
		return nil
	case !success(status):
		return a.unexpected("mark as activated", status, body, nil)
	}

	if a.telemetry != nil {
		if err := a.telemetry.Track(ctx, telemetry.Event{
			Name:    telemetry.KeyActivated,
			Payload: map[string]string{"date": time.Now().UTC().Format(time.RFC3339), "key": key},
		}); err != nil {
			zap.L().Debug("failed to track key activation", zap.String("platform_id", platformID), zap.Error(err))
		}
	}
	return nil
}

// GetKey fetches a key. A missing or empty key yields (nil, nil).
func (a *HTTPAuthority) GetKey(ctx context.Context, key string) (*LicenseKey, error) {
	if key == "" {
		return nil, nil
	}

	status, body, err := a.do(ctx, "get key", http.MethodGet, a.baseURL+"/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case !success(status):
		return nil, a.unexpected("get key", status, body, nil)
	}

	var out LicenseKey
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, a.unexpected("get key", status, body, fmt.Errorf("failed to decode license key: %w", err))
	}
	return &out, nil
}

// do sends one request. Failures to reach the authority or read its answer
// come back as *UnexpectedAuthorityError.
func (a *HTTPAuthority) do(ctx context.Context, op, method, endpoint string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, a.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, a.unexpected(op, 0, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, a.unexpected(op, resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}
	return resp.StatusCode, body, nil
}

func (a *HTTPAuthority) unexpected(op string, status int, body []byte, cause error) error {
	err := &UnexpectedAuthorityError{Operation: op, StatusCode: status, Body: string(body), Err: cause}
	zap.L().Error("unexpected response from license authority",
		zap.String("operation", op),
		zap.Int("status", status),
		zap.String("body", err.Body),
		zap.Error(cause),
	)
	return err
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func validationDetails(err error) []errutil.Detail {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]errutil.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, errutil.Detail{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on %s", fe.Tag()),
		})
	}
	return details
}
