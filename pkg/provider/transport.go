package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff"
	corestatus "github.com/dataprov/dataprov/pkg/core/status"
	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries      = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultHTTPTimeout     = 30 * time.Second
)

// Doer issues HTTP requests. *http.Client satisfies it; tests inject stubs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// transport performs provider API calls with bounded retry on idempotent GETs.
// Retries use exponential backoff; authorization failures and missing records
// are permanent and never retried.
type transport struct {
	client     Doer
	maxRetries uint64
	interval   time.Duration
	l          *zap.Logger
}

func newTransport(c clientConfig) *transport {
	client := c.client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &transport{
		client:     client,
		maxRetries: c.maxRetries,
		interval:   c.interval,
		l:          c.l,
	}
}

func (t *transport) retrier(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.interval
	return backoff.WithContext(backoff.WithMaxRetries(b, t.maxRetries), ctx)
}

// getJSON GETs a provider endpoint and decodes the JSON response
func (t *transport) getJSON(ctx context.Context, url, token string, out interface{}) error {
	operation := func() error {
		body, err := t.get(ctx, url, token)
		if err != nil {
			return err
		}
		defer body.Close()
		if derr := json.NewDecoder(body).Decode(out); derr != nil {
			return backoff.Permanent(status.ErrRemoteRecord.WrapMessage("decoding %q: %v", url, derr))
		}
		return nil
	}
	if err := backoff.Retry(operation, t.retrier(ctx)); err != nil {
		return asNetworkErr(err, url)
	}
	return nil
}

// openStream GETs a provider payload for streaming. Only establishing the
// connection is retried, never a partially consumed body.
func (t *transport) openStream(ctx context.Context, url, token string) (io.ReadCloser, error) {
	var body io.ReadCloser
	operation := func() error {
		rdr, err := t.get(ctx, url, token)
		if err != nil {
			return err
		}
		body = rdr
		return nil
	}
	if err := backoff.Retry(operation, t.retrier(ctx)); err != nil {
		return nil, asNetworkErr(err, url)
	}
	return body, nil
}

func (t *transport) get(ctx context.Context, url, token string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	authorize(req, token)

	resp, err := t.client.Do(req)
	if err != nil {
		t.l.Debug("provider GET failed, may retry", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	if perr := checkResponse(resp, url); perr != nil {
		_ = resp.Body.Close()
		return nil, perr
	}
	return resp.Body, nil
}

// postJSON POSTs a JSON document. POST is not idempotent: no retry.
func (t *transport) postJSON(ctx context.Context, url, token string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	authorize(req, token)

	resp, err := t.client.Do(req)
	if err != nil {
		return status.ErrNetwork.WrapMessage("POST %q: %v", url, err)
	}
	defer resp.Body.Close()
	if perr := checkResponse(resp, url); perr != nil {
		return unwrapPermanent(perr)
	}
	if out == nil {
		_, err = io.Copy(ioutil.Discard, resp.Body)
		return err
	}
	if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
		return status.ErrRemoteRecord.WrapMessage("decoding %q: %v", url, derr)
	}
	return nil
}

func authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkResponse maps HTTP statuses to failure modes. Authorization failures
// and missing records are permanent; server-side failures may be retried.
func checkResponse(resp *http.Response, url string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(status.ErrInvalidAccessToken.WrapMessage("%q returned %s", url, resp.Status))
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return backoff.Permanent(corestatus.ErrDatasetNotFound.WrapMessage("%q returned %s", url, resp.Status))
	case resp.StatusCode >= 500:
		return status.ErrNetwork.WrapMessage("%q returned %s", url, resp.Status)
	default:
		return backoff.Permanent(status.ErrRemoteRecord.WrapMessage("%q returned %s", url, resp.Status))
	}
}

// asNetworkErr surfaces exhausted retries as a network failure, preserving
// permanent failures as-is
func asNetworkErr(err error, url string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, status.ErrInvalidAccessToken),
		errors.Is(err, status.ErrRemoteRecord),
		errors.Is(err, status.ErrNetwork),
		errors.Is(err, corestatus.ErrDatasetNotFound):
		return err
	default:
		return status.ErrNetwork.WrapMessage("GET %q: %v", url, err)
	}
}

func unwrapPermanent(err error) error {
	if p, ok := err.(*backoff.PermanentError); ok {
		return p.Err
	}
	return err
}
