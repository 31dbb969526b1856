package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/agentstation/reposcout/pkg/errors"
)

// Request describes one logical API call. It is rebuilt for every attempt.
type Request struct {
	// Service names the remote API in errors and logs ("airtable", "github").
	Service string
	// Operation names the call in errors and logs ("fetch records").
	Operation string
	Method    string
	URL       string
	Query     url.Values
	Header    http.Header
	// Body is JSON encoded when non-nil.
	Body any
	Auth Authenticator
}

func (r *Request) operation() string {
	switch {
	case r.Service != "" && r.Operation != "":
		return r.Service + " " + r.Operation
	case r.Operation != "":
		return r.Operation
	case r.Service != "":
		return r.Service + " request"
	default:
		return "request"
	}
}

func (r *Request) encodeBody() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", r.operation(), err)
	}
	return data, nil
}

func (r *Request) build(ctx context.Context, body []byte) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, errors.NewFatalError(r.operation(), 0, "invalid URL "+r.URL, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.NewFatalError(r.operation(), 0, "cannot build request", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.Auth.Apply(req)
	return req, nil
}

// DecodeJSON decodes a JSON response into target and closes the body.
func DecodeJSON(resp *http.Response, target any) error {
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}
