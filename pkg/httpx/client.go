package httpx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// Client is a thin JSON wrapper over fasthttp. Every failure it returns is
// either a *TransportError (the request never reached the server) or an
// *APIError (the server answered, unhappily), so callers can branch on the
// class with errors.As instead of matching message substrings.
type Client struct {
	inner   *fasthttp.Client
	timeout time.Duration
	headers map[string]string
}

// NewClient builds a Client with the given per-request timeout. Extra
// headers, if any, are attached to every request (e.g. a provider api key).
func NewClient(timeout time.Duration, headers map[string]string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		inner:   &fasthttp.Client{},
		timeout: timeout,
		headers: headers,
	}
}

// DoJSON performs a request with an optional JSON body and decodes the JSON
// response into out when out is non-nil. A success status with an
// undecodable body yields an *APIError carrying that status.
func (c *Client) DoJSON(ctx context.Context, method, url, bearer string, in, out interface{}) error {
	status, body, err := c.do(ctx, method, url, bearer, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Status: status, Body: body}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url, bearer string, in interface{}) (int, []byte, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return 0, nil, &TransportError{URL: url, Err: err}
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
	}

	if err := c.inner.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return status, body, &APIError{Status: status, Body: body}
	}
	return status, body, nil
}
