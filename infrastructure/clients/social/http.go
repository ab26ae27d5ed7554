// Package social holds the HTTP plumbing shared by the platform clients.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brandhub/domain/dto"

	"github.com/google/go-querystring/query"
)

const maxErrorBody = 512

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform string
	Status   int
	Code     int
	Message  string
	// Auth is set when the platform refused the credential.
	Auth bool
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s API error (HTTP %d, code %d): %s", e.Platform, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Platform, e.Status, e.Message)
}

// ErrorDecoder turns a failed response body into an APIError.
type ErrorDecoder func(status int, body []byte) *APIError

// Requester sends requests for one platform.
type Requester struct {
	Platform   string
	HTTPClient *http.Client
	Decode     ErrorDecoder
	// Header is applied to every request (Authorization, version headers).
	Header http.Header
}

// NewHTTPClient returns a client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (r *Requester) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// JSON sends body encoded as JSON and decodes a 2xx answer into out.
func (r *Requester) JSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", r.Platform, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.Do(req, out)
}

// Form sends a struct tagged with `url:"..."` (or url.Values) as an
// urlencoded body.
func (r *Requester) Form(ctx context.Context, method, endpoint string, form, out interface{}) error {
	values, err := EncodeForm(form)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.Do(req, out)
}

// Get issues a GET with params appended to the query string.
func (r *Requester) Get(ctx context.Context, endpoint string, params, out interface{}) error {
	if params != nil {
		values, err := EncodeForm(params)
		if err != nil {
			return err
		}
		if q := values.Encode(); q != "" {
			sep := "?"
			if strings.Contains(endpoint, "?") {
				sep = "&"
			}
			endpoint += sep + q
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return r.Do(req, out)
}

// Do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (r *Requester) Do(req *http.Request, out interface{}) error {
	_, err := r.DoHeader(req, out)
	return err
}

// DoHeader is Do that also returns the response headers of a 2xx answer.
func (r *Requester) DoHeader(req *http.Request, out interface{}) (http.Header, error) {
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", r.Platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", r.Platform, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, r.decodeError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", r.Platform, err)
	}
	return resp.Header, nil
}

func (r *Requester) decodeError(status int, body []byte) error {
	var apiErr *APIError
	if r.Decode != nil {
		apiErr = r.Decode(status, body)
	}
	if apiErr == nil {
		apiErr = &APIError{Message: Snippet(body)}
	}
	apiErr.Platform = r.Platform
	apiErr.Status = status
	if status == http.StatusUnauthorized {
		apiErr.Auth = true
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// EncodeForm accepts url.Values, map[string]string or a struct with url tags.
func EncodeForm(form interface{}) (url.Values, error) {
	switch v := form.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return v, nil
	case map[string]string:
		out := url.Values{}
		for k, val := range v {
			out.Set(k, val)
		}
		return out, nil
	}
	values, err := query.Values(form)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	return values, nil
}

// Snippet trims a response body for use in an error message.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// Download fetches a media URL and returns its bytes and content type.
func Download(ctx context.Context, client *http.Client, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid media url %q: %w", mediaURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media %s: HTTP %d", mediaURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media %s: %w", mediaURL, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return data, ct, nil
}

// FailureFrom converts an error into a failed publish result, flagging
// credential rejections.
func FailureFrom(err error) dto.PublishResult {
	res := dto.Failure(err.Error())
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		res.TokenRejected = apiErr.Auth
	}
	return res
}
