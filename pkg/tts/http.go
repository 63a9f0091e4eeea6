package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	maxAudioBytes = 50 << 20
	maxErrorBody  = 2048
)

// response is a fully read HTTP response.
type response struct {
	Status int
	Header http.Header
	Body   []byte
}

// newJSONRequest builds a request with an optional JSON body.
func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req and reads the whole body. Non-2xx statuses become *APIError.
func do(client *http.Client, req *http.Request, provider string, op Op) (*response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, unavailable(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, unavailable(provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(provider, op, resp.StatusCode, body)
	}

	return &response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// parseError extracts a readable message from the error shapes used by the
// supported providers.
func parseError(provider string, op Op, status int, body []byte) error {
	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}

	var errResp struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}

	message, code := raw, ""
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case len(errResp.Detail) > 0:
			message, code = nestedMessage(errResp.Detail, message)
		case len(errResp.Error) > 0:
			message, code = nestedMessage(errResp.Error, message)
		case errResp.Message != "":
			message = errResp.Message
		}
		if errResp.Code != "" {
			code = errResp.Code
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return WrapError(provider, &APIError{
		StatusCode: status,
		Message:    message,
		Code:       code,
		Body:       raw,
		Provider:   provider,
		Op:         op,
	})
}

// nestedMessage reads either a bare string or an object with message/status.
func nestedMessage(raw json.RawMessage, fallback string) (string, string) {
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s, ""
	}
	var obj struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Code    any    `json:"code"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		code := obj.Status
		if code == "" && obj.Code != nil {
			code = fmt.Sprint(obj.Code)
		}
		return obj.Message, code
	}
	return fallback, ""
}

func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
