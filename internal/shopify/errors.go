package shopify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
)

// RemoteAPIError reports a failed platform call. Status is zero when the
// request never produced a response.
type RemoteAPIError struct {
	Op      string
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *RemoteAPIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("shopify %s: %s %s: %s", e.Op, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("shopify %s: %s %s: %d: %s", e.Op, e.Method, e.Path, e.Status, e.Message)
}

// Unwrap exposes the transport error, if any.
func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// Is matches the httpx sentinels so handlers can map the error.
func (e *RemoteAPIError) Is(target error) bool {
	switch target {
	case httpx.ErrNotFound:
		return e.Status == http.StatusNotFound
	case httpx.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case httpx.ErrUpstream:
		return true
	}
	return false
}

// AuthError reports a failed credential exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "shopify: credential exchange failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() []error {
	return []error{e.Err, httpx.ErrUnauthorized}
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound)
}

// errorMessage extracts the platform's "errors" payload, which may be a
// string, a list, or a map of field to messages.
func errorMessage(status int, body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := flattenErrors(envelope.Errors); msg != "" {
			return msg
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > 256 {
			text = text[:256]
		}
		return text
	}
	return http.StatusText(status)
}

func flattenErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+flattenErrors(fields[k]))
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}
