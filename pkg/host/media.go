package host

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

// maxMediaBytes caps a fetched asset; anything larger will not embed sanely
// inside a protocol message.
const maxMediaBytes = 8 << 20

// MediaResolver turns a temporary media reference (typically a short-lived
// upload URL) into a portable data URL the widget can hold indefinitely.
type MediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// HTTPMediaResolver fetches the reference over HTTP and inlines the bytes as
// a base64 data URL.
type HTTPMediaResolver struct {
	client *http.Client
}

// NewHTTPMediaResolver builds a resolver around client, defaulting to a
// 30-second timeout when client is nil.
func NewHTTPMediaResolver(client *http.Client) *HTTPMediaResolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPMediaResolver{client: client}
}

func (r *HTTPMediaResolver) Resolve(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("host: media request %q: %w", ref, err)
	}
	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("host: media fetch %q: %w", ref, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("host: media fetch %q: status %d", ref, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxMediaBytes+1))
	if err != nil {
		return "", fmt.Errorf("host: media read %q: %w", ref, err)
	}
	if len(body) > maxMediaBytes {
		return "", fmt.Errorf("host: media %q exceeds %d bytes", ref, maxMediaBytes)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

// serializeValues walks the tree alongside the schema and resolves every
// image leaf still holding a transient reference. Values already in data-URL
// form, and every non-image value, pass through untouched.
func serializeValues(ctx context.Context, schema param.Schema, values map[string]any, resolver MediaResolver) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for key, value := range values {
		field, known := schema.Get(key)
		if !known {
			out[key] = value
			continue
		}
		switch {
		case field.IsFolder() && field.Fields != nil:
			nested, ok := value.(map[string]any)
			if !ok {
				out[key] = value
				continue
			}
			serialized, err := serializeValues(ctx, *field.Fields, nested, resolver)
			if err != nil {
				return nil, err
			}
			out[key] = serialized
		case field.Type == param.KindImage && resolver != nil:
			ref, ok := value.(string)
			if !ok || ref == "" || strings.HasPrefix(ref, "data:") {
				out[key] = value
				continue
			}
			resolved, err := resolver.Resolve(ctx, ref)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		default:
			out[key] = value
		}
	}
	return out, nil
}
