package manifest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// maxManifestBytes caps a remote manifest; schemas are small documents.
const maxManifestBytes = 1 << 20

// LoaderOption customises loader construction.
type LoaderOption func(*Loader)

// WithFileSystem supplies the fs.FS backing SourceKindFS loads.
func WithFileSystem(filesystem fs.FS) LoaderOption {
	return func(l *Loader) { l.fs = filesystem }
}

// WithHTTPClient enables SourceKindURL loads through client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) { l.http = client }
}

// WithRequestTimeout bounds each URL load.
func WithRequestTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = timeout }
}

// Loader fetches manifest documents by delegating to file, fs.FS, or HTTP
// strategies. URL loads stay disabled until a client is configured.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// NewLoader constructs a Loader from options.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{timeout: 30 * time.Second}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// Load fetches a document from the provided source and wraps it in a
// Document.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	if src.Kind() == "" {
		return Document{}, errors.New("manifest loader: source is required")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case SourceKindURL:
		if l.http == nil {
			return Document{}, errors.New("manifest loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		err = errors.New("manifest loader: unsupported source kind")
	}
	if err != nil {
		return Document{}, err
	}

	return NewDocument(src, data)
}

// LoadManifest is the common fetch-then-parse path.
func (l *Loader) LoadManifest(ctx context.Context, src Source) (Manifest, error) {
	doc, err := l.Load(ctx, src)
	if err != nil {
		return Manifest{}, err
	}
	return Parse(doc)
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("manifest loader: file path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func loadFromFS(ctx context.Context, filesystem fs.FS, name string) ([]byte, error) {
	if filesystem == nil {
		return nil, errors.New("manifest loader: filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("manifest loader: fs path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return fs.ReadFile(filesystem, name)
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	if url == "" {
		return nil, errors.New("manifest loader: url is required")
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("manifest loader: unexpected status " + resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxManifestBytes {
		return nil, errors.New("manifest loader: document exceeds size limit")
	}
	return data, nil
}
