// Package jsonld composes the JSON-LD @context loader `parse` uses for
// remote context dereferencing: a local directory loader, a
// plain HTTP loader, or both tried in that order. Implements
// stage.ContextLoader so the stages package never needs to import it.
package jsonld

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrLoaderDisallowed is returned for a remote context IRI when neither a
// local directory nor a URL loader has been configured.
var ErrLoaderDisallowed = errors.New("JsonLdLoaderDisallowed")

// Loader composes a local-directory loader and a URL loader, trying local
// first and falling back to the network. Either field may be nil.
type Loader struct {
	Local *LocalLoader
	URL   *URLLoader
}

// Load implements stage.ContextLoader.
func (l Loader) Load(contextIRI string) ([]byte, error) {
	if l.Local != nil {
		body, err := l.Local.Load(contextIRI)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if l.URL != nil {
		return l.URL.Load(contextIRI)
	}
	return nil, fmt.Errorf("%w: %s", ErrLoaderDisallowed, contextIRI)
}

// LocalLoader maps a context IRI https://ITEM/... to the filesystem path
// Root/ITEM/....
type LocalLoader struct {
	Root string
}

func (l *LocalLoader) Load(contextIRI string) ([]byte, error) {
	rel, err := stripScheme(contextIRI)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(l.Root, filepath.FromSlash(rel))
	return os.ReadFile(path)
}

func stripScheme(iri string) (string, error) {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(iri, prefix) {
			return strings.TrimPrefix(iri, prefix), nil
		}
	}
	return "", fmt.Errorf("context IRI %q has no recognized scheme", iri)
}

// URLLoader fetches a context document over HTTP(S).
type URLLoader struct {
	Client *http.Client
}

func (l *URLLoader) Load(contextIRI string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(contextIRI)
	if err != nil {
		return nil, fmt.Errorf("fetch context %s: %w", contextIRI, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch context %s: HTTP %d", contextIRI, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
