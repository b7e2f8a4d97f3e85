package cacheproxy

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fieldtally/internal/outbox"
)

// Class is the caching strategy assigned to a request.
type Class int

const (
	// ClassPassthrough forwards the request untouched, no caching.
	ClassPassthrough Class = iota
	// ClassShell is cache-first: serve from cache when present, otherwise
	// fetch and cache for next time.
	ClassShell
	// ClassAPIRead is network-first: overwrite the cache on success, fall
	// back to the cached copy on transport failure.
	ClassAPIRead
	// ClassAPIMutation never touches the cache; offline durability of writes
	// belongs to the dispatcher and outbox, not here.
	ClassAPIMutation
)

func (c Class) String() string {
	switch c {
	case ClassShell:
		return "shell"
	case ClassAPIRead:
		return "api-read"
	case ClassAPIMutation:
		return "api-mutation"
	default:
		return "passthrough"
	}
}

//go:embed routes.yaml
var defaultRoutesYAML []byte

type routesFile struct {
	Shell []string `yaml:"shell"`
	API   []string `yaml:"api"`
}

// RouteTable classifies same-origin requests into caching strategies.
type RouteTable struct {
	shell []string
	api   []string
}

// LoadRoutes parses the route table from the given YAML file, or the embedded
// default table when path is empty.
func LoadRoutes(path string) (*RouteTable, error) {
	data := defaultRoutesYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read routes file: %w", err)
		}
		data = fileData
	}

	var parsed routesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	if len(parsed.API) == 0 {
		return nil, fmt.Errorf("routes: at least one api prefix is required")
	}

	return &RouteTable{
		shell: normalizePatterns(parsed.Shell),
		api:   normalizePatterns(parsed.API),
	}, nil
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}

// Classify maps a same-origin request to its caching strategy. Patterns
// ending in "/" match as prefixes; all others match exactly.
func (t *RouteTable) Classify(method, path string) Class {
	if matchAny(t.api, path) {
		if method == http.MethodGet || method == http.MethodHead {
			return ClassAPIRead
		}
		if outbox.IsMutating(method) {
			return ClassAPIMutation
		}
		return ClassPassthrough
	}
	if method == http.MethodGet && matchAny(t.shell, path) {
		return ClassShell
	}
	return ClassPassthrough
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") && p != "/" {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
