// Package catalog loads the list of monitored products.
//
// The catalog is a JSON (or JSON5) array of {id, name, url} records. A sibling
// "<name>.local.<ext>" file, when present, is merged on top: entries with a known id
// override the non-empty fields of the base entry, new ids are appended.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// ErrNotFound is returned when neither the catalog nor its overlay exists.
var ErrNotFound = errors.New("catalog file not found")

// Load reads, merges and validates the catalog at path.
func Load(path string) ([]monitor.Product, error) {
	base, baseFound, err := readFile(path)
	if err != nil {
		return nil, err
	}
	overlayPath := LocalPath(path)
	overlay, overlayFound, err := readFile(overlayPath)
	if err != nil {
		return nil, err
	}
	if !baseFound && !overlayFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	products, err := merge(base, overlay)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", overlayPath, err)
	}
	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

// LocalPath returns the overlay file name for path ("products.json" -> "products.local.json").
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Validate enforces required fields, absolute http(s) URLs and unique ids.
func Validate(products []monitor.Product) error {
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("product %d: id is required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product %q: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("product %q: name is required", p.ID)
		}
		u, err := url.Parse(p.URL)
		if err != nil {
			return fmt.Errorf("product %q: invalid url: %w", p.ID, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("product %q: url must be an absolute http(s) URL", p.ID)
		}
	}
	return nil
}

func readFile(path string) ([]monitor.Product, bool, error) {
	// #nosec G304 -- the catalog path is operator supplied configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, true, nil
	}
	var products []monitor.Product
	if err := json5.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return products, true, nil
}

func merge(base, overlay []monitor.Product) ([]monitor.Product, error) {
	out := make([]monitor.Product, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}
	for _, p := range overlay {
		i, ok := index[p.ID]
		if !ok {
			index[p.ID] = len(out)
			out = append(out, p)
			continue
		}
		if err := mergo.Merge(&out[i], p, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.ID, err)
		}
	}
	return out, nil
}
