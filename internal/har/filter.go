package har

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterOptions narrows which archive entries are included when reporting.
type FilterOptions struct {
	// IncludeHosts specifies which hosts to include (empty = all hosts)
	IncludeHosts []string
	// ExcludeHosts specifies which hosts to exclude
	ExcludeHosts []string
	// IncludeMethods specifies which HTTP methods to include (empty = all methods)
	IncludeMethods []string
	// ExcludeStatic determines whether to exclude static assets (.js, .css, images, fonts)
	ExcludeStatic bool
}

// FilterEntries returns the archive entries matching the filter options.
func FilterEntries(archive *HAR, opts FilterOptions) ([]*Entry, error) {
	if archive == nil || archive.Log == nil {
		return nil, fmt.Errorf("HAR is nil or has nil Log")
	}

	var entries []*Entry
	for _, entry := range archive.Log.Entries {
		if entry == nil || entry.Request == nil {
			continue
		}
		if !matchesFilter(entry, opts) {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// matchesFilter determines whether an entry passes all configured filters.
func matchesFilter(entry *Entry, opts FilterOptions) bool {
	req := entry.Request

	if len(opts.IncludeHosts) > 0 {
		parsedURL, err := url.Parse(req.URL)
		if err != nil {
			return false
		}
		found := false
		for _, host := range opts.IncludeHosts {
			if parsedURL.Host == host {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(opts.ExcludeHosts) > 0 {
		parsedURL, err := url.Parse(req.URL)
		if err != nil {
			return false
		}
		for _, host := range opts.ExcludeHosts {
			if parsedURL.Host == host {
				return false
			}
		}
	}

	if len(opts.IncludeMethods) > 0 {
		found := false
		for _, method := range opts.IncludeMethods {
			if strings.EqualFold(req.Method, method) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if opts.ExcludeStatic && isStaticAsset(req.URL) {
		return false
	}

	return true
}

// isStaticAsset checks whether a URL points to a static asset
// based on file extensions.
func isStaticAsset(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	lowerPath := strings.ToLower(parsedURL.Path)

	staticExtensions := []string{
		".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
		".woff", ".woff2", ".ttf", ".eot", ".ico", ".map",
	}

	for _, ext := range staticExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}

	return false
}
