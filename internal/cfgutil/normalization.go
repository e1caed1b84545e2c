// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"net"
	"net/url"
)

// NormalizeNodeURL returns the normalized form of a node URL.  A missing
// scheme defaults to http and a missing port to defaultPort.  An error is
// returned if the host is not valid.
func NormalizeNodeURL(raw string, defaultPort string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("http://" + raw)
		if err != nil {
			return "", err
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported node URL scheme %q", u.Scheme)
	}

	// If the first SplitHostPort errors because of a missing port and not
	// for an invalid host, add the port.  If the second SplitHostPort
	// fails, then a port is not missing and the original error should be
	// returned.
	if _, _, origErr := net.SplitHostPort(u.Host); origErr != nil {
		host := net.JoinHostPort(u.Hostname(), defaultPort)
		if _, _, err := net.SplitHostPort(host); err != nil {
			return "", origErr
		}
		u.Host = host
	}

	return u.Scheme + "://" + u.Host, nil
}

// NormalizeNodeURLs returns a new slice with all the passed node URLs
// normalized with the given default port, and all duplicates removed.
func NormalizeNodeURLs(urls []string, defaultPort string) ([]string, error) {
	var (
		normalized = make([]string, 0, len(urls))
		seenSet    = make(map[string]struct{})
	)

	for _, raw := range urls {
		normalizedURL, err := NormalizeNodeURL(raw, defaultPort)
		if err != nil {
			return nil, err
		}
		_, seen := seenSet[normalizedURL]
		if !seen {
			normalized = append(normalized, normalizedURL)
			seenSet[normalizedURL] = struct{}{}
		}
	}

	return normalized, nil
}
