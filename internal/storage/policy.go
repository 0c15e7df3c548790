package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrLocationNotAllowed = errors.New("storage location not allowed")

// LocationPolicy is the allow-list of places the relay may read asset bytes
// from. Anything not listed is refused, so an empty policy refuses everything.
//
// Host entries match the URL hostname exactly, or host:port when the entry
// carries a port. A leading "*." matches any subdomain.
type LocationPolicy struct {
	hosts   []string
	buckets map[string]struct{}
}

func NewLocationPolicy(hosts, buckets []string) *LocationPolicy {
	p := &LocationPolicy{buckets: make(map[string]struct{})}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			p.hosts = append(p.hosts, h)
		}
	}
	for _, b := range buckets {
		b = strings.TrimSpace(b)
		if b != "" {
			p.buckets[b] = struct{}{}
		}
	}
	return p
}

// Check returns ErrLocationNotAllowed (wrapped with the reason) unless
// location points at an allowed host or bucket.
func (p *LocationPolicy) Check(location string) error {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: not an absolute URL", ErrLocationNotAllowed)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL", ErrLocationNotAllowed)
	}

	switch u.Scheme {
	case "http", "https":
		if !p.allowsHost(u) {
			return fmt.Errorf("%w: host %q is not an allowed storage host", ErrLocationNotAllowed, u.Host)
		}
	case "s3":
		if _, ok := p.buckets[u.Host]; !ok {
			return fmt.Errorf("%w: bucket %q is not an allowed storage bucket", ErrLocationNotAllowed, u.Host)
		}
	default:
		return fmt.Errorf("%w: scheme %q", ErrLocationNotAllowed, u.Scheme)
	}
	return nil
}

func (p *LocationPolicy) allowsHost(u *url.URL) bool {
	hostname := strings.ToLower(u.Hostname())
	hostport := strings.ToLower(u.Host)
	for _, entry := range p.hosts {
		switch {
		case strings.HasPrefix(entry, "*."):
			if strings.HasSuffix(hostname, entry[1:]) {
				return true
			}
		case strings.Contains(entry, ":"):
			if hostport == entry {
				return true
			}
		case hostname == entry:
			return true
		}
	}
	return false
}
