// Package source synchronizes configuration trees into local storage and
// exposes them as globbable file sets.
package source

import (
	"fmt"
	"net/url"
)

// Kind tags the origin of a configuration source.
type Kind string

const (
	KindEnvironment Kind = "environment"
	KindRemoteTree  Kind = "remote-tree"
)

// Descriptor identifies one configuration source. For KindRemoteTree,
// URL and Branch locate the repository and Path is the local directory it
// is materialized into. User and Password are optional.
type Descriptor struct {
	Kind     Kind
	URL      string
	Branch   string
	User     string
	Password string
	Path     string
}

// HasCredentials reports whether either credential field is set.
func (d Descriptor) HasCredentials() bool {
	return d.User != "" || d.Password != ""
}

// String renders the descriptor for logs with secrets removed.
func (d Descriptor) String() string {
	password := ""
	if d.Password != "" {
		password = "xxxxx"
	}
	return fmt.Sprintf("%s{url=%s branch=%s path=%s user=%s password=%s}",
		d.Kind, redactURL(d.URL), d.Branch, d.Path, d.User, password)
}

// RedactedURL returns URL with any embedded password masked.
func (d Descriptor) RedactedURL() string {
	return redactURL(d.URL)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
