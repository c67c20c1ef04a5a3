// Package connstring normalizes raw database connection URIs.
//
// Passwords frequently contain characters that are reserved in URIs
// (most commonly '@' and ':'), which defeats naive authority parsing.
// Normalize repairs such strings by re-splitting the authority at the
// last '@' and percent-encoding the credentials before reconstruction.
package connstring

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Dialect identifies a database family with a dedicated adapter.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLServer Dialect = "sqlserver"
	DialectSQLite    Dialect = "sqlite"
	DialectUnknown   Dialect = ""
)

// schemeAliases maps URI scheme spellings to their canonical dialect scheme.
var schemeAliases = map[string]string{
	"postgres":   "postgres",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"mariadb":    "mysql",
	"sqlserver":  "sqlserver",
	"mssql":      "sqlserver",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"file":       "sqlite",
}

// Descriptor is a parsed connection string. Password holds the decoded
// (un-escaped) value; String re-encodes it on reconstruction.
type Descriptor struct {
	Scheme   string
	Username string
	Password string
	Host     string
	Port     string
	Path     string
	RawQuery string
}

// Parse splits a connection URI into a Descriptor.
//
// A standard URI parse is attempted first. When that fails, or when it
// yields an implausible host (one still containing '@', meaning the
// password itself contained '@' and defeated the split), the authority
// is re-split manually: everything before the final '@' is credentials,
// everything after is host:port. Credentials split at the first ':',
// host:port at the last ':' with a no-port fallback when the trailing
// segment is not numeric.
func Parse(raw string) (*Descriptor, error) {
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && !strings.Contains(u.Host, "@") {
		d := &Descriptor{
			Scheme:   strings.ToLower(u.Scheme),
			Host:     u.Hostname(),
			Port:     u.Port(),
			Path:     u.Path,
			RawQuery: u.RawQuery,
		}
		if u.User != nil {
			d.Username = u.User.Username()
			d.Password, _ = u.User.Password()
		}
		return d, nil
	}

	return parseAuthority(raw)
}

// parseAuthority is the manual fallback for URIs url.Parse rejects,
// typically because the password contains reserved characters.
func parseAuthority(raw string) (*Descriptor, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("connection string %q has no scheme", redact(raw))
	}

	d := &Descriptor{Scheme: strings.ToLower(scheme)}

	// Credentials are everything before the final '@'. Splitting there
	// first (rather than carving out the authority at the first '/')
	// keeps passwords containing '/', '?' or '@' intact.
	remainder := rest
	if i := strings.LastIndexByte(rest, '@'); i >= 0 {
		creds := rest[:i]
		remainder = rest[i+1:]

		user, pass, hasPass := strings.Cut(creds, ":")
		d.Username = decodeComponent(user)
		if hasPass {
			d.Password = decodeComponent(pass)
		}
	}

	hostPort := remainder
	if i := strings.IndexAny(remainder, "/?"); i >= 0 {
		hostPort = remainder[:i]
		tail := remainder[i:]
		if q := strings.IndexByte(tail, '?'); q >= 0 {
			d.Path = tail[:q]
			d.RawQuery = tail[q+1:]
		} else {
			d.Path = tail
		}
	}

	d.Host = hostPort
	if i := strings.LastIndexByte(hostPort, ':'); i >= 0 {
		if _, err := strconv.Atoi(hostPort[i+1:]); err == nil {
			d.Host = hostPort[:i]
			d.Port = hostPort[i+1:]
		}
	}

	return d, nil
}

// redact hides everything after the scheme so raw credentials never end
// up in error messages.
func redact(raw string) string {
	if scheme, _, ok := strings.Cut(raw, "://"); ok {
		return scheme + "://..."
	}
	if len(raw) > 16 {
		return raw[:16] + "..."
	}
	return raw
}

// decodeComponent reverses percent-encoding, passing malformed input through.
func decodeComponent(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// String reconstructs a driver-compatible connection URI. Credentials are
// percent-encoded so that reserved characters survive a round-trip.
func (d *Descriptor) String() string {
	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")
	if d.Username != "" || d.Password != "" {
		if d.Password != "" {
			b.WriteString(url.UserPassword(d.Username, d.Password).String())
		} else {
			b.WriteString(url.User(d.Username).String())
		}
		b.WriteByte('@')
	}
	b.WriteString(d.Host)
	if d.Port != "" {
		b.WriteByte(':')
		b.WriteString(d.Port)
	}
	b.WriteString(d.Path)
	if d.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(d.RawQuery)
	}
	return b.String()
}

// Database returns the database name from the URI path, if any.
func (d *Descriptor) Database() string {
	return strings.TrimPrefix(d.Path, "/")
}

// Dialect classifies the descriptor against the closed set of supported
// database families.
func (d *Descriptor) Dialect() Dialect {
	if canonical, ok := schemeAliases[d.Scheme]; ok {
		return Dialect(canonical)
	}
	return DialectUnknown
}

// Normalize returns a canonical, driver-compatible form of raw: scheme
// aliases are folded to their canonical spelling and credentials are
// percent-encoded. Normalize never fails; when raw cannot be parsed at
// all it degrades to a best-effort scheme substitution, leaving the
// real error to surface from the downstream connection attempt.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	d, err := Parse(raw)
	if err != nil {
		return substituteScheme(raw)
	}
	if canonical, ok := schemeAliases[d.Scheme]; ok {
		d.Scheme = canonical
	}
	return d.String()
}

// DialectFor classifies a raw connection string without full normalization.
func DialectFor(raw string) Dialect {
	scheme, _, ok := strings.Cut(strings.TrimSpace(raw), "://")
	if !ok {
		return DialectUnknown
	}
	if canonical, ok := schemeAliases[strings.ToLower(scheme)]; ok {
		return Dialect(canonical)
	}
	return DialectUnknown
}

// substituteScheme is the pass-through fallback: rewrite known scheme
// aliases textually and return everything else unchanged.
func substituteScheme(raw string) string {
	for alias, canonical := range schemeAliases {
		if alias == canonical {
			continue
		}
		prefix := alias + "://"
		if strings.HasPrefix(strings.ToLower(raw), prefix) {
			return canonical + "://" + raw[len(prefix):]
		}
	}
	return raw
}
