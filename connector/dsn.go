package connector

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DSNBuilder assembles a connection URL piece by piece. A zero port,
// empty credentials, and empty parameter values are omitted from the
// result.
type DSNBuilder struct {
	scheme   string
	username string
	password string
	host     string
	port     int
	database string
	params   map[string]string
}

// NewDSNBuilder creates a DSN builder for the given scheme.
func NewDSNBuilder(scheme string) *DSNBuilder {
	return &DSNBuilder{
		scheme: scheme,
		params: make(map[string]string),
	}
}

// Auth sets username and password.
func (b *DSNBuilder) Auth(username, password string) *DSNBuilder {
	b.username = username
	b.password = password
	return b
}

// Host sets the host and port.
func (b *DSNBuilder) Host(host string, port int) *DSNBuilder {
	b.host = host
	b.port = port
	return b
}

// Database sets the database name.
func (b *DSNBuilder) Database(name string) *DSNBuilder {
	b.database = name
	return b
}

// Param adds a single parameter; empty values are dropped.
func (b *DSNBuilder) Param(key, value string) *DSNBuilder {
	if value != "" {
		b.params[key] = value
	}
	return b
}

// Params adds multiple parameters; empty values are dropped.
func (b *DSNBuilder) Params(params map[string]string) *DSNBuilder {
	for k, v := range params {
		b.Param(k, v)
	}
	return b
}

// Build assembles the DSN. Parameters are rendered in sorted key order,
// so the same configuration always yields the same string.
func (b *DSNBuilder) Build() string {
	var dsn strings.Builder
	dsn.WriteString(b.scheme)
	dsn.WriteString("://")
	b.writeUserInfo(&dsn)
	b.writeAddress(&dsn)
	b.writeQuery(&dsn)
	return dsn.String()
}

func (b *DSNBuilder) writeUserInfo(dsn *strings.Builder) {
	if b.username == "" {
		return
	}
	dsn.WriteString(url.QueryEscape(b.username))
	if b.password != "" {
		dsn.WriteByte(':')
		dsn.WriteString(url.QueryEscape(b.password))
	}
	dsn.WriteByte('@')
}

func (b *DSNBuilder) writeAddress(dsn *strings.Builder) {
	dsn.WriteString(b.host)
	if b.port > 0 {
		dsn.WriteByte(':')
		dsn.WriteString(strconv.Itoa(b.port))
	}
	if b.database != "" {
		dsn.WriteByte('/')
		dsn.WriteString(url.PathEscape(b.database))
	}
}

func (b *DSNBuilder) writeQuery(dsn *strings.Builder) {
	if len(b.params) == 0 {
		return
	}
	keys := make([]string, 0, len(b.params))
	for k := range b.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			dsn.WriteByte('?')
		} else {
			dsn.WriteByte('&')
		}
		dsn.WriteString(url.QueryEscape(k))
		dsn.WriteByte('=')
		dsn.WriteString(url.QueryEscape(b.params[k]))
	}
}
