package sqlite

import (
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/rediwo/redi-ado/connstr"
	"github.com/rediwo/redi-ado/registry"
)

func init() {
	// Pure Go; hands INTEGER timestamp storage through untouched.
	registry.Register(registry.Engine{
		Name:       connstr.EngineModernc,
		DriverName:     "sqlite",
		DSN:            moderncDSN,
		FoldsDeclTypes: true,
	})

	registry.Register(registry.Engine{
		Name:              connstr.EngineCgo,
		DriverName:        "sqlite3",
		DSN:               cgoDSN,
		IntegerTimestamps: true,
	})
}

// moderncDSN passes settings as _pragma parameters, run on each new handle
func moderncDSN(opts connstr.Options) string {
	q := url.Values{}
	if opts.DefaultTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.DefaultTimeout.Milliseconds()))
	}
	if opts.ForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	return withQuery(opts.DataSource, q)
}

// cgoDSN uses go-sqlite3's own parameters. Its busy timeout defaults to 5s,
// so it is always set explicitly.
func cgoDSN(opts connstr.Options) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(opts.DefaultTimeout.Milliseconds()))
	if opts.ForeignKeys {
		q.Set("_foreign_keys", "1")
	}
	return withQuery(opts.DataSource, q)
}

func withQuery(dataSource string, q url.Values) string {
	if len(q) == 0 {
		return dataSource
	}
	return dataSource + "?" + q.Encode()
}
