package db

import (
	"database/sql"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the database/sql driver name registered by this
// package's init, wired with a case-insensitive REGEXP function. Every
// sql.Open in botcore (including test helpers) uses this name instead of
// the bare "sqlite3" driver so tag rules can query `field REGEXP ?`.
const SQLiteDriverName = "sqlite3_botcore"

var regexCache sync.Map // pattern -> *regexp.Regexp

// regexpMatch backs the SQLite "regexp" function invoked by the REGEXP
// operator as regexp(pattern, field). Matching is case-insensitive and
// unanchored, mirroring Python's re.search under re.IGNORECASE.
func regexpMatch(pattern, s string) (bool, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false, err
	}
	regexCache.Store(pattern, re)
	return re.MatchString(s), nil
}

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}
