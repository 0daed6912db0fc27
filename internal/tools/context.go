package tools

import (
	"time"

	"github.com/unspiral/unspiral/internal/store"
)

// Context carries the capabilities a tool needs: the data store and the
// user scope. The orchestration loop passes the same Context to every
// tool invocation within a turn.
type Context struct {
	Store  store.Store
	UserID string

	// Now supplies the clock. Nil means time.Now. Tools read it once on
	// entry so a single invocation sees one consistent "now".
	Now func() time.Time
}

func (c Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
