// Package mailctx detects which mail thread the user is looking at.
//
// Detection is two-staged: a cheap URL parse produces a navigation hint
// (account index, "might be a thread view"), and only when hinted is the
// rendered page asked for the authoritative thread id. The Broadcaster
// owns the resulting ThreadContext and republishes changes on the event
// bus for any listening panel surface.
package mailctx

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// ThreadContext represents what the user is currently looking at.
// ThreadID is empty when no single thread is open (list views, search).
type ThreadContext struct {
	ThreadID     string
	AccountIndex int
}

// Equal reports field-by-field equality.
func (c ThreadContext) Equal(other ThreadContext) bool {
	return c.ThreadID == other.ThreadID && c.AccountIndex == other.AccountIndex
}

// MarshalJSON emits the wire shape the panel expects: threadId is null,
// not "", when no thread is open.
func (c ThreadContext) MarshalJSON() ([]byte, error) {
	var threadID *string
	if c.ThreadID != "" {
		threadID = &c.ThreadID
	}
	return json.Marshal(struct {
		ThreadID     *string `json:"threadId"`
		AccountIndex int     `json:"accountIndex"`
	}{threadID, c.AccountIndex})
}

// UnmarshalJSON accepts the wire shape produced by MarshalJSON.
func (c *ThreadContext) UnmarshalJSON(data []byte) error {
	var wire struct {
		ThreadID     *string `json:"threadId"`
		AccountIndex int     `json:"accountIndex"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.ThreadID = ""
	if wire.ThreadID != nil {
		c.ThreadID = *wire.ThreadID
	}
	c.AccountIndex = wire.AccountIndex
	return nil
}

// Hint is the coarse navigation signal parsed from a mail URL.
type Hint struct {
	AccountIndex int
	HasThread    bool
}

// minThreadTokenLen separates thread ids from view names in the URL
// fragment: short tokens ("inbox", "starred") are views, long opaque
// tokens are candidate thread ids.
const minThreadTokenLen = 11

// ParseURL maps a mail web-app URL to a navigation hint.
//
// The path segment following "u" is the account index when numeric
// (default 0). The last fragment segment is treated as a thread hint
// only when long enough to be an opaque id; the hint merely gates DOM
// resolution since fragment tokens can be stale or virtual.
//
// ParseURL never fails: malformed URLs yield the default hint.
func ParseURL(raw string) Hint {
	hint := Hint{}

	u, err := url.Parse(raw)
	if err != nil {
		return hint
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg != "u" || i+1 >= len(segments) {
			continue
		}
		if n, err := strconv.Atoi(segments[i+1]); err == nil && n >= 0 {
			hint.AccountIndex = n
		}
		break
	}

	if u.Fragment != "" {
		parts := strings.Split(u.Fragment, "/")
		last := parts[len(parts)-1]
		if len(last) >= minThreadTokenLen {
			hint.HasThread = true
		}
	}

	return hint
}
