// internal/mailctx/resolver.go
package mailctx

import (
	"context"
	"fmt"
	"strings"
)

// ThreadResolver obtains the authoritative thread id for a tab by
// inspecting the rendered page. An empty id with nil error means the
// tab is not showing a single thread (list view, still rendering);
// that is a valid result, not a fault.
type ThreadResolver interface {
	ThreadID(ctx context.Context, tabID int) (string, error)
}

// PageScripter executes a read-only expression inside a tab's page
// context and returns its string result. Implemented over the browser
// bridge; faked in tests.
type PageScripter interface {
	Eval(ctx context.Context, tabID int, expression string) (string, error)
}

// threadQuery reads the thread-id data attribute from the main content
// region only, so sidebar and preview panes never match.
const threadQuery = `(() => {
	const el = document.querySelector('div[role="main"] [data-legacy-thread-id]');
	return el ? el.getAttribute('data-legacy-thread-id') : '';
})()`

// ScriptResolver resolves thread ids by injecting a read-only script.
type ScriptResolver struct {
	scripter PageScripter
}

// NewScriptResolver creates a resolver over the given scripter.
func NewScriptResolver(scripter PageScripter) (*ScriptResolver, error) {
	if scripter == nil {
		return nil, fmt.Errorf("scripter is required")
	}
	return &ScriptResolver{scripter: scripter}, nil
}

// ThreadID returns the thread id attribute value, or "" when the
// element is not present yet.
func (r *ScriptResolver) ThreadID(ctx context.Context, tabID int) (string, error) {
	result, err := r.scripter.Eval(ctx, tabID, threadQuery)
	if err != nil {
		return "", fmt.Errorf("eval thread query in tab %d: %w", tabID, err)
	}
	return strings.TrimSpace(result), nil
}
