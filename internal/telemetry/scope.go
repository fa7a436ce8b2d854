package telemetry

import "context"

type scopeKey struct{}

type scope struct {
	runID   string
	project string
}

// ContextWithRun marks ctx as belonging to one project of a run. Records
// logged with a *Context method under it are mirrored as if they carried
// run_id and project attributes.
func ContextWithRun(ctx context.Context, runID, project string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope{runID: runID, project: project})
}

func scopeFrom(ctx context.Context) (scope, bool) {
	if ctx == nil {
		return scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(scope)
	return s, ok
}
