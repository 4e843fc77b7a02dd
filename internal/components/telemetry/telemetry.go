package telemetry

import (
	"fmt"
)

// API is what components report through instead of logging directly, so tests
// can assert that a failure was attributed to the right place.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way someone should
	// look at.
	//
	// The `id` names the component and method that broke, as `<struct>.<method>`:
	// a missing title field while submitting is `submitter.enter-title`, not the
	// selector that failed. Put finer detail (the selector, the url, the error)
	// in params. ScopedAPI adds the package, so ids never need a path.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	//
	// An id only says where, whether it broke is already said by calling
	// ReportBroken rather than ReportWarning: `store.query`, not
	// `store.broken-query`. Ids are declared as `report_...` constants next to
	// the code that uses them.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that went wrong but was recovered from,
	// like a reference page that could not be crawled. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress that is only printed with --verbose.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter at this point in time, points
	// are not meant to be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the package name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
