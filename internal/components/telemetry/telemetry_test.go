package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &RecordingAPI{}
	scoped := NewScopedAPI("workflow", NewScopedAPI("inner", rec))

	err := errors.New("no title field")
	scoped.ReportBroken("submitter.enter-title", err)
	scoped.ReportWarning("submitter.snapshot")
	scoped.ReportDebug("published", "https://blog.naver.com/tester/1")
	scoped.ReportCount("outcomes.failed", 2)

	require.Equal(t, []Report{
		{Kind: "broken", ID: "inner: workflow: submitter.enter-title", Params: []any{err}},
	}, rec.Reports("broken"))
	require.Equal(t, "inner: workflow: submitter.snapshot", rec.Reports("warning")[0].ID)
	require.Equal(t, "inner: workflow: published", rec.Reports("debug")[0].ID)
	require.Equal(t, []any{int64(2)}, rec.Reports("count")[0].Params)
	require.Empty(t, rec.Reports("other"))
}
