package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEchoMatches(t *testing.T) {
	table := []struct {
		sent     string
		rendered string
		expected bool
	}{
		{sent: "Hello", rendered: "Hello", expected: true},
		{sent: "**Hello** world", rendered: "Hello world", expected: true},
		{sent: "Hello world", rendered: "**Hello**   world", expected: true},
		{sent: "  Hello\n\tworld ", rendered: "Hello world", expected: true},
		{sent: "**앱테크** (추천인: partybucket)", rendered: "앱테크 (추천인: partybucket)", expected: true},
		{sent: "Hello", rendered: "Hell", expected: false},
		{sent: "Hello", rendered: "", expected: false},
		{sent: "Hello world", rendered: "Helloworld", expected: false},
	}

	for _, row := range table {
		require.Equal(t, row.expected, EchoMatches(row.sent, row.rendered), "%q vs %q", row.sent, row.rendered)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "안녕", Truncate("안녕하세요", 2))
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "", Truncate("abc", 0))
}
