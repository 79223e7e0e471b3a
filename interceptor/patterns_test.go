package interceptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test exact match":           testExactMatch,
		"test multi level wildcard":  testMultiLevelWildcard,
		"test single level wildcard": testSingleLevelWildcard,
		"test segment wildcard":      testSegmentWildcard,
	} {
		t.Run(scenario, fn)
	}
}

func testExactMatch(t *testing.T) {
	require.True(t, MatchTopic("routine/started", "routine/started"))
	require.False(t, MatchTopic("routine/started", "routine/stopped"))
	require.False(t, MatchTopic("routine/started", "routine/started/extra"))
}

func testMultiLevelWildcard(t *testing.T) {
	require.True(t, MatchTopic("#", "anything/at/all"))
	require.True(t, MatchTopic("#", ""))
	require.True(t, MatchTopic("swarm/#", "swarm/resource/allocated"))
	require.True(t, MatchTopic("swarm/#", "swarm"))
	require.False(t, MatchTopic("swarm/#", "routine/started"))
}

func testSingleLevelWildcard(t *testing.T) {
	require.True(t, MatchTopic("a/+/c", "a/b/c"))
	require.False(t, MatchTopic("a/+/c", "a/b/b2/c"))
	require.False(t, MatchTopic("a/+/c", "a//c"))
	require.True(t, MatchTopic("+/started", "routine/started"))
}

func testSegmentWildcard(t *testing.T) {
	require.True(t, MatchTopic("a/*", "a/x"))
	require.True(t, MatchTopic("a/*", "a/"))
	require.False(t, MatchTopic("a/*", "a/x/y"))
	require.True(t, MatchTopic("routine/st*", "routine/started"))
	require.False(t, MatchTopic("routine/st*", "routine/paused"))
}
