package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/waypoint-labs/waypoint/config"
)

func testDoc(processId string) []byte {
	return []byte(fmt.Sprintf(`
<definitions>
  <process id="%s" isExecutable="true">
    <startEvent id="start_1"/>
  </process>
</definitions>`, processId))
}

func TestDefinitionCache(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, cache *DefinitionCache,
	){
		"test identical documents share entry": testSharedEntry,
		"test parse failure caches nothing":    testParseFailureNotCached,
		"test entry count bound":               testEntryCountBound,
	} {
		t.Run(scenario, func(t *testing.T) {
			cache, err := NewDefinitionCache(config.DefinitionCacheConfig{
				MaxEntries: 4,
				MaxBytes:   1 << 20,
			})
			require.NoError(t, err)

			fn(t, cache)
		})
	}
}

func testSharedEntry(t *testing.T, cache *DefinitionCache) {
	first, err := cache.GetDefinitions(testDoc("proc_a"))
	require.NoError(t, err)
	second, err := cache.GetDefinitions(testDoc("proc_a"))
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, cache.Len())
}

func testParseFailureNotCached(t *testing.T, cache *DefinitionCache) {
	_, err := cache.GetDefinitions([]byte("garbage <"))
	require.Error(t, err)
	require.Equal(t, 0, cache.Len())
}

func testEntryCountBound(t *testing.T, cache *DefinitionCache) {
	for i := 0; i < 10; i++ {
		_, err := cache.GetDefinitions(testDoc(fmt.Sprintf("proc_%d", i)))
		require.NoError(t, err)
	}
	require.Equal(t, 4, cache.Len())
}
