package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theapemachine/recall-go/pkg/memclient"
)

func TestDeduperRejectsNearDuplicates(t *testing.T) {
	deduper := NewDeduper(0.8, 20)

	first := memclient.Memory{
		ContentHash: "a",
		Content:     "Decided to use PostgreSQL for the primary datastore going forward",
	}
	nearCopy := memclient.Memory{
		ContentHash: "b",
		Content:     "decided to use postgresql for the primary datastore going forward!",
	}
	different := memclient.Memory{
		ContentHash: "c",
		Content:     "Session covered React component refactoring and hook extraction",
	}

	assert.True(t, deduper.Admit(&first))
	assert.False(t, deduper.Admit(&nearCopy))
	assert.True(t, deduper.Admit(&different))
}

func TestDeduperHashIdentity(t *testing.T) {
	deduper := NewDeduper(0.8, 20)

	m := memclient.Memory{ContentHash: "same", Content: "anything at all really goes here"}
	again := memclient.Memory{ContentHash: "same", Content: "totally different words this time"}

	assert.True(t, deduper.Admit(&m))
	assert.False(t, deduper.Admit(&again))
}

func TestDeduperShortContentFloor(t *testing.T) {
	deduper := NewDeduper(0.8, 20)

	a := memclient.Memory{ContentHash: "a", Content: "fixed the bug"}
	b := memclient.Memory{ContentHash: "b", Content: "fixed the bug"}

	// Below the length floor, identical text is not evidence of duplication.
	assert.True(t, deduper.Admit(&a))
	assert.True(t, deduper.Admit(&b))
}

func TestDeduperClustersExempt(t *testing.T) {
	deduper := NewDeduper(0.8, 20)

	plain := memclient.Memory{
		ContentHash: "a",
		Content:     "Summary of authentication work done across several sessions",
	}
	cluster := memclient.Memory{
		ContentHash: "b",
		Content:     "Summary of authentication work done across several sessions",
		MemoryType:  memclient.MemoryTypeCompressedCluster,
	}

	assert.True(t, deduper.Admit(&plain))
	assert.True(t, deduper.Admit(&cluster))
}

func TestJaccard(t *testing.T) {
	a := wordSet("alpha beta gamma")
	b := wordSet("alpha beta delta")

	assert.InDelta(t, 0.5, jaccard(a, b), 1e-9)
	assert.Equal(t, 0.0, jaccard(wordSet(""), wordSet("")))
}
