package assemble

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestStatsMerge(t *testing.T) {
	a := Stats{
		ActiveNodes:       3,
		MaxKmerBucketSize: 2,
		ConsumedInput:     10,
		FrontierPosition:  100,
		ContigsCalled:     1,
	}
	b := Stats{
		ActiveNodes:             1,
		MaxKmerBucketSize:       5,
		ConsumedInput:           4,
		FrontierPosition:        50,
		ContigsCalled:           2,
		MisassembliesSuppressed: 1,
	}
	m := a.Merge(b)
	expect.EQ(t, m.ActiveNodes, 4)
	expect.EQ(t, m.MaxKmerBucketSize, 5)
	expect.EQ(t, m.ConsumedInput, 14)
	expect.EQ(t, m.FrontierPosition, Pos(100))
	expect.EQ(t, m.ContigsCalled, 3)
	expect.EQ(t, m.MisassembliesSuppressed, 1)
}
