package assemble

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestKmerFromStringRoundTrip(t *testing.T) {
	km, ok := KmerFromString("ACGT", 4)
	expect.True(t, ok)
	expect.EQ(t, km.String(4), "ACGT")
}

func TestKmerFromStringRejectsInvalidBase(t *testing.T) {
	_, ok := KmerFromString("ACGN", 4)
	expect.False(t, ok)
}

func TestKmerFromStringRejectsWrongLength(t *testing.T) {
	_, ok := KmerFromString("ACG", 4)
	expect.False(t, ok)
}

func TestIsOneBaseExtension(t *testing.T) {
	prev, _ := KmerFromString("AAAA", 4)
	next, _ := KmerFromString("AAAC", 4)
	expect.True(t, isOneBaseExtension(prev, next, 4))

	other, _ := KmerFromString("CCCC", 4)
	expect.False(t, isOneBaseExtension(prev, other, 4))
}

func TestRenderKmerScratchReuse(t *testing.T) {
	var scratch kmerScratch
	km, _ := KmerFromString("ACGT", 4)
	expect.EQ(t, scratch.renderKmer(km, 4), "ACGT")
	km2, _ := KmerFromString("TTTT", 4)
	expect.EQ(t, scratch.renderKmer(km2, 4), "TTTT")
}
