package assemble

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/minio/highwayhash"
)

// Viz implements the optional, disabled-by-default diagnostic side-outputs:
// a per-called-contig memoization-state dump, the assembled subgraph in a
// graph-description format, and a full graph snapshot. These are purely
// informational; a failure to write any of them must never change what
// Driver.Next returns.
type Viz struct {
	dir  string
	seen map[[highwayhash.Size]byte]bool
}

// NewViz constructs a Viz writing under dir. A nil/empty dir disables all
// exports; callers still route calls through Viz so call sites don't need
// a separate "is viz enabled" check.
func NewViz(dir string) *Viz {
	return &Viz{dir: dir, seen: make(map[[highwayhash.Size]byte]bool)}
}

func (v *Viz) enabled() bool { return v != nil && v.dir != "" }

// DumpCalledContig writes the memoization-state dump for a just-called
// contig: one line per subnode giving its node id, position interval,
// weight, and reference flag. Deduplicated by contig content hash so re-running the
// driver on the same input doesn't produce a growing pile of identical
// dumps.
func (v *Viz) DumpCalledContig(ctx context.Context, opts Opts, contig Contig, score int) {
	if !v.enabled() {
		return
	}
	hash := contentHash(opts.ReferenceIndex, contig.FirstStart(), contig.Sequence(opts.K))
	if v.seen[hash] {
		return
	}
	v.seen[hash] = true

	path := fmt.Sprintf("%s/%s-contig-%x.memo.txt", v.dir, opts.ContigName, hash[:8])
	v.writeLines(ctx, path, func() []string {
		lines := make([]string, 0, len(contig.Subnodes)+1)
		lines = append(lines, fmt.Sprintf("# score=%d firstStart=%d lastEnd=%d", score, contig.FirstStart(), contig.LastEnd()))
		for _, s := range contig.Subnodes {
			lines = append(lines, fmt.Sprintf("node=%d [%d,%d] weight=%d ref=%v",
				s.Node.ID(), s.FirstStart(), s.LastEnd(), s.Weight(), s.Node.IsReference()))
		}
		return lines
	})
}

// DumpSubgraph writes the assembled subgraph around contig in a DOT-like
// graph-description format: one node-declaration line per subnode, and one
// edge line from that node to each of its live successors (including
// successors outside the contig, which get no declaration line), suitable
// for feeding to a generic graph renderer.
func (v *Viz) DumpSubgraph(ctx context.Context, opts Opts, g *Graph, contig Contig) {
	if !v.enabled() {
		return
	}
	hash := contentHash(opts.ReferenceIndex, contig.FirstStart(), contig.Sequence(opts.K))
	path := fmt.Sprintf("%s/%s-contig-%x.subgraph.dot", v.dir, opts.ContigName, hash[:8])
	v.writeLines(ctx, path, func() []string {
		lines := []string{"digraph subgraph {"}
		for _, s := range contig.Subnodes {
			n := s.Node
			lines = append(lines, fmt.Sprintf("  n%d [label=\"%d:%d-%d\"];", n.ID(), n.ID(), n.FirstStart(), n.LastEnd()))
			for _, next := range n.Next() {
				if g.Node(next) != nil {
					lines = append(lines, fmt.Sprintf("  n%d -> n%d;", n.ID(), next))
				}
			}
		}
		lines = append(lines, "}")
		return lines
	})
}

// DumpGraphSnapshot writes every currently live node's identity and
// position interval, a full-size snapshot of the graph's current state
// (not limited to one contig's neighborhood).
func (v *Viz) DumpGraphSnapshot(ctx context.Context, opts Opts, g *Graph, tag string) {
	if !v.enabled() {
		return
	}
	path := fmt.Sprintf("%s/%s-snapshot-%s.txt", v.dir, opts.ContigName, tag)
	v.writeLines(ctx, path, func() []string {
		lines := make([]string, 0, g.Size())
		it := g.RangeByFirstStart(negInfinity, posInfinity)
		for {
			n := it.Next()
			if n == nil {
				break
			}
			lines = append(lines, fmt.Sprintf("node=%d [%d,%d] ref=%v weight=%d", n.ID(), n.FirstStart(), n.LastEnd(), n.IsReference(), n.TotalWeight()))
		}
		return lines
	})
}

// writeLines creates path and writes each line genLines() returns,
// newline-terminated, swallowing any failure at debug level: absence of a
// sink must never alter the assembler's output stream.
func (v *Viz) writeLines(ctx context.Context, path string, genLines func() []string) {
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Debug.Printf("assemble: viz: create %s: %v", path, err)
		return
	}
	var once errors.Once
	w := out.Writer(ctx)
	for _, line := range genLines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			once.Set(err)
			break
		}
	}
	once.Set(out.Close(ctx))
	if once.Err() != nil {
		log.Debug.Printf("assemble: viz: write %s: %v", path, once.Err())
	}
}
