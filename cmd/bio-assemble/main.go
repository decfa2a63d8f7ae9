// Command bio-assemble is a minimal, explicitly debug-only harness around
// package assemble: it is not a production pipeline entry point, since
// building the input k-mer graph from aligned reads belongs to the
// upstream read preprocessor. It reads a line-delimited debug node format
// from stdin or a file and writes assembled records as FASTA-like records
// to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/svassembler/assemble"
)

// lineNodeSource implements assemble.NodeSource over the debug line format:
//
//	firstStart<TAB>firstEnd<TAB>isReference<TAB>kmer1,kmer2,...<TAB>weight1,weight2,...
//
// Blank lines and lines starting with '#' are skipped. Evidence is not
// representable in this minimal format (registering evidence against the
// input graph is normally the upstream graph builder's job), so every
// node is admitted with no evidence;
// unanchored-breakend records will therefore always report a zero
// Breakend interval when driven from this CLI.
type lineNodeSource struct {
	sc *bufio.Scanner
	k  int
}

func newLineNodeSource(r io.Reader, k int) *lineNodeSource {
	return &lineNodeSource{sc: bufio.NewScanner(r), k: k}
}

func (s *lineNodeSource) Next(ctx context.Context) (*assemble.KmerPathNode, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return s.parseLine(line)
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *lineNodeSource) parseLine(line string) (*assemble.KmerPathNode, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return nil, errors.E(fmt.Sprintf("malformed debug node line (want 5 tab-separated fields, got %d): %q", len(fields), line))
	}
	firstStart, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, errors.E(err, "parsing firstStart")
	}
	firstEnd, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, errors.E(err, "parsing firstEnd")
	}
	isReference := fields[2] == "1" || strings.EqualFold(fields[2], "true")

	seqs := strings.Split(fields[3], ",")
	kmers := make([]assemble.Kmer, 0, len(seqs))
	for _, seq := range seqs {
		km, ok := assemble.KmerFromString(seq, s.k)
		if !ok {
			return nil, errors.E(fmt.Sprintf("invalid k-mer sequence %q for k=%d", seq, s.k))
		}
		kmers = append(kmers, km)
	}

	weightStrs := strings.Split(fields[4], ",")
	if len(weightStrs) != len(kmers) {
		return nil, errors.E(fmt.Sprintf("kmer/weight count mismatch: %d kmers, %d weights", len(kmers), len(weightStrs)))
	}
	weights := make([]int, len(weightStrs))
	for i, w := range weightStrs {
		v, err := strconv.Atoi(strings.TrimSpace(w))
		if err != nil {
			return nil, errors.E(err, "parsing weight")
		}
		weights[i] = v
	}

	return assemble.NewPathNode(kmers, weights, assemble.Pos(firstStart), assemble.Pos(firstEnd), isReference, nil), nil
}

func writeRecord(w io.Writer, rec assemble.Record) error {
	if _, err := fmt.Fprintf(w, ">chr%d:%d kind=%s anchors=[%s,%s] evidence=%d\n",
		rec.ReferenceIndex, rec.FirstStart, rec.Kind, anchorString(rec.Anchors[0]), anchorString(rec.Anchors[1]), len(rec.EvidenceIDs)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, rec.Sequence)
	return err
}

func anchorString(a assemble.Anchor) string {
	if !a.Present {
		return "none"
	}
	return fmt.Sprintf("%d:%d(+%d)", a.ReferenceIndex, a.Position, a.AnchorBases)
}

func main() {
	opts := assemble.DefaultOpts
	flag.IntVar(&opts.K, "k", assemble.DefaultOpts.K, "k-mer length")
	flag.Int64Var((*int64)(&opts.MaxEvidenceDistance), "max-evidence-distance", int64(assemble.DefaultOpts.MaxEvidenceDistance),
		"read length + (max fragment size - min fragment size); window width")
	flag.IntVar(&opts.MaxAnchorLength, "max-anchor-length", assemble.DefaultOpts.MaxAnchorLength, "upper bound on anchor extension bases")
	flag.IntVar(&opts.ReferenceIndex, "reference-index", assemble.DefaultOpts.ReferenceIndex, "chromosome index tagged on every output record")
	flag.Float64Var(&opts.MaxExpectedBreakendLengthMultiple, "max-expected-breakend-length-multiple",
		assemble.DefaultOpts.MaxExpectedBreakendLengthMultiple, "misassembly trigger threshold multiple")
	flag.IntVar(&opts.MaxConcordantFragmentSize, "max-concordant-fragment-size",
		assemble.DefaultOpts.MaxConcordantFragmentSize, "multiplier base for the misassembly trigger threshold")
	flag.StringVar(&opts.ContigName, "contig-name", "", "debug tag attached to log lines and viz exports")
	flag.BoolVar(&opts.Debug, "debug", false, "escalate sanity-check failures to fatal, enable viz exports")
	flag.StringVar(&opts.VizDir, "viz-dir", "", "directory for diagnostic side-outputs (requires -debug)")
	inputPath := flag.String("input", "-", "debug node input file, or - for stdin")
	outputPath := flag.String("output", "-", "assembled-record output file, or - for stdout")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	var in io.Reader = os.Stdin
	if *inputPath != "-" {
		f, err := file.Open(ctx, *inputPath)
		if err != nil {
			log.Panicf("open %s: %v", *inputPath, err)
		}
		defer f.Close(ctx)
		in = f.Reader(ctx)
	}

	var (
		out    io.Writer = os.Stdout
		outF   file.File
		hasOut bool
	)
	if *outputPath != "-" {
		var err error
		outF, err = file.Create(ctx, *outputPath)
		if err != nil {
			log.Panicf("create %s: %v", *outputPath, err)
		}
		hasOut = true
		out = outF.Writer(ctx)
	}

	source := newLineNodeSource(in, opts.K)
	driver := assemble.NewDriver(source, opts)
	defer driver.Close()

	n := 0
	for {
		rec, ok, err := driver.Next(ctx)
		if err != nil {
			log.Panicf("assemble: %v", err)
		}
		if !ok {
			break
		}
		if err := writeRecord(out, rec); err != nil {
			log.Panicf("write record: %v", err)
		}
		n++
	}

	if hasOut {
		if err := outF.Close(ctx); err != nil {
			log.Panicf("close %s: %v", *outputPath, err)
		}
	}

	stats := driver.Stats()
	log.Printf("bio-assemble: wrote %d record(s); stats=%+v", n, stats)
}
