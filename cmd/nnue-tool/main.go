// Command nnue-tool inspects, benchmarks and baselines quantised
// network files.
//
//	nnue-tool inspect -net weights.qnet
//	nnue-tool bench -net weights.qnet -fens positions.fen -workers 4
//	nnue-tool baseline put -net weights.qnet -fens positions.fen -db ./baseline
//	nnue-tool baseline diff -net weights.qnet -fens positions.fen -db ./baseline
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"golang.org/x/sync/errgroup"

	"github.com/quietmove/nnue"
	"github.com/quietmove/nnue/dragonpos"
	"github.com/quietmove/nnue/features"
	"github.com/quietmove/nnue/internal/baseline"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "inspect":
		err = runInspect(os.Args[2:])
	case "bench":
		err = runBench(os.Args[2:])
	case "baseline":
		err = runBaseline(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: nnue-tool inspect|bench|baseline [flags]")
	os.Exit(2)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	netPath := fs.String("net", "", "network file")
	fs.Parse(args)
	if *netPath == "" {
		return fmt.Errorf("inspect: -net is required")
	}

	f, err := os.Open(*netPath)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := nnue.ReadHeader(f)
	if err != nil {
		return err
	}
	fmt.Printf("name:           %s\n", h.Name)
	fmt.Printf("arch:           %s\n", archName(h.Arch))
	if h.Arch == nnue.ArchSingleLayer {
		fmt.Printf("activation:     %s\n", actName(h.Activation))
	}
	fmt.Printf("hidden:         %d\n", h.Hidden)
	fmt.Printf("input buckets:  %d\n", h.InputBuckets)
	fmt.Printf("output buckets: %d\n", h.OutputBuckets)
	fmt.Printf("compressed:     %v\n", h.Flags&nnue.FlagZstd != 0)
	fmt.Printf("mirrored:       %v\n", h.Flags&nnue.FlagMirrored != 0)
	fmt.Printf("merged kings:   %v\n", h.Flags&nnue.FlagMergedKings != 0)
	return nil
}

func archName(a nnue.Arch) string {
	switch a {
	case nnue.ArchSingleLayer:
		return "single-layer"
	case nnue.ArchPairwise:
		return "pairwise"
	case nnue.ArchPairwiseDual:
		return "pairwise-dual"
	}
	return fmt.Sprintf("unknown(%d)", a)
}

func actName(a nnue.Activation) string {
	switch a {
	case nnue.ActIdentity:
		return "identity"
	case nnue.ActReLU:
		return "relu"
	case nnue.ActCReLU:
		return "crelu"
	case nnue.ActSCReLU:
		return "screlu"
	}
	return fmt.Sprintf("unknown(%d)", a)
}

// netFlags is the flag subset every network-loading subcommand shares.
// The header carries arch, hidden width and bucket counts, but not the
// L2/L3 widths nor the king-bucket tables, so those come from flags
// with stock defaults.
type netFlags struct {
	path   string
	l2, l3 int
	sparse bool
}

func (nf *netFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&nf.path, "net", "", "network file")
	fs.IntVar(&nf.l2, "l2", 16, "L2 width of pairwise networks")
	fs.IntVar(&nf.l3, "l3", 32, "L3 width of pairwise networks")
	fs.BoolVar(&nf.sparse, "sparse", true, "use the sparse L1 path")
}

func (nf *netFlags) load() (*nnue.Network, error) {
	if nf.path == "" {
		return nil, fmt.Errorf("-net is required")
	}
	f, err := os.Open(nf.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := nnue.ReadHeader(f)
	if err != nil {
		return nil, err
	}
	cfg, err := configFromHeader(h, nf.l2, nf.l3, nf.sparse)
	if err != nil {
		return nil, err
	}
	// Reopen so the loader sees the header again.
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return nnue.LoadNetwork(f, cfg)
}

// configFromHeader reconstructs the stock configuration a header
// describes. Non-stock bucket tables cannot round-trip through the
// header; they need a dedicated tool build.
func configFromHeader(h nnue.Header, l2, l3 int, sparse bool) (nnue.Config, error) {
	merged := h.Flags&nnue.FlagMergedKings != 0

	var set features.Set
	switch {
	case h.Flags&nnue.FlagMirrored != 0:
		set = features.NewMirroredKingBuckets(features.DefaultMirroredHalf16, features.MirrorQueenside, merged)
	case h.InputBuckets == 1:
		set = features.NewSingleBucket(merged)
	case h.InputBuckets == 4:
		set = features.NewKingBuckets(features.DefaultKingBuckets4, merged)
	case h.InputBuckets == 32:
		set = features.NewKingBuckets(features.DefaultKingBuckets32, merged)
	default:
		return nnue.Config{}, fmt.Errorf("no stock feature set with %d king buckets", h.InputBuckets)
	}
	if set.BucketCount() != h.InputBuckets {
		return nnue.Config{}, fmt.Errorf("feature set bucket mismatch: %d vs %d", set.BucketCount(), h.InputBuckets)
	}

	var out nnue.OutputBuckets = nnue.SingleOutputBucket{}
	if h.OutputBuckets > 1 {
		out = nnue.MaterialBuckets{O: h.OutputBuckets}
	}

	cfg := nnue.Config{
		Arch:       h.Arch,
		Activation: h.Activation,
		FeatureSet: set,
		Hidden:     h.Hidden,
		Output:     out,
	}
	if h.Arch != nnue.ArchSingleLayer {
		cfg.L2 = l2
		cfg.L3 = l3
		cfg.SparseL1 = sparse
	}
	return cfg, nil
}

// readFens loads one FEN per line, skipping blanks and # comments.
func readFens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	return fens, sc.Err()
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	var nf netFlags
	nf.register(fs)
	fensPath := fs.String("fens", "", "file with one FEN per line")
	workers := fs.Int("workers", 1, "parallel evaluators")
	rounds := fs.Int("rounds", 100, "evaluations per position")
	fs.Parse(args)

	net, err := nf.load()
	if err != nil {
		return err
	}
	fens, err := readFens(*fensPath)
	if err != nil {
		return err
	}
	if len(fens) == 0 {
		return fmt.Errorf("bench: no positions in %s", *fensPath)
	}

	log.Printf("network %q, %d positions, %d workers", net.Name(), len(fens), *workers)

	start := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	chunk := (len(fens) + *workers - 1) / *workers
	for w := 0; w < *workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(fens))
		if lo >= hi {
			break
		}
		part := fens[lo:hi]
		g.Go(func() error {
			ev := nnue.NewEvaluator(net)
			for _, fen := range part {
				board := dragontoothmg.ParseFen(fen)
				pos := dragonpos.Wrap(&board)
				for r := 0; r < *rounds; r++ {
					ev.Reset(pos)
					ev.Evaluate(pos)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	total := len(fens) * *rounds
	log.Printf("%d evaluations in %v (%.0f evals/s)", total, elapsed, float64(total)/elapsed.Seconds())
	return nil
}

func runBaseline(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("baseline: want put or diff")
	}
	mode := args[0]
	fs := flag.NewFlagSet("baseline "+mode, flag.ExitOnError)
	var nf netFlags
	nf.register(fs)
	fensPath := fs.String("fens", "", "file with one FEN per line")
	dbDir := fs.String("db", "./baseline", "store directory")
	fs.Parse(args[1:])

	net, err := nf.load()
	if err != nil {
		return err
	}
	fens, err := readFens(*fensPath)
	if err != nil {
		return err
	}

	store, err := baseline.Open(*dbDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ev := nnue.NewEvaluator(net)
	evaluate := func(fen string) int32 {
		board := dragontoothmg.ParseFen(fen)
		pos := dragonpos.Wrap(&board)
		ev.Reset(pos)
		return ev.Evaluate(pos)
	}

	switch mode {
	case "put":
		for _, fen := range fens {
			rec := baseline.Record{Network: net.Name(), Score: evaluate(fen)}
			if err := store.Put(fen, rec); err != nil {
				return err
			}
		}
		log.Printf("stored %d baselines in %s", len(fens), *dbDir)
		return nil
	case "diff":
		mismatches := 0
		for _, fen := range fens {
			rec, ok, err := store.Get(fen)
			if err != nil {
				return err
			}
			if !ok {
				log.Printf("missing: %s", fen)
				continue
			}
			if got := evaluate(fen); got != rec.Score {
				mismatches++
				log.Printf("diff %+d -> %+d  %s", rec.Score, got, fen)
			}
		}
		if mismatches > 0 {
			return fmt.Errorf("baseline: %d positions changed", mismatches)
		}
		log.Printf("all %d positions match", len(fens))
		return nil
	default:
		return fmt.Errorf("baseline: unknown mode %q", mode)
	}
}
