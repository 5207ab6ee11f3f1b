package nnue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/quietmove/nnue/features"
)

func networkEqual(t *testing.T, a, b *Network) {
	t.Helper()
	if a.Name() != b.Name() {
		t.Errorf("name %q vs %q", b.Name(), a.Name())
	}
	for i := range a.Transformer.Weights {
		if a.Transformer.Weights[i] != b.Transformer.Weights[i] {
			t.Fatalf("ft weight %d differs", i)
		}
	}
	for i := range a.Transformer.Biases {
		if a.Transformer.Biases[i] != b.Transformer.Biases[i] {
			t.Fatalf("ft bias %d differs", i)
		}
	}
	for s := range a.Stacks {
		as, bs := &a.Stacks[s], &b.Stacks[s]
		for i := range as.L1.Weights {
			if as.L1.Weights[i] != bs.L1.Weights[i] {
				t.Fatalf("stack %d l1 weight %d differs", s, i)
			}
		}
		for i := range as.L1.Biases {
			if as.L1.Biases[i] != bs.L1.Biases[i] {
				t.Fatalf("stack %d l1 bias %d differs", s, i)
			}
		}
		for i := range as.L2.Weights {
			if as.L2.Weights[i] != bs.L2.Weights[i] {
				t.Fatalf("stack %d l2 weight %d differs", s, i)
			}
		}
		for i := range as.L3Weights {
			if as.L3Weights[i] != bs.L3Weights[i] {
				t.Fatalf("stack %d l3 weight %d differs", s, i)
			}
		}
		if as.L3Bias != bs.L3Bias {
			t.Fatalf("stack %d l3 bias differs", s)
		}
	}
	for s := range a.Single {
		as, bs := &a.Single[s], &b.Single[s]
		for i := range as.Weights {
			if as.Weights[i] != bs.Weights[i] {
				t.Fatalf("single stack %d weight %d differs", s, i)
			}
		}
		if as.Bias != bs.Bias {
			t.Fatalf("single stack %d bias differs", s)
		}
	}
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := testConfig()
	net := newTestNetwork(70, cfg)

	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net, false); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadNetwork(bytes.NewReader(buf.Bytes()), cfg)
	if err != nil {
		t.Fatal(err)
	}
	networkEqual(t, net, loaded)
}

func TestLoadRoundTripCompressed(t *testing.T) {
	cfg := testConfig()
	net := newTestNetwork(71, cfg)

	var raw, compressed bytes.Buffer
	if err := WriteNetwork(&raw, net, false); err != nil {
		t.Fatal(err)
	}
	if err := WriteNetwork(&compressed, net, true); err != nil {
		t.Fatal(err)
	}
	if compressed.Len() >= raw.Len() {
		t.Logf("compressed %d >= raw %d bytes (small synthetic net)", compressed.Len(), raw.Len())
	}

	loaded, err := LoadNetwork(bytes.NewReader(compressed.Bytes()), cfg)
	if err != nil {
		t.Fatal(err)
	}
	networkEqual(t, net, loaded)
}

func TestLoadRoundTripSingleLayer(t *testing.T) {
	cfg := testConfig()
	cfg.Arch = ArchSingleLayer
	cfg.Activation = ActSCReLU
	cfg.L2, cfg.L3 = 0, 0
	cfg.SparseL1 = false
	net := newTestNetwork(72, cfg)

	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net, false); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadNetwork(bytes.NewReader(buf.Bytes()), cfg)
	if err != nil {
		t.Fatal(err)
	}
	networkEqual(t, net, loaded)
}

func TestLoadBadMagic(t *testing.T) {
	cfg := testConfig()
	net := newTestNetwork(73, cfg)
	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net, false); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	data[0] = 'X'

	_, err := LoadNetwork(bytes.NewReader(data), cfg)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("want ErrMalformed, got %v", err)
	}
}

func TestLoadTruncated(t *testing.T) {
	cfg := testConfig()
	net := newTestNetwork(74, cfg)
	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net, false); err != nil {
		t.Fatal(err)
	}

	// A 256-byte prefix survives the header but dies inside the
	// transformer weights.
	_, err := LoadNetwork(bytes.NewReader(buf.Bytes()[:256]), cfg)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("payload cut: want ErrTruncated, got %v", err)
	}

	// Shorter than the header itself.
	_, err = LoadNetwork(bytes.NewReader(buf.Bytes()[:32]), cfg)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("header cut: want ErrTruncated, got %v", err)
	}
}

func TestLoadHeaderMismatches(t *testing.T) {
	cfg := testConfig()
	net := newTestNetwork(75, cfg)
	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net, false); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	cases := []struct {
		name   string
		mutate func([]byte)
		cfg    Config
	}{
		{"version", func(b []byte) { b[4] = 9 }, cfg},
		{"pad byte", func(b []byte) { b[8] = 1 }, cfg},
		{"arch id", func(b []byte) { b[9] = 7 }, cfg},
		{"activation on pairwise", func(b []byte) { b[10] = 1 }, cfg},
		{"pairwise flag cleared", func(b []byte) { b[6] &^= byte(FlagPairwise) }, cfg},
		{"hidden", func(b []byte) { b[11] = 0 }, cfg},
		{"name length", func(b []byte) { b[15] = 49 }, cfg},
		{"output buckets", func(b []byte) { b[14] = 8 }, cfg},
	}
	for _, tc := range cases {
		mutated := bytes.Clone(data)
		tc.mutate(mutated)
		_, err := LoadNetwork(bytes.NewReader(mutated), tc.cfg)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: want ErrMalformed, got %v", tc.name, err)
		}
	}

	// Configured feature set disagrees with the mirror flag.
	mismatch := cfg
	mismatch.FeatureSet = features.NewMirroredKingBuckets(features.DefaultMirroredHalf16, features.MirrorQueenside, false)
	_, err := LoadNetwork(bytes.NewReader(data), mismatch)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("mirror mismatch: want ErrMalformed, got %v", err)
	}
}

func TestHeaderEncodeDecode(t *testing.T) {
	h := Header{
		Flags:         FlagZstd | FlagPairwise,
		Arch:          ArchPairwiseDual,
		Hidden:        1024,
		InputBuckets:  4,
		OutputBuckets: 8,
		Name:          "roundtrip",
	}
	raw := h.encode()
	got, err := ReadHeader(bytes.NewReader(raw[:]))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("decoded %+v, want %+v", got, h)
	}
}
