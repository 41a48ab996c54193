package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/HamletTheHamster/stemprobe/internal/config"
	"github.com/HamletTheHamster/stemprobe/internal/optics"
	"github.com/HamletTheHamster/stemprobe/internal/probe"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
	sets int
	fail error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sets++
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func (m *memStore) Close() error { return nil }

var (
	testParams = optics.Parameters{BeamEnergyKeV: 100, Cs3mm: 1, ApertureMrad: 10}
	testGrid   = []float64{0, 0.5, 1, 1.5, 2}
)

func TestKey(t *testing.T) {
	cfg := probe.DefaultConfig()
	base, err := Key("stemprobe", KindPSF, testParams, testGrid, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(base, "stemprobe:psf:") || len(base) != len("stemprobe:psf:")+64 {
		t.Errorf("key %q not prefix:kind:sha256", base)
	}
	again, _ := Key("stemprobe", KindPSF, testParams, testGrid, cfg)
	if again != base {
		t.Error("key is not deterministic")
	}

	workers := cfg
	workers.Workers = cfg.Workers + 7
	if k, _ := Key("stemprobe", KindPSF, testParams, testGrid, workers); k != base {
		t.Error("worker count changed the key")
	}

	tol := cfg
	tol.Quadrature.RelTol *= 10
	df := testParams.WithDefocus(5)
	for name, k := range map[string]func() (string, error){
		"kind":      func() (string, error) { return Key("stemprobe", KindMTF, testParams, testGrid, cfg) },
		"params":    func() (string, error) { return Key("stemprobe", KindPSF, df, testGrid, cfg) },
		"grid":      func() (string, error) { return Key("stemprobe", KindPSF, testParams, testGrid[:4], cfg) },
		"tolerance": func() (string, error) { return Key("stemprobe", KindPSF, testParams, testGrid, tol) },
	} {
		got, err := k()
		if err != nil {
			t.Fatal(err)
		}
		if got == base {
			t.Errorf("changing %s left the key unchanged", name)
		}
	}
}

func TestEngine_StoresAndServes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	inner := probe.NewEngine(probe.DefaultConfig(), nil)
	e := NewEngine(inner, store, "t", time.Hour, nil)

	first, err := e.ChromaticPSF(ctx, testGrid, testParams)
	if err != nil {
		t.Fatal(err)
	}
	if store.sets != 1 {
		t.Fatalf("sets = %d after first call, want 1", store.sets)
	}
	key, _ := Key("t", KindPSF, testParams, testGrid, inner.Config())
	if store.ttl[key] != time.Hour {
		t.Errorf("ttl = %v, want 1h", store.ttl[key])
	}

	// overwrite the entry; a hit must return it verbatim
	marked := make([]float64, len(testGrid))
	copy(marked, first)
	marked[1] = 0.123
	b, _ := json.Marshal(marked)
	store.data[key] = b

	second, err := e.ChromaticPSF(ctx, testGrid, testParams)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(second, marked) {
		t.Errorf("got %v, want cached %v", second, marked)
	}
	if store.sets != 1 {
		t.Errorf("hit stored again: sets = %d", store.sets)
	}
}

func TestEngine_MalformedEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	inner := probe.NewEngine(probe.DefaultConfig(), nil)
	e := NewEngine(inner, store, "t", 0, nil)

	key, _ := Key("t", KindPSF, testParams, testGrid, inner.Config())
	store.data[key] = []byte("[1,2]")

	got, err := e.ChromaticPSF(ctx, testGrid, testParams)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := inner.ChromaticPSF(ctx, testGrid, testParams)
	if !floats.Equal(got, want) {
		t.Errorf("got %v, want recomputed %v", got, want)
	}
}

func TestEngine_StoreFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.fail = errors.New("connection refused")
	inner := probe.NewEngine(probe.DefaultConfig(), nil)
	e := NewEngine(inner, store, "t", 0, nil)

	got, err := e.ChromaticPSF(ctx, testGrid, testParams)
	if err != nil {
		t.Fatalf("store failure surfaced: %v", err)
	}
	want, _ := inner.ChromaticPSF(ctx, testGrid, testParams)
	if !floats.Equal(got, want) {
		t.Error("result differs from the uncached engine")
	}
}

func TestEngine_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := probe.NewEngine(probe.DefaultConfig(), nil)
	e := NewEngine(inner, nil, "t", 0, nil)

	k := []float64{0, 0.1, 0.2}
	got, err := e.MTF(ctx, k, testParams)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := inner.MTF(ctx, k, testParams)
	if !floats.Equal(got, want) {
		t.Error("pass-through MTF differs from the engine")
	}

	_, size, err := e.ProbeSize(ctx, testGrid, testParams)
	if err != nil {
		t.Fatal(err)
	}
	_, wantSize, _ := inner.ProbeSize(ctx, testGrid, testParams)
	if size != wantSize {
		t.Errorf("size = %g, want %g", size, wantSize)
	}

	if _, err := e.ChromaticPSF(ctx, []float64{1, 0}, testParams); !errors.Is(err, probe.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestEngine_FocusSeriesUsesCache(t *testing.T) {
	store := newMemStore()
	e := NewEngine(probe.NewEngine(probe.DefaultConfig(), nil), store, "t", 0, nil)
	frames, err := e.FocusSeries(context.Background(), testGrid, testParams, []float64{-10, 0, 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 || store.sets != 3 {
		t.Errorf("frames = %d, sets = %d; want 3, 3", len(frames), store.sets)
	}
}

func TestNewRedisStore(t *testing.T) {
	s := NewRedisStore(config.CacheConfig{Host: "127.0.0.1", Port: 6390, DB: 2})
	defer s.Close()
	if s.addr != "127.0.0.1:6390" {
		t.Errorf("addr = %q", s.addr)
	}
}
