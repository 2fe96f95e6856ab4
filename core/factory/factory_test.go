package factory

import (
	"testing"
	"time"
)

type sample struct {
	Limit   int
	Timeout time.Duration
}

type sampleConf struct {
	Limit   int           `json:"limit"`
	Timeout time.Duration `json:"timeout"`
}

func sampleFactory(conf map[string]any) (*sample, error) {
	var c sampleConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &sample{Limit: c.Limit, Timeout: c.Timeout}, nil
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", sampleFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"limit": "3", "timeout": "2s"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Limit != 3 || inst.Timeout != 2*time.Second {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

func TestRegistry_CreateAll(t *testing.T) {
	reg := NewRegistry[*sample]()
	_ = reg.Register("a", sampleFactory)
	_ = reg.Register("b", sampleFactory)
	mods, err := reg.CreateAll([]ModuleConfig{{Type: "b"}, {Type: "a", Conf: map[string]any{"limit": 1}}})
	if err != nil {
		t.Fatalf("create all: %v", err)
	}
	if len(mods) != 2 || mods[1].Limit != 1 {
		t.Fatalf("unexpected modules %+v", mods)
	}
	if got := reg.Types(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected types %v", got)
	}
	if _, err := reg.CreateAll([]ModuleConfig{{Type: "a"}, {Type: "c"}}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}
