// Package fakeinspector is an in-memory inspector.Inspector used by the
// snapshot and cmd test suites. The real dump-reader library is an
// external dependency (spec.md §1); this package lets the core be tested
// without one.
package fakeinspector

import (
	"context"
	"fmt"

	"github.com/chrono-triage/dumptriage/inspector"
)

// Thread is a builder-friendly description of one fake thread.
type Thread struct {
	ManagedID        int
	Address          uint64
	State            string
	LockCount        int
	Exception        *inspector.ExceptionInfo
	IsFinalizer      bool
	IsGC             bool
	CPUTimeMs        *float64
	Roots            []uint64
	Frames           []string
	FailStackRoots   bool
	FailStackFrames  bool
}

// Object is a builder-friendly description of one fake heap object.
type Object struct {
	Address  uint64
	Valid    bool
	Type     string
	HasType  bool
	String   bool
	Sz       uint64
	Text     string
	FailRead bool
}

// Module is a fake loaded module.
type Module struct {
	Name string
	Size uint64
}

// Fake is the whole in-memory dump fixture.
type Fake struct {
	NoRuntime bool

	Threads []Thread
	Heap    *FakeHeap
	Modules []Module
}

// FakeHeap is the fixture's heap: segments, objects (in iteration order),
// and sync blocks.
type FakeHeap struct {
	Walkable  bool
	Server    bool
	Segments  []inspector.Segment
	Objects   []Object
	SyncBlock []inspector.SyncBlock
}

func (f *Fake) Open() inspector.Inspector { return &fakeInsp{f: f} }

type fakeInsp struct{ f *Fake }

func (i *fakeInsp) Runtimes(ctx context.Context) ([]inspector.RuntimeInfo, error) {
	if i.f.NoRuntime {
		return nil, nil
	}
	return []inspector.RuntimeInfo{{Flavor: "CoreCLR", Version: "8.0.0"}}, nil
}

func (i *fakeInsp) CreateRuntime(ctx context.Context, n int) (inspector.Runtime, error) {
	return &fakeRuntime{f: i.f}, nil
}

func (i *fakeInsp) Close() error { return nil }

type fakeRuntime struct{ f *Fake }

func (r *fakeRuntime) Threads(ctx context.Context) ([]inspector.ThreadHandle, error) {
	out := make([]inspector.ThreadHandle, 0, len(r.f.Threads))
	for idx := range r.f.Threads {
		out = append(out, &fakeThread{t: &r.f.Threads[idx]})
	}
	return out, nil
}

func (r *fakeRuntime) Heap() (inspector.Heap, bool) {
	if r.f.Heap == nil {
		return nil, false
	}
	return &fakeHeapImpl{h: r.f.Heap}, true
}

func (r *fakeRuntime) Modules(ctx context.Context) ([]inspector.ModuleHandle, error) {
	out := make([]inspector.ModuleHandle, 0, len(r.f.Modules))
	for idx := range r.f.Modules {
		out = append(out, &fakeModule{m: &r.f.Modules[idx]})
	}
	return out, nil
}

type fakeThread struct{ t *Thread }

func (t *fakeThread) ManagedID() int    { return t.t.ManagedID }
func (t *fakeThread) Address() uint64   { return t.t.Address }
func (t *fakeThread) StateText() string { return t.t.State }
func (t *fakeThread) LockCount() int    { return t.t.LockCount }
func (t *fakeThread) CurrentException() (inspector.ExceptionInfo, bool) {
	if t.t.Exception == nil {
		return inspector.ExceptionInfo{}, false
	}
	return *t.t.Exception, true
}
func (t *fakeThread) IsFinalizer() bool { return t.t.IsFinalizer }
func (t *fakeThread) IsGC() bool        { return t.t.IsGC }
func (t *fakeThread) CPUTimeMs() (float64, bool) {
	if t.t.CPUTimeMs == nil {
		return 0, false
	}
	return *t.t.CPUTimeMs, true
}
func (t *fakeThread) StackRoots(ctx context.Context) ([]uint64, error) {
	if t.t.FailStackRoots {
		return nil, fmt.Errorf("fake: stack root read failed")
	}
	return t.t.Roots, nil
}
func (t *fakeThread) StackFrames(ctx context.Context) ([]string, error) {
	if t.t.FailStackFrames {
		return nil, fmt.Errorf("fake: stack frame read failed")
	}
	return t.t.Frames, nil
}

type fakeModule struct{ m *Module }

func (m *fakeModule) Name() string { return m.m.Name }
func (m *fakeModule) Size() uint64 { return m.m.Size }

type fakeHeapImpl struct{ h *FakeHeap }

func (h *fakeHeapImpl) CanWalk() bool  { return h.h.Walkable }
func (h *fakeHeapImpl) IsServer() bool { return h.h.Server }
func (h *fakeHeapImpl) Segments(ctx context.Context) ([]inspector.Segment, error) {
	return h.h.Segments, nil
}
func (h *fakeHeapImpl) Objects(ctx context.Context) (inspector.ObjectIterator, error) {
	return &fakeObjIter{objs: h.h.Objects}, nil
}
func (h *fakeHeapImpl) GetObject(addr uint64) (inspector.ObjectHandle, error) {
	for i := range h.h.Objects {
		if h.h.Objects[i].Address == addr {
			return &fakeObject{o: &h.h.Objects[i]}, nil
		}
	}
	return nil, fmt.Errorf("fake: no object at %x", addr)
}
func (h *fakeHeapImpl) SyncBlocks(ctx context.Context) ([]inspector.SyncBlock, error) {
	return h.h.SyncBlock, nil
}

type fakeObjIter struct {
	objs []Object
	idx  int
}

func (it *fakeObjIter) Next(ctx context.Context) (inspector.ObjectHandle, bool, error) {
	if it.idx >= len(it.objs) {
		return nil, false, nil
	}
	o := &it.objs[it.idx]
	it.idx++
	return &fakeObject{o: o}, true, nil
}

type fakeObject struct{ o *Object }

func (o *fakeObject) Address() uint64 { return o.o.Address }
func (o *fakeObject) IsValid() bool   { return o.o.Valid }
func (o *fakeObject) TypeName() (string, bool) {
	return o.o.Type, o.o.HasType
}
func (o *fakeObject) IsString() bool { return o.o.String }
func (o *fakeObject) Size() uint64   { return o.o.Sz }
func (o *fakeObject) AsString(ctx context.Context, maxChars int) (string, error) {
	if o.o.FailRead {
		return "", fmt.Errorf("fake: string read failed")
	}
	r := []rune(o.o.Text)
	if len(r) > maxChars {
		r = r[:maxChars]
	}
	return string(r), nil
}
