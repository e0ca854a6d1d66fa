package ecs

import (
	"fmt"
	"sync"
	"testing"
)

type position struct{ X, Y float64 }
type velocity struct{ DX, DY float64 }

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	if a.Index() != 0 || b.Index() != 1 {
		t.Fatalf("indices = %d, %d; want 0, 1", a.Index(), b.Index())
	}
	if !p.Destroy(a) {
		t.Fatal("Destroy(a) = false, want true")
	}
	if p.Destroy(a) {
		t.Fatal("second Destroy(a) = true, want false")
	}
	c := p.Create()
	if c.Index() != a.Index() || c.Generation() != a.Generation()+1 {
		t.Fatalf("recycled id = (%d,%d), want (%d,%d)", c.Index(), c.Generation(), a.Index(), a.Generation()+1)
	}
	if p.Alive(a) {
		t.Error("stale id reported alive")
	}
	if got := p.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestFlushDestroyQueueClearsComponents(t *testing.T) {
	w := NewWorld()
	pos := Store[position](w)
	vel := Store[velocity](w)

	a := w.CreateEntity()
	b := w.CreateEntity()
	pos.Set(a, &position{})
	vel.Set(a, &velocity{})
	pos.Set(b, &position{})

	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	got := w.FlushDestroyQueue()
	if len(got) != 1 || got[0] != a {
		t.Fatalf("destroyed = %v, want [%v]", got, a)
	}
	if _, ok := pos.Get(a); ok {
		t.Error("position of destroyed entity still present")
	}
	if _, ok := vel.Get(a); ok {
		t.Error("velocity of destroyed entity still present")
	}
	if _, ok := pos.Get(b); !ok {
		t.Error("position of live entity removed")
	}
	if w.FlushDestroyQueue() != nil {
		t.Error("second flush returned ids")
	}
}

func TestStoreIsCreatedOnce(t *testing.T) {
	w := NewWorld()
	if Store[position](w) != Store[position](w) {
		t.Fatal("Store returned distinct stores for the same type")
	}
}

func TestEach2VisitsIntersection(t *testing.T) {
	w := NewWorld()
	pos := Store[position](w)
	vel := Store[velocity](w)
	for i := 0; i < 5; i++ {
		id := w.CreateEntity()
		pos.Set(id, &position{X: float64(i)})
		if i%2 == 0 {
			vel.Set(id, &velocity{DX: 1})
		}
	}

	seen := 0
	Each2(pos, vel, func(_ EntityID, p *position, v *velocity) {
		p.X += v.DX
		seen++
	})
	if seen != 3 {
		t.Fatalf("visited %d entities, want 3", seen)
	}
}

func TestResources(t *testing.T) {
	w := NewWorld()
	if _, ok := Resource[*position](w); ok {
		t.Fatal("empty world reported a resource")
	}

	p := &position{X: 4}
	InsertResource(w, p)
	got, ok := Resource[*position](w)
	if !ok || got != p {
		t.Fatalf("Resource = %v, %v; want %v, true", got, ok, p)
	}

	InsertResource[greeter](w, english{})
	if g := MustResource[greeter](w); g.Greet() != "hello" {
		t.Errorf("Greet() = %q", g.Greet())
	}
	if _, ok := Resource[english](w); ok {
		t.Error("interface-keyed resource found under concrete type")
	}

	if !RemoveResource[*position](w) {
		t.Error("RemoveResource = false, want true")
	}
	if RemoveResource[*position](w) {
		t.Error("second RemoveResource = true, want false")
	}
}

func TestMustResourcePanicsWhenAbsent(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg := fmt.Sprint(r); msg != "ecs: resource *ecs.position not present" {
			t.Errorf("panic = %q", msg)
		}
	}()
	MustResource[*position](NewWorld())
}

func TestMarkForDestructionFromManyGoroutines(t *testing.T) {
	w := NewWorld()
	const workers, per = 8, 50
	ids := make([]EntityID, workers*per)
	for i := range ids {
		ids[i] = w.CreateEntity()
	}

	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(chunk []EntityID) {
			defer wg.Done()
			for _, id := range chunk {
				w.MarkForDestruction(id)
			}
		}(ids[g*per : (g+1)*per])
	}
	wg.Wait()

	if got := len(w.FlushDestroyQueue()); got != len(ids) {
		t.Fatalf("destroyed %d entities, want %d", got, len(ids))
	}
	for _, id := range ids {
		if w.Alive(id) {
			t.Fatalf("entity %v still alive", id)
		}
	}
	if got := w.FlushDestroyQueue(); got != nil {
		t.Errorf("second flush = %v, want nil", got)
	}
}
