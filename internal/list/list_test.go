package list

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/IvanBrykalov/arenalru/internal/arena"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) now() int64          { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

func values[T any](l *List[T]) []T {
	var out []T
	l.Each(func(_ arena.Index, v *T) bool {
		out = append(out, *v)
		return true
	})
	return out
}

func mustValidate[T any](t *testing.T, l *List[T]) {
	t.Helper()
	if err := l.Validate(); err != nil {
		t.Fatalf("invalid list: %v", err)
	}
}

func TestList_New(t *testing.T) {
	t.Parallel()

	l := New[int](0, 0, nil)
	if !l.IsEmpty() || !l.IsFull() {
		t.Fatal("zero-cap list must be both empty and full")
	}
	if _, err := l.PushFront(1); !errors.Is(err, ErrOutOfMemory) || !errors.Is(err, arena.ErrOutOfMemory) {
		t.Fatalf("want ErrOutOfMemory wrapping arena.ErrOutOfMemory, got %v", err)
	}
	mustValidate(t, l)
}

func TestList_PushFront(t *testing.T) {
	t.Parallel()

	const capacity = 10
	l := New[int](capacity, 0, nil)
	for i := 0; i < capacity; i++ {
		if _, err := l.PushFront(i); err != nil {
			t.Fatal(err)
		}
	}
	if !l.IsFull() {
		t.Fatal("list must be full")
	}
	if _, err := l.PushFront(99); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("want ErrOutOfMemory, got %v", err)
	}
	want := []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	if got := values(l); !slices.Equal(got, want) {
		t.Fatalf("order want %v, got %v", want, got)
	}
	mustValidate(t, l)
}

func TestList_PushBackPeek(t *testing.T) {
	t.Parallel()

	l := New[int](3, 0, nil)
	if _, err := l.PeekFront(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("PeekFront on empty: want ErrEmpty, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := l.PushBack(i); err != nil {
			t.Fatal(err)
		}
	}
	if v, err := l.PeekFront(); err != nil || v != 0 {
		t.Fatalf("PeekFront want 0, got %d err=%v", v, err)
	}
	if v, err := l.PeekBack(); err != nil || v != 2 {
		t.Fatalf("PeekBack want 2, got %d err=%v", v, err)
	}
	mustValidate(t, l)
}

func TestList_PopFront(t *testing.T) {
	t.Parallel()

	const capacity = 10
	l := New[int](capacity, 0, nil)
	if _, err := l.PopFront(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
	for i := 0; i < capacity; i++ {
		if _, err := l.PushBack(i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < capacity; i++ {
		v, err := l.PopFront()
		if err != nil || v != i {
			t.Fatalf("PopFront want %d, got %d err=%v", i, v, err)
		}
		mustValidate(t, l)
	}
	if !l.IsEmpty() {
		t.Fatal("list must be empty")
	}
	if _, err := l.PopFront(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
}

func TestList_PopBack(t *testing.T) {
	t.Parallel()

	const capacity = 10
	l := New[int](capacity, 0, nil)
	if _, err := l.PopBack(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
	for i := 0; i < capacity; i++ {
		if _, err := l.PushFront(i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < capacity; i++ {
		v, err := l.PopBack()
		if err != nil || v != i {
			t.Fatalf("PopBack want %d, got %d err=%v", i, v, err)
		}
	}
	if _, err := l.PopBack(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
	mustValidate(t, l)
}

// Removal covers the tail, head and middle cases.
func TestList_Remove(t *testing.T) {
	t.Parallel()

	l := New[int](5, 0, nil)
	idx := make([]arena.Index, 5)
	for i := 0; i < 5; i++ {
		var err error
		if idx[i], err = l.PushFront(i); err != nil {
			t.Fatal(err)
		}
	}

	steps := []struct {
		remove int
		want   []int
	}{
		{0, []int{4, 3, 2, 1}}, // tail
		{4, []int{3, 2, 1}},    // head
		{2, []int{3, 1}},       // middle
		{3, []int{1}},
		{1, nil}, // sole node
	}
	for _, s := range steps {
		v, err := l.Remove(idx[s.remove])
		if err != nil || v != s.remove {
			t.Fatalf("Remove(%d): got %d err=%v", s.remove, v, err)
		}
		if got := values(l); !slices.Equal(got, s.want) {
			t.Fatalf("after Remove(%d) want %v, got %v", s.remove, s.want, got)
		}
		if l.Len() != len(s.want) {
			t.Fatalf("Len want %d, got %d", len(s.want), l.Len())
		}
		mustValidate(t, l)
	}
	if _, err := l.Remove(idx[0]); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Remove on empty: want ErrEmpty, got %v", err)
	}
}

func TestList_RemoveStaleIndex(t *testing.T) {
	t.Parallel()

	l := New[int](2, 0, nil)
	stale, _ := l.PushFront(1)
	if _, err := l.PushFront(2); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Remove(stale); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PushFront(3); err != nil { // reuses the freed slot
		t.Fatal(err)
	}
	if _, err := l.Remove(stale); !errors.Is(err, ErrLinkBroken) {
		t.Fatalf("want ErrLinkBroken, got %v", err)
	}
	if _, err := l.Get(stale); !errors.Is(err, ErrLinkBroken) {
		t.Fatalf("Get: want ErrLinkBroken, got %v", err)
	}
	if got := values(l); !slices.Equal(got, []int{3, 2}) {
		t.Fatalf("stale remove must not touch the list, got %v", got)
	}
	mustValidate(t, l)
}

func TestList_RepositionToHead(t *testing.T) {
	t.Parallel()

	const capacity = 5
	l := New[int](capacity, 0, nil)
	for i := 0; i < capacity; i++ {
		if _, err := l.PushBack(i); err != nil {
			t.Fatal(err)
		}
	}
	// [0 1 2 3 4] -> [2 3 4 0 1]
	for i := capacity / 2; i < capacity; i++ {
		if _, err := l.RepositionToHead(l.Back()); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := values(l), []int{2, 3, 4, 0, 1}; !slices.Equal(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	mustValidate(t, l)

	l = New[int](2, 0, nil)
	i0, _ := l.PushBack(0)
	i0b, err := l.RepositionToHead(i0)
	if err != nil {
		t.Fatal(err)
	}
	if i0b == i0 {
		t.Fatal("reposition must issue a new index")
	}
	if l.Front() != i0b || l.Back() != i0b {
		t.Fatal("sole node must be both head and tail")
	}
	if _, err := l.Get(i0); !errors.Is(err, ErrLinkBroken) {
		t.Fatalf("old index must be stale, got %v", err)
	}

	i1, _ := l.PushBack(1)
	i1b, err := l.RepositionToHead(i1)
	if err != nil {
		t.Fatal(err)
	}
	if l.Front() != i1b || l.Back() != i0b {
		t.Fatal("head/tail mismatch after reposition")
	}

	l.Reserve(1)
	if _, err := l.PushBack(2); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RepositionToHead(i0b); err != nil {
		t.Fatal(err)
	}
	if got, want := values(l), []int{0, 1, 2}; !slices.Equal(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	mustValidate(t, l)
}

func TestList_Retire(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 1}
	l := New[int](10, time.Second, clk.now)
	for i := 0; i < 5; i++ {
		if _, err := l.PushFront(i); err != nil {
			t.Fatal(err)
		}
	}
	clk.add(500 * time.Millisecond)
	for i := 5; i < 10; i++ {
		if _, err := l.PushFront(i); err != nil {
			t.Fatal(err)
		}
	}

	if got, ok, err := l.Retire(); err != nil || ok || got != nil {
		t.Fatalf("nothing should expire yet: got %v ok=%v err=%v", got, ok, err)
	}
	if l.Len() != 10 {
		t.Fatalf("Len want 10, got %d", l.Len())
	}

	clk.add(500 * time.Millisecond)
	got, ok, err := l.Retire()
	if err != nil || !ok || !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("want [0..4], got %v ok=%v err=%v", got, ok, err)
	}
	if v, err := l.PopBack(); err != nil || v != 5 {
		t.Fatalf("PopBack want 5, got %d err=%v", v, err)
	}

	clk.add(500 * time.Millisecond)
	got, ok, err = l.Retire()
	if err != nil || !ok || !slices.Equal(got, []int{6, 7, 8, 9}) {
		t.Fatalf("want [6..9], got %v ok=%v err=%v", got, ok, err)
	}
	if l.Len() != 0 {
		t.Fatalf("Len want 0, got %d", l.Len())
	}
	if _, ok, _ := l.Retire(); ok {
		t.Fatal("empty list must report nothing expired")
	}
	mustValidate(t, l)
}

func TestList_RetireWithoutTTL(t *testing.T) {
	t.Parallel()

	l := New[int](2, 0, nil)
	_, _ = l.PushFront(1)
	if got, ok, err := l.Retire(); got != nil || ok || err != nil {
		t.Fatalf("no TTL: got %v ok=%v err=%v", got, ok, err)
	}
	if at, err := l.ExpireAt(l.Front()); err != nil || at != 0 {
		t.Fatalf("no TTL must leave deadline unset, got %d err=%v", at, err)
	}
}

// Repositioning restamps the deadline, so a touched node survives a sweep
// that removes everything else.
func TestList_RetireAfterReposition(t *testing.T) {
	t.Parallel()

	const capacity = 5
	clk := &fakeClock{t: 1}
	l := New[int](capacity, time.Second, clk.now)

	var live arena.Index
	for i := 0; i < capacity; i++ {
		idx, err := l.PushFront(i)
		if err != nil {
			t.Fatal(err)
		}
		if i == capacity/2 {
			live = idx
		}
	}

	clk.add(time.Second)
	live, err := l.RepositionToHead(live)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := l.Get(live); err != nil || *v != capacity/2 {
		t.Fatalf("Get want %d, got %v err=%v", capacity/2, v, err)
	}
	if l.Front() != live {
		t.Fatal("repositioned node must be the head")
	}

	if _, ok, err := l.Retire(); err != nil || !ok {
		t.Fatalf("Retire: ok=%v err=%v", ok, err)
	}
	if got := values(l); !slices.Equal(got, []int{capacity / 2}) {
		t.Fatalf("want only %d left, got %v", capacity/2, got)
	}
	mustValidate(t, l)
}

// PushBack stamps a deadline too.
func TestList_PushBackStampsDeadline(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 100}
	l := New[string](1, time.Minute, clk.now)
	idx, err := l.PushBack("x")
	if err != nil {
		t.Fatal(err)
	}
	at, err := l.ExpireAt(idx)
	if err != nil || at != 100+int64(time.Minute) {
		t.Fatalf("deadline want %d, got %d err=%v", 100+int64(time.Minute), at, err)
	}
}

// A TTL that would overflow the deadline saturates instead of wrapping into
// the past.
func TestList_DeadlineSaturates(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()}
	l := New[int](2, time.Duration(math.MaxInt64), clk.now)
	idx, err := l.PushFront(1)
	if err != nil {
		t.Fatal(err)
	}
	if at, err := l.ExpireAt(idx); err != nil || at != math.MaxInt64 {
		t.Fatalf("deadline want MaxInt64, got %d err=%v", at, err)
	}

	clk.add(24 * time.Hour)
	if got, ok, err := l.Retire(); err != nil || ok || len(got) != 0 {
		t.Fatalf("Retire: want nothing, got %v ok=%v err=%v", got, ok, err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len want 1, got %d", l.Len())
	}
}

// When a neighbour link is broken, Remove still accounts for the freed slot.
func TestList_RemoveBrokenNeighbour(t *testing.T) {
	t.Parallel()

	l := New[int](3, 0, nil)
	var idx []arena.Index
	for v := 1; v <= 3; v++ {
		i, err := l.PushFront(v)
		if err != nil {
			t.Fatal(err)
		}
		idx = append(idx, i)
	}
	// [3 2 1]; free 2 behind the list's back
	if _, ok := l.arena.Remove(idx[1]); !ok {
		t.Fatal("arena Remove failed")
	}

	if _, err := l.Remove(idx[2]); !errors.Is(err, ErrLinkBroken) {
		t.Fatalf("want ErrLinkBroken, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("Len want 2, got %d", l.Len())
	}
	if l.Front() != idx[1] {
		t.Fatalf("head want %v, got %v", idx[1], l.Front())
	}
	if err := l.Validate(); !errors.Is(err, ErrLinkBroken) {
		t.Fatalf("Validate: want ErrLinkBroken, got %v", err)
	}
}

func TestList_AllocErr(t *testing.T) {
	t.Parallel()

	if err := allocErr(arena.ErrOutOfMemory); !errors.Is(err, ErrOutOfMemory) || errors.Is(err, ErrLinkBroken) {
		t.Fatalf("exhaustion: got %v", err)
	}
	if err := allocErr(arena.ErrCorrupt); !errors.Is(err, ErrLinkBroken) || errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("corruption: got %v", err)
	}
}
