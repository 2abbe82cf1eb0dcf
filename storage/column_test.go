package storage

import (
	"reflect"
	"testing"
	"unsafe"
)

type position struct {
	X, Y float64
}

func TestColumnAppendAndAccess(t *testing.T) {
	col := NewColumn(reflect.TypeOf(position{}), nil, 2)

	row := col.AppendValue(reflect.ValueOf(position{X: 1, Y: 2}))
	if row != 0 {
		t.Fatalf("expected row 0, got %d", row)
	}
	if col.Len() != 1 {
		t.Fatalf("expected len 1, got %d", col.Len())
	}

	got := *(*position)(col.PtrAt(row))
	if got.X != 1 || got.Y != 2 {
		t.Fatalf("unexpected value: %+v", got)
	}

	*(*position)(col.PtrAt(row)) = position{X: 5, Y: 6}
	if v := col.ValueAt(row).Interface().(position); v.X != 5 || v.Y != 6 {
		t.Fatalf("write through pointer not visible: %+v", v)
	}
}

func TestColumnGrowPreservesValues(t *testing.T) {
	col := NewColumn(reflect.TypeOf(int64(0)), nil, 0)

	const n = 100
	for i := 0; i < n; i++ {
		col.AppendValue(reflect.ValueOf(int64(i)))
	}
	if col.Len() != n {
		t.Fatalf("expected %d elements, got %d", n, col.Len())
	}
	for i := 0; i < n; i++ {
		if got := *(*int64)(col.PtrAt(i)); got != int64(i) {
			t.Fatalf("row %d: expected %d, got %d", i, i, got)
		}
	}
}

func TestColumnSwapRemove(t *testing.T) {
	col := NewColumn(reflect.TypeOf(int32(0)), nil, 4)
	for i := 0; i < 4; i++ {
		col.AppendValue(reflect.ValueOf(int32(i * 10)))
	}

	col.SwapRemove(1, false)
	if col.Len() != 3 {
		t.Fatalf("expected len 3, got %d", col.Len())
	}
	if got := *(*int32)(col.PtrAt(1)); got != 30 {
		t.Fatalf("expected final element swapped into row 1, got %d", got)
	}

	// Removing the final row needs no swap.
	col.SwapRemove(2, false)
	if col.Len() != 2 {
		t.Fatalf("expected len 2, got %d", col.Len())
	}
	if got := *(*int32)(col.PtrAt(0)); got != 0 {
		t.Fatalf("row 0 disturbed: %d", got)
	}
}

func TestColumnDropRuns(t *testing.T) {
	dropped := 0
	drop := func(p unsafe.Pointer) {
		dropped += int(*(*int32)(p))
	}

	col := NewColumn(reflect.TypeOf(int32(0)), drop, 4)
	col.AppendValue(reflect.ValueOf(int32(1)))
	col.AppendValue(reflect.ValueOf(int32(2)))
	col.AppendValue(reflect.ValueOf(int32(4)))

	col.SwapRemove(0, true)
	if dropped != 1 {
		t.Fatalf("expected drop of first element, got %d", dropped)
	}

	col.Set(0, reflect.ValueOf(int32(8)), true)
	if dropped != 1+4 {
		t.Fatalf("expected overwrite to drop prior value, got %d", dropped)
	}

	col.Clear(true)
	if dropped != 1+4+8+2 {
		t.Fatalf("expected clear to drop remaining elements, got %d", dropped)
	}
	if col.Len() != 0 {
		t.Fatalf("expected empty column, got %d", col.Len())
	}
}

func TestColumnSwapRemoveWithoutDestroySkipsDrop(t *testing.T) {
	dropped := 0
	col := NewColumn(reflect.TypeOf(int32(0)), func(unsafe.Pointer) { dropped++ }, 4)
	col.AppendValue(reflect.ValueOf(int32(7)))

	col.SwapRemove(0, false)
	if dropped != 0 {
		t.Fatalf("drop must not run when ownership moves, got %d calls", dropped)
	}
}

func TestColumnAppendFrom(t *testing.T) {
	src := NewColumn(reflect.TypeOf(position{}), nil, 2)
	dst := NewColumn(reflect.TypeOf(position{}), nil, 2)
	src.AppendValue(reflect.ValueOf(position{X: 3, Y: 4}))

	row := dst.AppendFrom(src, 0)
	if got := *(*position)(dst.PtrAt(row)); got.X != 3 || got.Y != 4 {
		t.Fatalf("unexpected copied value: %+v", got)
	}
}

func TestColumnTickMonotonic(t *testing.T) {
	col := NewColumn(reflect.TypeOf(int32(0)), nil, 2)
	col.Touch(5)
	col.Touch(3)
	if col.Tick() != 5 {
		t.Fatalf("ticks must only advance, got %d", col.Tick())
	}
}

func TestColumnZeroSizeElements(t *testing.T) {
	col := NewColumn(reflect.TypeOf(struct{}{}), nil, 2)
	for i := 0; i < 20; i++ {
		col.Append()
	}
	if col.Len() != 20 {
		t.Fatalf("expected 20 elements, got %d", col.Len())
	}
	col.SwapRemove(0, false)
	if col.Len() != 19 {
		t.Fatalf("expected 19 elements, got %d", col.Len())
	}
}
