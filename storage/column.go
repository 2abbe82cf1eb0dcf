package storage

import (
	"fmt"
	"reflect"
	"unsafe"
)

const defaultColumnCapacity = 8

// NewColumn constructs a column for elements of the given type. The optional
// drop function runs on an element's slot right before the element is
// discarded.
func NewColumn(typ reflect.Type, drop func(unsafe.Pointer), capacity int) *Column {
	if capacity < defaultColumnCapacity {
		capacity = defaultColumnCapacity
	}
	data := reflect.MakeSlice(reflect.SliceOf(typ), capacity, capacity)
	return &Column{
		typ:  typ,
		size: typ.Size(),
		drop: drop,
		data: data,
		base: data.UnsafePointer(),
		cap:  capacity,
	}
}

// Column is a contiguous, type-erased array of fixed-layout elements. The
// backing array is allocated through reflect so the garbage collector sees
// elements at their real types; raw pointers handed out by PtrAt stay valid
// until the next append. Columns are not safe for concurrent mutation.
type Column struct {
	typ  reflect.Type
	size uintptr
	drop func(unsafe.Pointer)
	data reflect.Value
	base unsafe.Pointer
	len  int
	cap  int
	tick uint64
}

// Type returns the element type stored by the column.
func (c *Column) Type() reflect.Type {
	return c.typ
}

// Len returns the number of live elements.
func (c *Column) Len() int {
	return c.len
}

// Cap returns the currently allocated element capacity.
func (c *Column) Cap() int {
	return c.cap
}

// ElemSize returns the byte size of one element.
func (c *Column) ElemSize() uintptr {
	return c.size
}

// Tick returns the write tick most recently recorded against this column.
func (c *Column) Tick() uint64 {
	return c.tick
}

// Touch records a write tick. Ticks only move forward.
func (c *Column) Touch(tick uint64) {
	if tick > c.tick {
		c.tick = tick
	}
}

// PtrAt returns the address of the element at row. The caller guarantees
// row < Len(); the pointer is invalidated by the next append or removal.
func (c *Column) PtrAt(row int) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(row)*c.size)
}

// ValueAt returns an addressable reflect value for the element at row.
func (c *Column) ValueAt(row int) reflect.Value {
	if row < 0 || row >= c.len {
		panic(fmt.Sprintf("storage: row %d out of range [0,%d)", row, c.len))
	}
	return c.data.Index(row)
}

// Append adds a zero-valued element and returns its row.
func (c *Column) Append() int {
	c.ensure(c.len + 1)
	row := c.len
	c.len++
	return row
}

// AppendValue adds a copy of v, which must be assignable to the column's
// element type, and returns its row.
func (c *Column) AppendValue(v reflect.Value) int {
	row := c.Append()
	c.data.Index(row).Set(v)
	return row
}

// AppendFrom copies the element at srcRow of src onto the end of c. Both
// columns must store the same element type.
func (c *Column) AppendFrom(src *Column, srcRow int) int {
	row := c.Append()
	c.data.Index(row).Set(src.ValueAt(srcRow))
	return row
}

// Set overwrites the element at row. When destroy is true the previous value
// is dropped first.
func (c *Column) Set(row int, v reflect.Value, destroy bool) {
	if destroy && c.drop != nil {
		c.drop(c.PtrAt(row))
	}
	c.ValueAt(row).Set(v)
}

// SwapRemove discards the element at row by moving the final element into its
// place. When destroy is true the discarded element is dropped first. The
// vacated slot is zeroed so the backing array holds no dangling references.
func (c *Column) SwapRemove(row int, destroy bool) {
	if row < 0 || row >= c.len {
		panic(fmt.Sprintf("storage: row %d out of range [0,%d)", row, c.len))
	}
	if destroy && c.drop != nil {
		c.drop(c.PtrAt(row))
	}
	last := c.len - 1
	if row != last {
		c.data.Index(row).Set(c.data.Index(last))
	}
	c.data.Index(last).SetZero()
	c.len = last
}

// Clear discards every element, optionally dropping each one.
func (c *Column) Clear(destroy bool) {
	for i := c.len - 1; i >= 0; i-- {
		if destroy && c.drop != nil {
			c.drop(c.PtrAt(i))
		}
		c.data.Index(i).SetZero()
	}
	c.len = 0
}

func (c *Column) ensure(n int) {
	if n <= c.cap {
		return
	}
	newCap := c.cap * 2
	for newCap < n {
		newCap *= 2
	}
	data := reflect.MakeSlice(reflect.SliceOf(c.typ), newCap, newCap)
	reflect.Copy(data, c.data)
	c.data = data
	c.base = data.UnsafePointer()
	c.cap = newCap
}
