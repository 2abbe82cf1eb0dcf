package ecs

import "math/bits"

const maskWords = MaxComponentTypes / 64

// componentMask is a fixed-width bitset over component type IDs. Masks are
// comparable and serve as archetype keys, so two component sets with the same
// members always produce the same key regardless of insertion order.
type componentMask [maskWords]uint64

func maskOf(ids ...ComponentTypeID) componentMask {
	var m componentMask
	for _, id := range ids {
		m.set(id)
	}
	return m
}

func (m *componentMask) set(id ComponentTypeID) {
	m[id>>6] |= 1 << (id & 63)
}

func (m *componentMask) clear(id ComponentTypeID) {
	m[id>>6] &^= 1 << (id & 63)
}

func (m componentMask) has(id ComponentTypeID) bool {
	return m[id>>6]&(1<<(id&63)) != 0
}

func (m componentMask) or(o componentMask) componentMask {
	for i := range m {
		m[i] |= o[i]
	}
	return m
}

func (m componentMask) andNot(o componentMask) componentMask {
	for i := range m {
		m[i] &^= o[i]
	}
	return m
}

// containsAll reports whether every bit of o is present in m.
func (m componentMask) containsAll(o componentMask) bool {
	for i := range m {
		if m[i]&o[i] != o[i] {
			return false
		}
	}
	return true
}

// intersects reports whether m and o share at least one bit.
func (m componentMask) intersects(o componentMask) bool {
	for i := range m {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (m componentMask) isZero() bool {
	for i := range m {
		if m[i] != 0 {
			return false
		}
	}
	return true
}

func (m componentMask) count() int {
	n := 0
	for i := range m {
		n += bits.OnesCount64(m[i])
	}
	return n
}

// ids appends the set bits in ascending order.
func (m componentMask) ids(dst []ComponentTypeID) []ComponentTypeID {
	for w, word := range m {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			dst = append(dst, ComponentTypeID(w<<6|bit))
			word &= word - 1
		}
	}
	return dst
}
