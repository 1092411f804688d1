package ase

// SliceKey is one keyframe of a Slice: bounds plus optional 9-slice center
// and pivot, in effect from Frame onward until the next key.
type SliceKey struct {
	Frame int
	X, Y  int32
	W, H  uint32

	Has9Slices bool
	CX, CY     int32
	CW, CH     uint32

	HasPivot bool
	PX, PY   int32
}

// Slice is a named region of the canvas with one or more keyframes, keyed
// by frame.
type Slice struct {
	Name     string
	Keys     []SliceKey // kept in ascending Frame order
	UserData UserData
}

// AddKey inserts key in ascending-Frame order, replacing any existing key
// at the same frame.
func (s *Slice) AddKey(key SliceKey) {
	for i, k := range s.Keys {
		if k.Frame == key.Frame {
			s.Keys[i] = key
			return
		}
		if k.Frame > key.Frame {
			s.Keys = append(s.Keys, SliceKey{})
			copy(s.Keys[i+1:], s.Keys[i:])
			s.Keys[i] = key
			return
		}
	}
	s.Keys = append(s.Keys, key)
}

// KeyAt returns the key with the greatest Frame <= frame, and whether one
// exists.
func (s Slice) KeyAt(frame int) (SliceKey, bool) {
	found, ok := SliceKey{}, false
	for _, k := range s.Keys {
		if k.Frame <= frame {
			found, ok = k, true
		} else {
			break
		}
	}
	return found, ok
}

// has9Slices reports whether any key uses a 9-slice center, which is what
// decides the slice-level "has 9-slice" flag on the wire.
func (s Slice) has9Slices() bool {
	for _, k := range s.Keys {
		if k.Has9Slices {
			return true
		}
	}
	return false
}

// hasPivot reports whether any key uses a pivot, which is what decides the
// slice-level "has pivot" flag on the wire.
func (s Slice) hasPivot() bool {
	for _, k := range s.Keys {
		if k.HasPivot {
			return true
		}
	}
	return false
}
