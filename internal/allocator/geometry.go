package allocator

import poolerrors "github.com/orizon-lang/slotpool/internal/errors"

// geometry is the derived, immutable-for-the-life-of-the-Pool byte
// layout computed once from a Config:
//
//	[ next-page pointer | left-align | (slot)* ]
//	slot = [ header | leftPad | userRegion(objectSize) | leftPad | interAlign? ]
//
// The interAlign region is omitted after the last slot on a page.
type geometry struct {
	headerBytes     uintptr
	leftAlignBytes  uintptr
	interAlignBytes uintptr
	slotStride      uintptr
	pageBytes       uintptr
	firstSlotOffset uintptr // offset of slot 0's header from page start
}

// newGeometry computes page geometry for cfg, failing with
// configuration-invalid if objectSize is too small or alignment is not
// a power of two (both are also checked in NewConfig, but this is the
// one place the spec grounds the failure in: geometry cannot be built).
func newGeometry(cfg Config) (geometry, error) {
	if cfg.ObjectSize < ptrSize {
		return geometry{}, poolerrors.ConfigurationInvalidErr("newGeometry", map[string]interface{}{
			"objectSize": cfg.ObjectSize,
			"minimum":    ptrSize,
		})
	}

	if cfg.Alignment > 1 && !isPowerOfTwo(cfg.Alignment) {
		return geometry{}, poolerrors.ConfigurationInvalidErr("newGeometry", map[string]interface{}{
			"alignment": cfg.Alignment,
		})
	}

	hdr := headerSize(cfg)

	var leftAlign, interAlign uintptr
	if cfg.Alignment > 1 {
		prefix := ptrSize + hdr + cfg.LeftPadBytes
		leftAlign = negMod(prefix, cfg.Alignment)

		interPrefix := cfg.ObjectSize + hdr + 2*cfg.LeftPadBytes
		interAlign = negMod(interPrefix, cfg.Alignment)
	}

	slotStride := hdr + cfg.LeftPadBytes + cfg.ObjectSize + cfg.LeftPadBytes + interAlign
	pageBytes := ptrSize + leftAlign + uintptr(cfg.ObjectsPerPage)*slotStride - interAlign

	return geometry{
		headerBytes:     hdr,
		leftAlignBytes:  leftAlign,
		interAlignBytes: interAlign,
		slotStride:      slotStride,
		pageBytes:       pageBytes,
		firstSlotOffset: ptrSize + leftAlign,
	}, nil
}

// negMod computes (-v) mod m for unsigned v, m, i.e. the number of
// bytes needed to round v up to the next multiple of m.
func negMod(v, m uintptr) uintptr {
	r := v % m
	if r == 0 {
		return 0
	}

	return m - r
}

// headerOffset returns the byte offset of slot i's header from the
// start of the page.
func (g geometry) headerOffset(i int) uintptr {
	return g.firstSlotOffset + uintptr(i)*g.slotStride
}

// userOffset returns the byte offset of slot i's user region from the
// start of the page.
func (g geometry) userOffset(cfg Config, i int) uintptr {
	return g.headerOffset(i) + g.headerBytes + cfg.LeftPadBytes
}

// padLeftOffset and padRightOffset return the offsets of the pad bands
// bracketing slot i's user region.
func (g geometry) padLeftOffset(i int) uintptr {
	return g.headerOffset(i) + g.headerBytes
}

func (g geometry) padRightOffset(cfg Config, i int) uintptr {
	return g.userOffset(cfg, i) + cfg.ObjectSize
}

// interAlignOffset returns the offset of the inter-alignment band
// following slot i (its size is interAlignBytes), or ok=false if i is
// the last slot on a page (no trailing inter-alignment exists).
func (g geometry) interAlignOffset(cfg Config, objectsPerPage, i int) (offset uintptr, ok bool) {
	if i == objectsPerPage-1 {
		return 0, false
	}

	return g.padRightOffset(cfg, i) + cfg.LeftPadBytes, true
}

// slotIndexForUserOffset resolves a byte offset from the page start to
// a slot index, reporting ok=false unless the offset falls exactly on a
// slot's user-region start. This is the release-path boundary and
// alignment check from spec.md: offset relative to the first user
// region must be an exact multiple of slotStride.
func (g geometry) slotIndexForUserOffset(cfg Config, offset uintptr) (index int, ok bool) {
	first := g.firstSlotOffset + g.headerBytes + cfg.LeftPadBytes
	if offset < first {
		return 0, false
	}

	rel := offset - first
	if rel%g.slotStride != 0 {
		return 0, false
	}

	idx := rel / g.slotStride
	if idx >= uintptr(cfg.ObjectsPerPage) {
		return 0, false
	}

	return int(idx), true
}
