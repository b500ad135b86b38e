package chunk

// NewColor packs an RGB color into the 5-6-5 voxel value decoded by the
// renderer: red in the low 5 bits, green in the middle 6, blue in the high
// 5. Inputs are masked, not scaled; pass 0-31 for red/blue and 0-63 for
// green.
func NewColor(r, g, b uint8) uint16 {
	return uint16(r&0x1F) | uint16(g&0x3F)<<5 | uint16(b&0x1F)<<11
}
