package glb

// Alignment is the byte boundary every buffer view and chunk is padded to.
const Alignment = 4

// PaddedSize rounds n up to the next multiple of Alignment.
func PaddedSize(n int) int {
	return (n + Alignment - 1) / Alignment * Alignment
}

// Pad returns data padded to Alignment with the given fill byte.
// The input slice is returned unchanged when it is already aligned.
func Pad(data []byte, fill byte) []byte {
	size := PaddedSize(len(data))
	if size == len(data) {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	for i := len(data); i < size; i++ {
		out[i] = fill
	}
	return out
}

// PadString converts s to bytes padded with ASCII spaces, as required for JSON chunks.
func PadString(s string) []byte {
	return Pad([]byte(s), ' ')
}
