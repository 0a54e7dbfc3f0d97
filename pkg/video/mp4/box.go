package mp4

// BoxType is mpeg box type.
type BoxType [4]byte
