package analysis

// FrequencySource is anything that can fill a byte magnitude buffer
type FrequencySource interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
}

// VolumeSampler reduces a frequency source to one volume level in [0,1].
type VolumeSampler struct {
	node    FrequencySource
	buffer  []byte
	ceiling float64
}

// NewVolumeSampler allocates the sample buffer for node. ceiling is the byte
// value that maps to full volume (255 for the full analyser range).
func NewVolumeSampler(node FrequencySource, ceiling float64) *VolumeSampler {
	v := &VolumeSampler{node: node, ceiling: ceiling}
	if node != nil {
		v.buffer = make([]byte, node.FrequencyBinCount())
	}
	return v
}

// Ready reports whether both the node and its buffer are present
func (v *VolumeSampler) Ready() bool {
	return v != nil && v.node != nil && v.buffer != nil
}

// Volume reads the node and returns the scaled average magnitude
func (v *VolumeSampler) Volume() float64 {
	if !v.Ready() {
		return 0
	}
	v.node.ByteFrequencyData(v.buffer)
	return Scale(Average(v.buffer), 0, v.ceiling)
}

// Average is the arithmetic mean of data, 0 for an empty slice
func Average(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, d := range data {
		sum += float64(d)
	}
	return sum / float64(len(data))
}

// Scale maps value from [lo, hi] onto [0, 1], clamping both ends.
// A degenerate range yields 0.
func Scale(value, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	s := (value - lo) / (hi - lo)
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
