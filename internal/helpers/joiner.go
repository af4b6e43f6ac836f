package helpers

// This provides an efficient way to splice lots of string slices together.
// It avoids the cost of repeatedly reallocating as the buffer grows by
// measuring exactly how big the buffer should be and then allocating once.
// Rewrites copy large untouched gaps of a bundle between small replacements,
// so almost all of the output comes through here.
type Joiner struct {
	strings  []joinerString
	length   uint32
	lastByte byte
}

type joinerString struct {
	data   string
	offset uint32
}

func (j *Joiner) AddString(data string) {
	if len(data) == 0 {
		return
	}
	j.lastByte = data[len(data)-1]
	j.strings = append(j.strings, joinerString{data, j.length})
	j.length += uint32(len(data))
}

func (j *Joiner) LastByte() byte {
	return j.lastByte
}

func (j *Joiner) Length() uint32 {
	return j.length
}

func (j *Joiner) Done() string {
	if len(j.strings) == 1 {
		// No need to allocate if there was only a single string written
		return j.strings[0].data
	}
	buffer := make([]byte, j.length)
	for _, item := range j.strings {
		copy(buffer[item.offset:], item.data)
	}
	return string(buffer)
}
