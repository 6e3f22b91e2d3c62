package volume

// memoryHandle backs the in-memory volume variant used by tests and
// local development; no network client is constructed.
type memoryHandle struct {
	vol Volume
}

func NewMemoryHandle(vol Volume) Handle {
	return &memoryHandle{vol: vol}
}

func (h *memoryHandle) Volume() Volume    { return h.vol }
func (h *memoryHandle) RootURI() string   { return "mem://" + h.vol.Ident }
