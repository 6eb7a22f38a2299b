//go:build linux

// Linux allocation path for rxbuf.Pool, adapted from the teacher's
// linuxAlloc/linuxRelease (core/buffer/bufferpool_linux.go): large
// slot pools back their slabs with a hugepage mmap instead of the Go
// heap, falling back to a normal heap allocation if MAP_HUGETLB is
// unavailable. Only worth doing above a threshold where hugepage
// rounding wouldn't waste most of the mapping.
package rxbuf

import "syscall"

const hugePageThreshold = 64 * 1024
const hugePageSize = 2 << 20

// newSlot allocates one slot buffer, using a hugepage mapping for
// slot sizes large enough to make that worthwhile.
func (p *Pool) newSlot() []byte {
	if p.slotSize < hugePageThreshold {
		return make([]byte, p.slotSize)
	}
	length := ((p.slotSize + hugePageSize - 1) / hugePageSize) * hugePageSize
	data, err := syscall.Mmap(-1, 0, length,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANONYMOUS|syscall.MAP_PRIVATE|syscall.MAP_HUGETLB)
	if err != nil {
		return make([]byte, p.slotSize)
	}
	return data[:p.slotSize]
}
