package hc

import "fmt"

// FileSize carries a byte count together with its truncated KB/MB/GB
// derivatives (base 1024). The derivatives are only refreshed by Update.
type FileSize struct {
	Bytes uint64
	KB    uint64
	MB    uint64
	GB    uint64
}

func NewFileSize(bytes uint64) FileSize {
	s := FileSize{Bytes: bytes}
	s.Update()
	return s
}

func (s *FileSize) Add(n uint64) {
	s.Bytes += n
}

// Update recomputes the derived units from Bytes.
func (s *FileSize) Update() {
	s.KB = s.Bytes / 1024
	s.MB = s.KB / 1024
	s.GB = s.MB / 1024
}

// String renders the size in the largest non-zero unit. Gigabytes keep two
// decimals; the smaller units are whole numbers.
func (s FileSize) String() string {
	switch {
	case s.GB != 0:
		return fmt.Sprintf("%.2f GB", float64(s.MB)/1024)
	case s.MB != 0:
		return fmt.Sprintf("%d MB", s.MB)
	case s.KB != 0:
		return fmt.Sprintf("%d KB", s.KB)
	default:
		return fmt.Sprintf("%d Bytes", s.Bytes)
	}
}
