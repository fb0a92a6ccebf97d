package hc

import (
	"slices"
	"sync"
)

// PathPair is a source file and the replica written for it.
type PathPair struct {
	Source string
	Dest   string
}

// Conclusion aggregates the outcome of one discovery and copy run.
// All methods are safe for concurrent use.
type Conclusion struct {
	mu         sync.Mutex
	totalCount int
	totalSize  FileSize
	errors     []string
	paths      []PathPair
}

func NewConclusion() *Conclusion {
	return &Conclusion{}
}

// AddCount records n discovered files.
func (c *Conclusion) AddCount(n int) {
	c.mu.Lock()
	c.totalCount += n
	c.mu.Unlock()
}

// AddSize records n discovered bytes. The derived units are refreshed by Finish.
func (c *Conclusion) AddSize(n int64) {
	if n < 0 {
		return
	}
	c.mu.Lock()
	c.totalSize.Add(uint64(n))
	c.mu.Unlock()
}

func (c *Conclusion) AddError(msg string) {
	c.mu.Lock()
	c.errors = append(c.errors, msg)
	c.mu.Unlock()
}

// AddPath records a successfully copied file.
func (c *Conclusion) AddPath(source, dest string) {
	c.mu.Lock()
	c.paths = append(c.paths, PathPair{Source: source, Dest: dest})
	c.mu.Unlock()
}

// Finish refreshes the derived size units. Call it once all workers are done.
func (c *Conclusion) Finish() {
	c.mu.Lock()
	c.totalSize.Update()
	c.mu.Unlock()
}

// Report is a point-in-time copy of a Conclusion.
type Report struct {
	TotalCount int
	TotalSize  FileSize
	ErrorCount int
	Errors     []string
	Paths      []PathPair
}

func (c *Conclusion) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Report{
		TotalCount: c.totalCount,
		TotalSize:  c.totalSize,
		ErrorCount: len(c.errors),
		Errors:     slices.Clone(c.errors),
		Paths:      slices.Clone(c.paths),
	}
}
