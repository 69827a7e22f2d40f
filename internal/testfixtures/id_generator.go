package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator hands out predictable identifiers of the form prefix-N, so
// assertions can name the event or session a service just created.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator defaults an empty prefix to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.issued.Add(1), 10)
}

// NextFunc adapts Next to the generator fields on service deps.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() uint64 {
	return g.issued.Load()
}
