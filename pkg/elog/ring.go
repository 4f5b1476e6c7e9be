// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package elog

import (
	"container/ring"
	"sync"
)

// Ring is a fixed-size in-memory log sink that keeps the most recent log
// lines, readable with Dump. Neither command registers one.
type Ring struct {
	size int

	mu sync.Mutex
	r  *ring.Ring
}

func NewRing(size int) *Ring {
	return &Ring{r: ring.New(size), size: size}
}

func (l *Ring) Println(v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.r = l.r.Next()
	l.r.Value = v
}

// Dump returns the retained log messages, oldest first.
func (l *Ring) Dump() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := make([]string, 0, l.size)
	l.r.Next().Do(func(v interface{}) {
		if v == nil {
			return
		}
		for _, part := range v.([]interface{}) {
			res = append(res, part.(string))
		}
	})
	return res
}
