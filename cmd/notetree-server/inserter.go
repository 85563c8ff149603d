package main

import (
	"fmt"
	"time"

	"github.com/Bren2010/notetree/tree/accumulator"
)

type InsertRequest struct {
	Leaf []byte
	Resp chan<- InsertResponse
}

type InsertResponse struct {
	Receipt *accumulator.Receipt
	Err     error
}

// inserter is a goroutine that receives insertion requests over `ch`, adds the
// requested leaf to the tree, and responds with the new tree root. It is the
// only writer to the tree, which gives appends a single global order.
func inserter(acc *accumulator.Accumulator, ch <-chan InsertRequest) {
	for req := range ch {
		start := time.Now()
		receipt, err := acc.Append(req.Leaf)
		insertOps.WithLabelValues(fmt.Sprint(err == nil)).Inc()
		insertDur.Observe(float64(time.Since(start).Microseconds()))

		select {
		case req.Resp <- InsertResponse{receipt, err}:
		default:
		}
	}
}
