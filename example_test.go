package tomsychapel_test

import (
	"fmt"
	"log"

	"github.com/TomsyPaul/tomsychapel"
	"github.com/TomsyPaul/tomsychapel/comm"
	"github.com/TomsyPaul/tomsychapel/slab"
)

// Example_sharedHeap moves an allocator onto a shared heap.
func Example_sharedHeap() {
	alloc, err := slab.New(slab.Config{NArenas: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.Close()

	seg, err := comm.NewSegment(64 << 20)
	if err != nil {
		log.Fatal(err)
	}
	defer seg.Close()

	l := tomsychapel.New(alloc.MainThread(), seg)
	if err := l.Init(); err != nil {
		log.Fatal(err)
	}
	defer l.Exit()

	p, err := alloc.NewThread().Malloc(100)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("mode:", l.Mode())
	fmt.Println("in heap:", l.Heap().Contains(p))
	// Output:
	// mode: shared-heap
	// in heap: true
}

// Example_unconfigured leaves the allocator on its own chunks.
func Example_unconfigured() {
	alloc, err := slab.New(slab.Config{NArenas: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.Close()

	l := tomsychapel.New(alloc.MainThread(), comm.NoHeap{})
	if err := l.Init(); err != nil {
		log.Fatal(err)
	}
	defer l.Exit()

	fmt.Println("mode:", l.Mode())
	fmt.Println("heap:", l.Heap() == nil)
	// Output:
	// mode: unconfigured
	// heap: true
}
