// Command sparkles-bench measures recorder hot-path overhead: N
// instant events per goroutine across a configurable number of
// goroutines, reporting wall time per event. It is a quick, human-run
// check that the steady-state path stays cheap; it measures time only,
// not allocations.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sparkles-rs/sparkles"
)

var eventHash = hashName("bench.event")

func hashName(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func main() {
	var (
		flagEvents    = flag.Int("n", 1_000_000, "events per goroutine")
		flagGoroutines = flag.Int("goroutines", 1, "number of concurrent recording goroutines")
	)
	flag.Parse()

	guard, err := sparkles.Init(sparkles.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}
	defer guard.Close()

	var wg sync.WaitGroup
	start := time.Now()
	for g := 0; g < *flagGoroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sparkles.SetCurrentThreadName(fmt.Sprintf("bench-%d", id))
			for i := 0; i < *flagEvents; i++ {
				sparkles.InstantEvent(eventHash, "bench.event")
			}
		}(g)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := int64(*flagEvents) * int64(*flagGoroutines)
	fmt.Printf("%d events across %d goroutines in %s (%.1f ns/event)\n",
		total, *flagGoroutines, elapsed, float64(elapsed.Nanoseconds())/float64(total))
}
