// Command slabdemo exercises a single slab context through a churn of
// allocate/free traffic and prints the registry's stats, mirroring
// dbm/crash/main.go's plain flag+log shape.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"

	"modernc.org/slab/registry"
	"modernc.org/slab/slab"
)

func main() {
	var (
		blockSize = flag.Int("block-size", 4096, "block size in bytes")
		chunkSize = flag.Int("chunk-size", 64, "chunk size in bytes")
		n         = flag.Int("n", 10000, "number of alloc/free operations to churn through")
		checking  = flag.Bool("checking", true, "enable memory checking (Check + canaries)")
	)
	flag.Parse()
	log.SetFlags(log.Flags() | log.Lshortfile)

	reg := registry.New()
	ctx, err := reg.Create(nil, "demo", *blockSize, *chunkSize, &slab.Options{MemoryChecking: *checking})
	if err != nil {
		log.Fatal(err)
	}

	var live [][]byte
	for i := 0; i < *n; i++ {
		if len(live) == 0 || rand.Intn(2) == 0 {
			p, err := slab.Alloc(ctx, *chunkSize)
			if err != nil {
				log.Fatal(err)
			}
			if p == nil {
				log.Printf("alloc %d: host arena exhausted", i)
				continue
			}
			live = append(live, p)
			continue
		}
		j := rand.Intn(len(live))
		if err := slab.Free(live[j]); err != nil {
			log.Fatal(err)
		}
		live[j] = live[len(live)-1]
		live = live[:len(live)-1]
	}

	if *checking {
		if clean, err := slab.Check(ctx, func(e error) bool {
			log.Printf("check: %v", e)
			return true
		}); err != nil {
			log.Fatal(err)
		} else if !clean {
			log.Println("check: found inconsistencies, see above")
		}
	}

	if err := reg.Stats(os.Stdout); err != nil {
		log.Fatal(err)
	}
}
