package heaptag_test

import (
	"fmt"

	"github.com/heaptag/heaptag"
)

func Example() {
	p := heaptag.Alloc(64)
	fmt.Printf("len=%d size=%d\n", len(p), heaptag.SizeOf(p))
	heaptag.Free(p)

	// Output:
	// len=64 size=112
}
