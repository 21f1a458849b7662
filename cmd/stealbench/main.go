// Command stealbench runs work-stealing pool scenarios and reports wall time
// against the ideal schedule.
//
// Usage:
//
//	stealbench run --threads 4 --tasks 100 --task-duration 10ms
//	stealbench run --skew --routing affinity --metrics-addr :2112
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
