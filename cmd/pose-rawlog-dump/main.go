// pose-rawlog-dump prints the records of a raw frame log written with
// the -raw-log flag of pose-relay.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"pose-relay-go/internal/output"
)

var errDone = errors.New("done")

func main() {
	var (
		path  = flag.String("path", "", "Path to raw log .bin file")
		limit = flag.Int("limit", 10, "Number of records to dump (0 = all)")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	count := 0
	err := output.ReadRawLog(*path, func(rec output.Record) error {
		if *limit > 0 && count >= *limit {
			return errDone
		}
		fmt.Printf("record %d timestamp=%s meta=%s payload=%d bytes\n",
			count,
			time.Unix(0, rec.TS).Format(time.RFC3339Nano),
			string(rec.Meta),
			len(rec.Payload))
		count++
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		log.Fatalf("read raw log: %v", err)
	}
	fmt.Printf("summary: %d records shown\n", count)
}
