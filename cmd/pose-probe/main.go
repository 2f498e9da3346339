// pose-probe subscribes to the relay's output channels and summarizes
// the traffic, which makes it the quickest way to verify an end-to-end
// setup without a real consumer attached.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pebbe/zmq4"

	"pose-relay-go/internal/types"
)

func main() {
	var (
		previewEndpoint = flag.String("preview", "tcp://127.0.0.1:6001", "Preview endpoint to subscribe to")
		poseEndpoint    = flag.String("pose", "tcp://127.0.0.1:6002", "Pose endpoint to subscribe to")
		limit           = flag.Int("limit", 10, "Number of preview frames to report before exiting (0 = forever)")
	)
	flag.Parse()

	previewSub, err := subscribe(*previewEndpoint)
	if err != nil {
		log.Fatalf("subscribe preview: %v", err)
	}
	defer previewSub.Close()
	poseSub, err := subscribe(*poseEndpoint)
	if err != nil {
		log.Fatalf("subscribe pose: %v", err)
	}
	defer poseSub.Close()

	poller := zmq4.NewPoller()
	poller.Add(previewSub, zmq4.POLLIN)
	poller.Add(poseSub, zmq4.POLLIN)

	previews := 0
	poses := 0
	for {
		if *limit > 0 && previews >= *limit {
			fmt.Printf("summary: previews=%d poses=%d\n", previews, poses)
			return
		}
		ready, err := poller.Poll(100 * time.Millisecond)
		if err != nil {
			log.Fatalf("poll: %v", err)
		}
		for _, polled := range ready {
			parts, err := polled.Socket.RecvMessageBytes(0)
			if err != nil {
				log.Fatalf("recv: %v", err)
			}
			if len(parts) != 2 {
				log.Printf("skipping message with %d parts", len(parts))
				continue
			}
			switch polled.Socket {
			case previewSub:
				var meta types.PreviewMeta
				if err := json.Unmarshal(parts[0], &meta); err != nil {
					log.Printf("bad preview meta: %v", err)
					continue
				}
				fmt.Printf("preview: %dx%d ts=%.3f jpeg=%d bytes\n", meta.W, meta.H, meta.TS, len(parts[1]))
				previews++
			case poseSub:
				var meta types.PoseMeta
				if err := json.Unmarshal(parts[0], &meta); err != nil {
					log.Printf("bad pose meta: %v", err)
					continue
				}
				set, err := types.DecodeLandmarks(parts[1])
				if err != nil {
					log.Printf("bad pose payload: %v", err)
					continue
				}
				if len(set) != meta.Count {
					log.Printf("pose count mismatch: meta=%d payload=%d", meta.Count, len(set))
					continue
				}
				first := set[0]
				fmt.Printf("pose: count=%d first=(%.3f, %.3f, %.3f) vis=%.2f\n",
					meta.Count, first.X, first.Y, first.Z, first.Visibility)
				poses++
			}
		}
	}
}

func subscribe(endpoint string) (*zmq4.Socket, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetSubscribe(""); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return socket, nil
}
