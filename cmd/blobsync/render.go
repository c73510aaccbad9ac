package main

import (
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

// render prints events until the channel is closed.
func render(w io.Writer, events <-chan notify.Event) {
	for e := range events {
		switch e.Kind {
		case notify.KindProgress:
			fmt.Fprintf(w, "[%6.2f%%]\n", e.Percent)
		case notify.KindError:
			fmt.Fprintf(w, "error: %s\n", e.Message)
		default:
			fmt.Fprintln(w, e.Message)
		}
	}
}
