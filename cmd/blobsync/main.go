// Command blobsync uploads the files of a local directory to an object-storage container.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], newApp(os.Stdout, os.Stderr)))
}
