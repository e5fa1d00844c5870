// Command credctl is an operator CLI for the credential API: decode and
// verify share tokens locally, scan QR images, and drive the bulk endpoints
// of a running server.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
