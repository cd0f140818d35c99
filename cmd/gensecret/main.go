// Print random hex string to use as SECRET_KEY or SMS_SENDER_KEY
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultBytesLen = 32

func main() {
	n := pflag.IntP("bytes", "n", defaultBytesLen, "Number of random bytes")
	pflag.Parse()

	if *n <= 0 {
		fmt.Fprintln(os.Stderr, "bytes must be positive")
		os.Exit(1)
	}

	b := make([]byte, *n)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
