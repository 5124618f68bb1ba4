// Command nameclient publishes and reads documents through a nameserver.
//
// # Commands
//
//	nameclient keygen
//	nameclient register alice --public-key=<base64> --admin-token=admin:secret
//	nameclient register icefox --generate --admin-token=admin:secret
//	nameclient key alice
//	nameclient get conversation
//	nameclient post conversation QmHash --user=icefox
//	echo "hello" | nameclient publish conversation --user=icefox
//	nameclient fetch conversation
//
// The private key is taken from --key, then NAMEREG_KEY, then prompted for
// on the terminal. Documents are stored on the IPFS node given by --ipfs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
