package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/flashbots/namereg/client"
	"github.com/flashbots/namereg/content"
	"github.com/flashbots/namereg/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// KeyEnv is consulted for the private key when --key is not given.
const KeyEnv = "NAMEREG_KEY"

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// newStore builds the content store for --ipfs. Replaced in tests.
var newStore = func(apiURL string) content.Store {
	return content.NewIPFSStore(apiURL, nil)
}

type options struct {
	server     string
	user       string
	key        string
	adminToken string
	ipfs       string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "nameclient",
		Short:         "Publish and read signed name entries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", "localhost:8888", "Nameserver address")
	flags.StringVarP(&opts.user, "user", "u", "", "Username to sign as")
	flags.StringVarP(&opts.key, "key", "k", "", "Base64 private key (PKCS#8 or raw); falls back to $"+KeyEnv)
	flags.StringVar(&opts.adminToken, "admin-token", "", "Basic auth token for admin routes (user:pass)")
	flags.StringVar(&opts.ipfs, "ipfs", content.DefaultIPFSAPI, "IPFS HTTP API address")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(
		newKeygenCmd(),
		newRegisterCmd(opts),
		newKeyCmd(opts),
		newGetCmd(opts),
		newPostCmd(opts),
		newPublishCmd(opts),
		newFetchCmd(opts),
	)
	return root
}

func (o *options) client() *client.Client {
	return client.New(o.server, client.WithAdminToken(o.adminToken))
}

// privateKey resolves the signing key from --key, the environment, or a
// hidden terminal prompt.
func (o *options) privateKey(cmd *cobra.Command) (crypto.PrivateKey, error) {
	encoded := o.key
	if encoded == "" {
		encoded = os.Getenv(KeyEnv)
	}
	if encoded == "" {
		fd := int(os.Stdin.Fd())
		if !isTerminal(fd) {
			return nil, fmt.Errorf("no private key: pass --key or set %s", KeyEnv)
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Private key: ")
		raw, err := readPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		encoded = strings.TrimSpace(string(raw))
	}
	return crypto.ParsePrivateKey(encoded)
}

func (o *options) publisher(cmd *cobra.Command) (*client.Publisher, error) {
	if o.user == "" {
		return nil, errors.New("--user is required")
	}
	key, err := o.privateKey(cmd)
	if err != nil {
		return nil, err
	}
	return client.NewPublisher(o.client(), newStore(o.ipfs), o.user, key)
}

func readDocument(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return []byte(strings.Join(args, " ")), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}
