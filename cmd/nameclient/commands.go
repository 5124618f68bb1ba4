package main

import (
	"context"
	"fmt"
	"time"

	"github.com/flashbots/namereg/client"
	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
	"github.com/spf13/cobra"
)

func describe(msg *protocol.UpdateMessage) string {
	return fmt.Sprintf("Message set by %s on %s to document %s",
		msg.User, msg.UTC.Format(time.RFC3339), msg.NewContents)
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			encoded, err := crypto.MarshalPrivateKey(priv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public_key: %s\nprivate_key: %s\n", pub.Base64(), encoded)
			return nil
		},
	}
}

func newRegisterCmd(opts *options) *cobra.Command {
	var (
		publicKey string
		generate  bool
	)

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register a user's public key (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			username := args[0]
			c := opts.client()

			if generate {
				priv, err := c.GenerateUser(ctx, username)
				if err != nil {
					return err
				}
				encoded, err := crypto.MarshalPrivateKey(priv)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\nprivate_key: %s\n", username, encoded)
				return nil
			}

			var pub crypto.PublicKey
			var err error
			if publicKey != "" {
				pub, err = crypto.NewPublicKeyFromBase64(publicKey)
			} else {
				var priv crypto.PrivateKey
				if priv, err = opts.privateKey(cmd); err == nil {
					pub, err = priv.PublicKey()
				}
			}
			if err != nil {
				return err
			}

			if err := c.RegisterUser(ctx, username, pub); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with key %s\n", username, pub.Base64())
			return nil
		},
	}

	cmd.Flags().StringVar(&publicKey, "public-key", "", "Base64 public key to register")
	cmd.Flags().BoolVar(&generate, "generate", false, "Let the server generate the keypair")
	cmd.MarkFlagsMutuallyExclusive("public-key", "generate")
	return cmd
}

func newKeyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "key <username>",
		Short: "Show a user's registered public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			pub, err := opts.client().GetKey(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pub.Base64())
			return nil
		},
	}
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show the current entry for a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			msg, err := opts.client().GetUpdate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(msg))
			return nil
		},
	}
}

func newPostCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "post <name> <content-ref>",
		Short: "Point a name at an existing content reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			p, err := opts.publisher(cmd)
			if err != nil {
				return err
			}
			msg, err := p.Point(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(msg))
			return nil
		},
	}
}

func newPublishCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <name> [text|-]",
		Short: "Store a document and point a name at it",
		Long:  "Store a document and point a name at it. The document is read from stdin when no text is given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			p, err := opts.publisher(cmd)
			if err != nil {
				return err
			}
			data, err := readDocument(cmd, args[1:])
			if err != nil {
				return err
			}
			msg, err := p.Publish(ctx, args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(msg))
			return nil
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name>",
		Short: "Retrieve the document a name points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			msg, data, err := client.Fetch(ctx, opts.client(), newStore(opts.ipfs), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), describe(msg))
			cmd.OutOrStdout().Write(data)
			return nil
		},
	}
}
