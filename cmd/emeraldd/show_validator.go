package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/emerald-consensus/emerald/crypto"
)

// newShowValidatorCmd generates (or, given --key-hex, loads) a validator
// keypair and prints its derived address, matching the teacher's own
// main.go fallback of calling crypto.NewDefaultSigner() when no node ID
// is supplied, now surfaced as its own operator-facing command.
func newShowValidatorCmd() *cobra.Command {
	var keyHex string

	cmd := &cobra.Command{
		Use:   "show-validator",
		Short: "Print a validator's public key and derived address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var signer *crypto.DefaultSigner
			if keyHex == "" {
				s, err := crypto.NewDefaultSigner()
				if err != nil {
					return fmt.Errorf("generate signer: %w", err)
				}
				signer = s
			} else {
				kp, err := keyPairFromHex(keyHex)
				if err != nil {
					return fmt.Errorf("load key: %w", err)
				}
				s, err := crypto.NewDefaultSignerFromKeyPair(kp)
				if err != nil {
					return fmt.Errorf("build signer: %w", err)
				}
				signer = s
			}

			fmt.Fprintf(cmd.OutOrStdout(), "public_key: 0x%x\n", signer.PublicKey())
			fmt.Fprintf(cmd.OutOrStdout(), "address:    %s\n", signer.Address())
			return nil
		},
	}

	cmd.Flags().StringVar(&keyHex, "key-hex", "", "hex-encoded private key (generates a random one if omitted)")
	return cmd
}

func keyPairFromHex(s string) (*crypto.KeyPair, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex private key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return &crypto.KeyPair{Private: priv, Public: priv.PubKey()}, nil
}
