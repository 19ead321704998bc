package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"segfetch/internal/verify"
)

func newHashCmd() *cobra.Command {
	var (
		algorithm string
		check     string
	)

	cmd := &cobra.Command{
		Use:   "hash FILE",
		Short: "Print or check the digest of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algo, err := verify.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			if check != "" {
				ok, err := verify.Verify(args[0], check, algo)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %s checksum mismatch", args[0], algo)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
				return nil
			}

			digest, err := verify.FileDigest(args[0], algo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", digest, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(verify.SHA256), "Digest algorithm: SHA-256, SHA-1 or MD5")
	cmd.Flags().StringVar(&check, "check", "", "Expected hex digest; exit non-zero on mismatch")
	return cmd
}
