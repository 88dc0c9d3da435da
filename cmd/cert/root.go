package cert

import (
	"fmt"
	"time"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/transport/tls"
	"github.com/spf13/cobra"
)

var (
	certFile string
	keyFile  string
	hosts    []string
	validFor time.Duration

	// CertCmd generates a self-signed certificate for the server
	CertCmd = &cobra.Command{
		Use:   "cert",
		Short: "Generate a self-signed TLS certificate",
		Long:  `Generate a self-signed ECDSA P-256 certificate and key as PEM files. Start the server with --cert-file and --key-file and pass the certificate to clients with --ca-file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tls.WriteSelfSigned(certFile, keyFile, hosts, validFor); err != nil {
				return err
			}
			fmt.Printf("certificate written to %s, key written to %s\n", certFile, keyFile)
			return nil
		},
	}
)

func init() {
	CertCmd.Flags().StringVar(&certFile, "cert-file", "cert.pem", cmdUtil.WrapString("Where to write the certificate"))
	CertCmd.Flags().StringVar(&keyFile, "key-file", "key.pem", cmdUtil.WrapString("Where to write the private key"))
	CertCmd.Flags().StringSliceVar(&hosts, "hosts", tls.DefaultHosts, cmdUtil.WrapString("DNS names and IP addresses the certificate is valid for"))
	CertCmd.Flags().DurationVar(&validFor, "valid-for", tls.DefaultCertValidity, cmdUtil.WrapString("Lifetime of the certificate"))
}
