package util

import (
	"strings"

	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport/tls"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by skv
	EnvPrefix = "skv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "localhost:5000", WrapString("The address of the sKV server"))

	key = "id"
	cmd.PersistentFlags().String(key, "", WrapString("The client identifier sent with CONNECT (letters, digits and spaces). A random identifier is used if empty"))

	key = "ca-file"
	cmd.PersistentFlags().String(key, "", WrapString("PEM file with the certificate(s) used to verify the server. The system roots are used if empty"))

	key = "server-name"
	cmd.PersistentFlags().String(key, "", WrapString("Name used to verify the server certificate (defaults to the host of the endpoint)"))

	key = "insecure-skip-hostname"
	cmd.PersistentFlags().Bool(key, false, WrapString("Verify the certificate chain but not the hostname of the server"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client (0 = no timeout)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from .env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:             viper.GetString("endpoint"),
		ClientID:             viper.GetString("id"),
		CAFile:               viper.GetString("ca-file"),
		ServerName:           viper.GetString("server-name"),
		InsecureSkipHostname: viper.GetBool("insecure-skip-hostname"),
		TimeoutSecond:        viper.GetInt("timeout"),
	}
}

// NewClient creates a client from the viper configuration
func NewClient(config common.ClientConfig) *client.Client {
	return client.NewClient(config, tls.NewClientConnector())
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
