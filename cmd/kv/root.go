package kv

import (
	"context"
	"errors"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		Long:              `Perform key-value store operations. Every command opens its own session: it connects, runs the command and disconnects again. The flags can also be set via environment variables in the format SKV_<flag> (e.g. SKV_CA_FILE=cert.pem)`,
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient binds the flags and configures logging
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// withSession connects a client, runs fn and disconnects again.
// If the server already dropped the connection the disconnect is skipped.
func withSession(ctx context.Context, fn func(c *client.Client) error) (err error) {
	c := util.NewClient(*util.GetClientConfig())
	if err := c.Connect(ctx); err != nil {
		return err
	}

	defer func() {
		if !c.Connected() {
			return
		}
		if disconnectErr := c.Disconnect(); disconnectErr != nil && err == nil {
			err = disconnectErr
		}
	}()

	return fn(c)
}

// isRejection reports whether err is an answer of the server rather than a failure
func isRejection(err error) bool {
	return errors.Is(err, client.ErrKeyNotFound)
}
