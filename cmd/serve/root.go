package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/identity"
	"github.com/ValentinKolb/sKV/lib/ratelimit"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport/tls"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the sKV server",
		Long:    `Start the sKV server with the specified configuration. The configuration can be set via command line flags, a YAML config file or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_RATE_LIMIT=20)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address on which the TLS listener will listen"))

	key = "cert-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("PEM file with the server certificate. If cert-file and key-file are empty a self-signed certificate is generated"))

	key = "key-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("PEM file with the private key of the server certificate"))

	key = "accept-timeout"
	ServeCmd.PersistentFlags().Duration(key, common.DefaultAcceptTimeout, cmdUtil.WrapString("How long a single accept call may block. Bounds how fast the server notices a shutdown"))

	key = "handshake-timeout"
	ServeCmd.PersistentFlags().Duration(key, common.DefaultHandshakeTimeout, cmdUtil.WrapString("Time a new connection has to complete the TLS handshake and send CONNECT"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read and write timeout per frame in seconds. 0 waits forever"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Int(key, common.DefaultRateLimit, cmdUtil.WrapString("Number of requests a client identifier may send per rate-window"))

	key = "rate-window"
	ServeCmd.PersistentFlags().Duration(key, common.DefaultRateWindow, cmdUtil.WrapString("Length of the sliding rate limit window"))

	key = "rate-sweep-interval"
	ServeCmd.PersistentFlags().Duration(key, common.DefaultRateSweepInterval, cmdUtil.WrapString("How often idle client identifiers are dropped from the rate limiter. 0 disables the sweep"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Uint32(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("Largest accepted frame payload in bytes"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP admin endpoint serving /healthz, /stats and /metrics (e.g. localhost:5001). Disabled if empty"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, common.DefaultLogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "config"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional YAML config file, keys are the flag names"))

	key = "dump-config"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Print the effective configuration as YAML and exit"))
}

// processConfig reads the configuration from the command line flags, the config file and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the config file (flags and env vars take precedence)
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.CertFile = viper.GetString("cert-file")
	serveCmdConfig.KeyFile = viper.GetString("key-file")
	serveCmdConfig.AcceptTimeout = viper.GetDuration("accept-timeout")
	serveCmdConfig.HandshakeTimeout = viper.GetDuration("handshake-timeout")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.RateLimit = viper.GetInt("rate-limit")
	serveCmdConfig.RateWindow = viper.GetDuration("rate-window")
	serveCmdConfig.RateSweepInterval = viper.GetDuration("rate-sweep-interval")
	serveCmdConfig.MaxFrameSize = viper.GetUint32("max-frame-size")
	serveCmdConfig.AdminEndpoint = viper.GetString("admin-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return serveCmdConfig.Validate()
}

// run starts the sKV server
func run(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("dump-config") {
		out, err := yaml.Marshal(serveCmdConfig)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	server.Logger.Infof("starting sKV server\n%s", serveCmdConfig.String())

	registry := identity.NewRegistry()
	serv := server.NewServer(
		*serveCmdConfig,
		tls.NewServerConnector(),
		lstore.NewLocalStore(),
		ratelimit.New(serveCmdConfig.RateLimit, serveCmdConfig.RateWindow),
		registry,
	)

	// the first interrupt stops accepting, the second one uses the default handler and exits
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := serv.Serve(ctx)
	stop()
	if closeErr := serv.Close(); closeErr != nil {
		server.Logger.Warningf("failed to close server: %v", closeErr)
	}
	if err != nil {
		return err
	}

	if n := registry.Len(); n > 0 {
		server.Logger.Infof("waiting for %d active sessions to end, interrupt again to exit immediately", n)
	}
	serv.Wait()
	server.Logger.Infof("server shutdown completed")
	return nil
}
