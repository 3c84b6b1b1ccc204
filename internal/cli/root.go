package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/north-relay/internal/logger"
	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

const envPrefix = "NORTHCTL"

// app carries the resolved settings shared by every subcommand.
type app struct {
	v   *viper.Viper
	out io.Writer
	log logger.Logger
}

// NewRootCmd builds the northctl command tree. Results go to out, logs go to stderr.
// Every persistent flag can also be set through NORTHCTL_<FLAG> environment variables.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, log: logger.NopLogger{}}

	root := &cobra.Command{
		Use:          "northctl",
		Short:        "northctl sends requests through the retrying north sender",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.InitWriter(a.v.GetString("log-level"), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.log = log
			return nil
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("address", "localhost:8081", "endpoint host:port")
	flags.String("scheme", "http", "endpoint scheme (http or https)")
	flags.Int("attempts", 3, "maximum attempts per request")
	flags.Duration("retry-interval", time.Second, "wait before the first retry, doubled after each retry")
	flags.Duration("connect-timeout", 10*time.Second, "connection establishment timeout")
	flags.Duration("request-timeout", 30*time.Second, "whole request timeout")
	flags.String("auth", string(sender.AuthNone), "authentication mode (none or basic)")
	flags.String("credentials", "", "base64 credentials for basic auth")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	root.AddCommand(newSendCmd(a))
	root.AddCommand(newPingCmd(a))
	root.AddCommand(newTrackCmd(a))
	return root
}

// senderConfig resolves the endpoint settings from flags and environment.
func (a *app) senderConfig() (sender.Config, error) {
	mode, err := sender.ParseAuthMode(a.v.GetString("auth"))
	if err != nil {
		return sender.Config{}, err
	}
	return sender.Config{
		Address:          a.v.GetString("address"),
		Scheme:           a.v.GetString("scheme"),
		ConnectTimeout:   a.v.GetDuration("connect-timeout"),
		RequestTimeout:   a.v.GetDuration("request-timeout"),
		RetryInterval:    a.v.GetDuration("retry-interval"),
		MaxAttempts:      a.v.GetInt("attempts"),
		AuthMode:         mode,
		BasicCredentials: a.v.GetString("credentials"),
	}, nil
}

func (a *app) newSender() (*sender.Sender, error) {
	cfg, err := a.senderConfig()
	if err != nil {
		return nil, err
	}
	return sender.New(cfg, sender.WithLogger(a.log))
}

// readData resolves a --data value. A leading @ names a file, @- reads stdin.
func readData(data string, stdin io.Reader) ([]byte, error) {
	if !strings.HasPrefix(data, "@") {
		return []byte(data), nil
	}
	name := strings.TrimPrefix(data, "@")
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	return raw, nil
}
