package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/instanthost/internal/client/config"
	"github.com/dmitrijs2005/instanthost/internal/client/credentials"
	"github.com/dmitrijs2005/instanthost/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// App carries the process streams and the configuration shared by all
// commands.
type App struct {
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
	lookupEnv func(string) (string, bool)

	flags *config.Flags
	cfg   *config.Config
	log   logging.Logger
}

func NewApp(in io.Reader, out, errOut io.Writer, lookupEnv func(string) (string, bool)) *App {
	return &App{in: in, out: out, errOut: errOut, lookupEnv: lookupEnv}
}

// Execute runs the command line args and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.NewRootCmd()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.errOut, "Error: %s\n", err)
		return 1
	}
	return 0
}

// NewRootCmd creates the root command with every subcommand attached.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "instanthost",
		Short: "Publish files and directories to InstantHost",
		Long: `instanthost uploads a local file or directory and prints the URL it is
served from. Without an API key the site is published anonymously and
expires after 24 hours unless claimed.`,
		Version:           Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.loadConfig() },
	}

	a.flags = config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(a.newPublishCmd())
	root.AddCommand(a.newLoginCmd())
	root.AddCommand(a.newLogoutCmd())
	root.AddCommand(a.newStatusCmd())
	root.AddCommand(a.newListCmd())

	return root
}

func (a *App) loadConfig() error {
	cfg, err := config.LoadConfig(a.flags.ConfigFile, a.lookupEnv)
	if err != nil {
		return err
	}
	a.flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.NewConsoleLogger(a.errOut, cfg.LogLevel)
	return nil
}

// resolver builds the credential lookup from flags, environment and files.
func (a *App) resolver() credentials.Resolver {
	env, _ := a.lookupEnv(a.cfg.APIKeyEnv)
	return credentials.Resolver{
		Explicit:        a.flags.APIKey,
		EnvValue:        env,
		EnvName:         a.cfg.APIKeyEnv,
		DotEnvFile:      a.cfg.DotEnvFile,
		CredentialsFile: a.cfg.CredentialsFile,
	}
}

// apiKey returns the key to authenticate with, or "" for anonymous mode.
func (a *App) apiKey() (string, error) {
	cred, err := a.resolver().Resolve()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cred.Key, nil
}
