package main

import (
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const (
	configFlag        = "config"
	adminUsernameFlag = "username"
	adminPasswordFlag = "password"
)

var rootFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to config.yaml (defaults to $CONFIG_PATH, then ./config.yaml)",
	},
}

var adminFlags = map[string]cobraflags.Flag{
	adminUsernameFlag: &cobraflags.StringFlag{
		Name:  adminUsernameFlag,
		Value: "admin",
		Usage: "Username of the admin account",
	},
	adminPasswordFlag: &cobraflags.StringFlag{
		Name:  adminPasswordFlag,
		Value: "",
		Usage: "Password of the admin account (required)",
	},
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "testdesk",
		Short:         "Test management API server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serveCommand,
	}
	cobraflags.RegisterMap(rootCmd, rootFlags)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, background workers and the purge scheduler",
		RunE:  serveCommand,
	}
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed ID formats",
		RunE:  migrateCommand,
	}
	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a local admin account",
		RunE:  createAdminCommand,
	}

	// The config flag is accepted on every subcommand as well.
	for _, cmd := range []*cobra.Command{serveCmd, migrateCmd, adminCmd} {
		cobraflags.RegisterMap(cmd, rootFlags)
		rootCmd.AddCommand(cmd)
	}
	cobraflags.RegisterMap(adminCmd, adminFlags)

	return rootCmd
}

func configPath() string {
	if path := rootFlags[configFlag].GetString(); path != "" {
		return path
	}
	return os.Getenv("CONFIG_PATH")
}
