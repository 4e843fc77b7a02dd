package commands

import (
	"fmt"
	"log/slog"

	"blogposter/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Checks that the configured account can log in, then closes the browser.",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp()
		creds := a.cfg.PostCredentials()

		session, err := a.authenticator().Authenticate(cmd.Context(), a.launcher(), creds)
		if err != nil {
			serviceutil.Fatal("login failed", err)
		}
		err = session.Close()
		if err != nil {
			slog.Warn("failed to close browser", "err", err)
		}
		fmt.Printf("logged in as %s\n", creds.Identifier)
	},
}
