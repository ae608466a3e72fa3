package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate and store a session token",
	Long: `Authenticate with username and password.

The session token is stored in the auth store (~/.ciris/auth) and used by
subsequent commands until it expires.

Example:
  ciris login root
  ciris login --username admin --password secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := cmd.Flags().GetString("username")
		if err != nil {
			return fmt.Errorf("failed to read 'username' flag: %w", err)
		}
		if len(args) > 0 {
			username = args[0]
		}
		if username == "" {
			return fmt.Errorf("username is required")
		}

		password, err := cmd.Flags().GetString("password")
		if err != nil {
			return fmt.Errorf("failed to read 'password' flag: %w", err)
		}
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Auth.Login(context.Background(), username, password)
		if err != nil {
			return err
		}

		cli.PrintSuccess("Logged in as %s (role: %s)", resp.UserID, resp.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Auth.Logout(context.Background()); err != nil {
			return err
		}
		cli.PrintSuccess("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "username to authenticate as")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")

	rootCmd.AddCommand(logoutCmd)
}
