package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dashmail/internal/cli/client"
)

func NewLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the report service and store a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewAPIClient(viper.GetString("server"))

			token, err := c.Login(username, password)
			if err != nil {
				return fmt.Errorf("login failed: %v", err)
			}

			viper.Set("token", token)
			if err := viper.WriteConfig(); err != nil {
				return fmt.Errorf("failed to save token: %v", err)
			}

			fmt.Println("Login successful")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}
