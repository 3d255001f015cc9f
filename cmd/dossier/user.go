package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/dossier/auth"
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long:  "Create an account. The password can come from $DOSSIER_ADMIN_PASSWORD instead of --password.",
		Run:   runUserAdd,
	}
	addCmd.Flags().StringP("username", "u", "", "Username (required)")
	addCmd.Flags().String("email", "", "Email address")
	addCmd.Flags().String("role", "admin", "Role")
	addCmd.Flags().StringP("password", "p", "", "Password")
	_ = addCmd.MarkFlagRequired("username")

	userCmd.AddCommand(addCmd)
	RootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) {
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	role, _ := cmd.Flags().GetString("role")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("DOSSIER_ADMIN_PASSWORD")
	}

	cfg := readConfig()
	db := openDatabase(cmd.Context(), cfg)
	defer db.Close()

	u, err := auth.NewService(db).CreateUser(cmd.Context(), auth.NewUser{
		Username: username,
		Email:    email,
		Role:     role,
		Password: password,
	})
	if err != nil {
		exitErr("user add", err)
	}
	printJSON(u)
}
