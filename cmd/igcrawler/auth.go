package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the accounts used for logged in crawls",
	Long: `Manage stored login accounts.

Accounts live in the system keychain when one is available and in an
encrypted file in the user config directory. IGCRAWLER_USERNAME and
IGCRAWLER_PASSWORD provide a read-only account.

Use a dedicated account: the crawler logs in through the web UI and the
account may get flagged.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an account's username and password",
	Example: `  igcrawler auth login
  igcrawler users natgeo --stories --login my.crawler.account`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored account",
	Long:  "Remove a stored account. Without a username, pick one from a menu.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authListCmd)
	rootCmd.AddCommand(authCmd)
}

func confirmed(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	prompter := auth.NewTerminalPrompter()

	username := ""
	if len(args) == 1 {
		username = args[0]
	} else if username, err = prompter.Line("Instagram username: "); err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return errors.New("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		answer, _ := prompter.Line(fmt.Sprintf("%s is already stored. Replace its password? (y/N): ", username))
		if !confirmed(answer) {
			return nil
		}
	}

	password, err := prompter.Secret("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := manager.Store(&auth.Account{Username: username, Password: password}); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + username)
	ui.PrintInfo("Crawl with it", "igcrawler users <username> --login "+username)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, _ := manager.List()
	if len(accounts) == 0 {
		ui.PrintWarning("no stored accounts")
		return nil
	}

	removeAll := len(accounts) + 1
	for i, a := range accounts {
		fmt.Printf("  %d. %s\n", i+1, a.Username)
	}
	fmt.Printf("  %d. all accounts\n  0. cancel\n\n", removeAll)

	prompter := auth.NewTerminalPrompter()
	input, _ := prompter.Line("Remove which account? ")
	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || choice < 0 || choice > removeAll {
		return fmt.Errorf("invalid choice %q", input)
	}

	switch choice {
	case 0:
		return nil
	case removeAll:
		answer, _ := prompter.Line("Remove every stored account? (y/N): ")
		if !confirmed(answer) {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return err
		}
		ui.PrintSuccess("All accounts removed")
	default:
		name := accounts[choice-1].Username
		if err := manager.Delete(name); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + name)
	}
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "add one with 'igcrawler auth login'")
		return nil
	}

	def, _ := manager.RetrieveDefault()
	ui.PrintHighlight("Stored accounts")
	for _, a := range accounts {
		masked := auth.SanitizeAccount(a)
		name := masked.Username
		if def != nil && def.Username == name {
			name += " (default)"
		}
		ui.PrintInfo(name, fmt.Sprintf("password %s, saved %s",
			masked.Password, masked.LastModified.Format("2006-01-02 15:04")))
	}
	return nil
}
