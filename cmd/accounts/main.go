package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jmerrifield20/accounts/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const defaultServerURL = "http://localhost:8000"

var (
	serverURL string
	cfgFile   string
	insecure  bool

	stdin = bufio.NewReader(os.Stdin)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Accounts service CLI",
	Long: `accounts is the command-line client for the accounts service.

It registers new users, looks them up by ID, and (with the admin secret)
deletes them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.accounts")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("accounts")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = defaultServerURL
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.accounts/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "accounts server URL (default "+defaultServerURL+")")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification (development only)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient(extra ...client.Option) (*client.Client, error) {
	var opts []client.Option
	if insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	return client.New(serverURL, append(opts, extra...)...)
}

// ── register ─────────────────────────────────────────────────────────────────

var (
	regEmail     string
	regUsername  string
	regPassword  string
	regFirstName string
	regLastName  string
	regPhone     string
	regJSON      bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new user",
	Long: `Register creates a user and its profile.

The password is read from --password, then ACCOUNTS_PASSWORD, and is
prompted for on stdin when neither is set.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&regEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&regUsername, "username", "", "Optional username (letters, digits, _ and -)")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "Password (prefer ACCOUNTS_PASSWORD or the prompt)")
	registerCmd.Flags().StringVar(&regFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&regLastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "Optional phone number")
	registerCmd.Flags().BoolVar(&regJSON, "json", false, "Print the created user as JSON")

	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("first-name")
	_ = registerCmd.MarkFlagRequired("last-name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw := regPassword
	if pw == "" {
		pw = viper.GetString("password")
	}
	if pw == "" {
		var err error
		if pw, err = promptPassword(); err != nil {
			return err
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	u, err := c.Register(context.Background(), client.RegisterRequest{
		Email:           regEmail,
		Username:        regUsername,
		Password:        pw,
		PasswordConfirm: pw,
		FirstName:       regFirstName,
		LastName:        regLastName,
		PhoneNumber:     regPhone,
	})
	if err != nil {
		var (
			verr *client.ValidationError
			cerr *client.ConflictError
		)
		switch {
		case errors.As(err, &verr):
			printFieldErrors(verr.Fields)
			return errors.New("registration rejected")
		case errors.As(err, &cerr):
			return fmt.Errorf("%s (%s)", cerr.Message, cerr.Field)
		}
		return fmt.Errorf("register user: %w", err)
	}

	if regJSON {
		return printJSON(u)
	}
	fmt.Printf("✓ User registered\n\n")
	printUser(u)
	return nil
}

func promptPassword() (string, error) {
	first, err := readSecret("Password: ")
	if err != nil {
		return "", err
	}
	second, err := readSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

// readSecret reads one line without echo when stdin is a terminal and falls
// back to a plain line read for piped input.
func readSecret(label string) (string, error) {
	fmt.Print(label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ── get ──────────────────────────────────────────────────────────────────────

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a user by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		u, err := c.GetUser(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if getJSON {
			return printJSON(u)
		}
		printUser(u)
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the user as JSON")
}

// ── delete ───────────────────────────────────────────────────────────────────

var (
	deleteSecret string
	deleteForce  bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user and its profile (requires the admin secret)",
	Long: `Delete removes a user. The admin secret is read from --admin-secret
or ACCOUNTS_ADMIN_SECRET.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := deleteSecret
		if secret == "" {
			secret = viper.GetString("admin_secret")
		}
		if secret == "" {
			return errors.New("admin secret required: use --admin-secret or ACCOUNTS_ADMIN_SECRET")
		}

		if !deleteForce {
			fmt.Printf("Delete user %s? This cannot be undone. [y/N]: ", args[0])
			answer, _ := stdin.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		c, err := newClient(client.WithAdminSecret(secret))
		if err != nil {
			return err
		}
		if err := c.DeleteUser(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		fmt.Printf("✓ User deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteSecret, "admin-secret", "", "Server admin secret")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip the confirmation prompt")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the accounts CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("accounts %s\n", version)
	},
}

// ── output ───────────────────────────────────────────────────────────────────

func printUser(u *client.User) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  ID:\t%s\n", u.ID)
	fmt.Fprintf(w, "  Email:\t%s\n", u.Email)
	if u.Username != nil {
		fmt.Fprintf(w, "  Username:\t%s\n", *u.Username)
	}
	fmt.Fprintf(w, "  Active:\t%t\n", u.IsActive)
	fmt.Fprintf(w, "  Created:\t%s\n", u.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if p := u.Profile; p != nil {
		fmt.Fprintf(w, "  Name:\t%s %s\n", p.FirstName, p.LastName)
		if p.PhoneNumber != nil {
			fmt.Fprintf(w, "  Phone:\t%s\n", *p.PhoneNumber)
		}
	}
	w.Flush()
}

func printFieldErrors(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tPROBLEM")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, fields[k])
	}
	w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
