package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/guard"
	"github.com/mhrivnak/modeldash/pkg/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long:  "Exchange a username and password for a bearer token. The password is read without echo from the terminal, or from the first line of stdin when piped.",
		Example: `  modelctl login --username alice
  echo "$PASSWORD" | modelctl login -u alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := newInput(cmd.InOrStdin())
			out := cmd.ErrOrStderr()

			if username == "" {
				var err error
				if username, err = in.ask(out, "Username: "); err != nil {
					return err
				}
			}
			password, err := in.secret(out, "Password: ")
			if err != nil {
				return err
			}

			if _, err := a.client.Login(cmd.Context(), client.Credentials{Username: username, Password: password}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		email    string
		username string
		orgID    int
		login    bool
	)

	cmd := &cobra.Command{
		Use:     "register",
		Aliases: []string{"signup"},
		Short:   "Create an account",
		Example: `  modelctl register --email alice@example.com --username alice --login`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := newInput(cmd.InOrStdin())
			password, err := in.secret(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			req := client.RegistrationRequest{
				Email:          email,
				Username:       username,
				Password:       password,
				OrganizationID: orgID,
			}
			if login {
				if _, err := a.client.SignUp(cmd.Context(), req); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", username)
				return nil
			}

			user, err := a.client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, user, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Registered %s (id %s)\n", user.Username, user.ID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().IntVar(&orgID, "org-id", 0, "Organization to join")
	cmd.Flags().BoolVar(&login, "login", false, "Log in with the new account")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

type statusOutput struct {
	State     string     `json:"state"`
	APIURL    string     `json:"api_url"`
	Backend   string     `json:"session_backend"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := statusOutput{
				State:   a.guard.State(cmd.Context()).String(),
				APIURL:  a.client.BaseURL(),
				Backend: a.cfg.Session.Backend,
			}
			if token, ok := a.store.Token(cmd.Context()); ok {
				info, err := session.Inspect(token)
				if err != nil && !errors.Is(err, session.ErrOpaqueToken) {
					return err
				}
				status.Subject = info.Subject
				if !info.ExpiresAt.IsZero() {
					status.ExpiresAt = &info.ExpiresAt
					status.Expired = info.Expired(time.Now())
				}
			}

			return render(cmd, status, func(w io.Writer) error {
				values := map[string]any{
					"State":   status.State,
					"API":     status.APIURL,
					"Backend": status.Backend,
				}
				if status.Subject != "" {
					values["User"] = status.Subject
				}
				if status.ExpiresAt != nil {
					values["Expires"] = status.ExpiresAt.Format(time.RFC3339)
				}
				if status.State == guard.Unauthenticated.String() {
					values["Hint"] = "run 'modelctl login'"
				}
				return printDetail(w, []string{"State", "User", "Expires", "API", "Backend", "Hint"}, values)
			})
		},
	}
}
