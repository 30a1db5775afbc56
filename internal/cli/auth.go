package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartsync/transport"

	"github.com/spf13/cobra"
)

const (
	envEmail    = "RC_EMAIL"
	envPassword = "RC_PASSWORD"
)

// credentialOptions 登录/注册参数
type credentialOptions struct {
	Email       string
	Password    string
	DisplayName string
}

func (o *credentialOptions) resolve() error {
	if strings.TrimSpace(o.Email) == "" {
		o.Email = os.Getenv(envEmail)
	}
	if o.Password == "" {
		o.Password = os.Getenv(envPassword)
	}
	o.Email = strings.TrimSpace(o.Email)
	if o.Email == "" {
		return fmt.Errorf("--email is required (or set %s)", envEmail)
	}
	if o.Password == "" {
		return fmt.Errorf("--password is required (or set %s)", envPassword)
	}
	return nil
}

func bindCredentialFlags(cmd *cobra.Command, opts *credentialOptions) {
	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (env "+envEmail+")")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (env "+envPassword+")")
}

func newLoginCommand(rt *runtime) *cobra.Command {
	opts := &credentialOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(); err != nil {
				return err
			}
			result, err := rt.api.Login(cmd.Context(), opts.Email, opts.Password)
			if err != nil {
				return authError("login", err)
			}
			return rt.saveSession(cmd, result)
		},
	}
	bindCredentialFlags(cmd, opts)
	return cmd
}

func newRegisterCommand(rt *runtime) *cobra.Command {
	opts := &credentialOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(); err != nil {
				return err
			}
			result, err := rt.api.Register(cmd.Context(), opts.Email, opts.Password, opts.DisplayName)
			if err != nil {
				return authError("register", err)
			}
			return rt.saveSession(cmd, result)
		},
	}
	bindCredentialFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.DisplayName, "name", "", "display name")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the local cart snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !rt.sessions.Active() {
				fmt.Fprintln(rt.out, "Not signed in.")
				return rt.sessions.Clear(ctx)
			}
			if err := rt.api.Logout(ctx); err != nil {
				rt.log.Warnw("logout_remote_failed", "error", err)
			}
			snapshots, err := rt.cartCache(ctx)
			if err != nil {
				rt.log.Warnw("logout_cache_open_failed", "error", err)
			}
			snapshots.Clear(ctx)
			if err := rt.sessions.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "Signed out.")
			return nil
		},
	}
}

func (rt *runtime) saveSession(cmd *cobra.Command, result transport.AuthResult) error {
	cred, err := rt.sessions.Save(cmd.Context(), result.Token)
	if err != nil {
		return err
	}
	rt.log.Infow("session_started", "user_id", cred.UserID)
	fmt.Fprintf(rt.out, "Signed in as %s", result.User.Email)
	if !cred.ExpiresAt.IsZero() {
		fmt.Fprintf(rt.out, " (session expires %s)", cred.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(rt.out)
	return nil
}

func authError(action string, err error) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s failed: %s", action, apiErr.Message)
	}
	return fmt.Errorf("%s failed: %w", action, err)
}
