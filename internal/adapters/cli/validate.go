package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"collectorkit/internal/application"
	"collectorkit/internal/auth"
	"collectorkit/internal/domain/entities"
)

func (a *App) validateCmd() *cobra.Command {
	var (
		token    string
		deviceID int64
		preset   string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a data collector session against the directory",
		Long: `Runs the data collector checks for a session token and an optional device:
the session must be present and current, and the device must exist, belong to
the session's customer (unless the session holds devices:all), be active and
be assigned to a site. Inactive and unassigned devices only raise warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session := a.sessionFromToken(token)

			repo, db, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			v := application.NewDataCollectorValidator(repo, a.tr, session, deviceID, preset)
			if _, err := v.Validate(ctx); err != nil {
				return err
			}

			p := a.print()
			switch v.Status() {
			case entities.StatusOK:
				p.Success(string(v.Status()))
			case entities.StatusWarning:
				p.Warning(string(v.Status()))
			default:
				p.Error(string(v.Status()))
			}
			for _, msg := range v.Errors() {
				p.Error(msg)
			}
			for _, msg := range v.Warnings() {
				p.Warning(msg)
			}
			if d, ok := v.Data()["device"].(entities.Device); ok {
				p.Info(fmt.Sprintf("device %d %q", d.ID, d.Name))
			}
			return v.Err()
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "signed session token")
	cmd.Flags().Int64Var(&deviceID, "device", 0, "device id to check")
	cmd.Flags().StringVar(&preset, "preset-error", "", "report this message as an error")
	return cmd
}

// sessionFromToken returns nil when there is no usable session, which the
// validator reports as a missing session.
func (a *App) sessionFromToken(token string) *entities.Session {
	if token == "" {
		return nil
	}
	m, err := a.sessions()
	if err != nil {
		a.logger.Warn("session manager unavailable", "error", err)
		return nil
	}
	s, err := m.Parse(token)
	if err != nil {
		a.logger.Info("session rejected", "error", err)
		return nil
	}
	return s
}

func (a *App) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue and inspect session tokens",
	}

	var (
		userID     int64
		userName   string
		customerID int64
		lang       string
		perms      []string
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a session token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.sessions()
			if err != nil {
				return err
			}
			s, err := m.Issue(entities.User{ID: userID, Name: userName}, customerID, lang, perms...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, s.Token)
			return nil
		},
	}
	issue.Flags().Int64Var(&userID, "user-id", 0, "user id")
	issue.Flags().StringVar(&userName, "user", "", "user name")
	issue.Flags().Int64Var(&customerID, "customer", 0, "customer id the session is bound to")
	issue.Flags().StringVar(&lang, "session-lang", "", "preferred language stored in the session")
	issue.Flags().StringSliceVar(&perms, "perm", nil, "permission granted to the session (repeatable)")
	_ = issue.MarkFlagRequired("user-id")

	inspect := &cobra.Command{
		Use:   "inspect TOKEN",
		Short: "Verify a session token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.sessions()
			if err != nil {
				return err
			}
			s, err := m.Parse(args[0])
			if err != nil {
				return err
			}
			ctx := auth.WithSession(cmd.Context(), s)
			p := a.print()
			p.Header(fmt.Sprintf("%s (#%d)", s.User.Name, s.User.ID))
			fmt.Fprintf(p.w, "Customer:    %d\n", s.CustomerID)
			fmt.Fprintf(p.w, "Language:    %s\n", s.Language)
			fmt.Fprintf(p.w, "Permissions: %s\n", strings.Join(s.Permissions, ", "))
			fmt.Fprintf(p.w, "Expires:     %s\n", s.ExpiresAt.UTC().Format(time.RFC3339))
			if auth.HasPermission(ctx, application.PermissionAllDevices) {
				p.Info("may read every customer's devices")
			}
			return nil
		},
	}

	token := &cobra.Command{
		Use:   "token",
		Short: "Print a fresh opaque session token",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, auth.GenerateSessionToken())
		},
	}

	cmd.AddCommand(issue, inspect, token)
	return cmd
}
