package cli

import (
	"github.com/spf13/cobra"

	"collectorkit/internal/application"
)

func (a *App) notifyCmd() *cobra.Command {
	var to, subject, body string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification over every configured channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier, err := a.notifications()
			if err != nil {
				return err
			}
			svc := application.NewNotificationService(notifier, a.tr, a.tr.Language())
			if err := svc.SendEmailNotification(cmd.Context(), to, subject, body); err != nil {
				return err
			}
			a.print().Success("notification sent to " + to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient e-mail address")
	cmd.Flags().StringVar(&subject, "subject", "", "subject (a default is used when empty)")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
