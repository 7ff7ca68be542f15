package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CalSync/internal/pkg/providers/oura"
)

var ouraCmd = &cobra.Command{
	Use:   "oura",
	Short: "Manage Oura webhook subscriptions",
}

var ouraSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe the webhook endpoint to all synced data types",
	Args:  cobra.NoArgs,
	RunE:  runOuraSubscribe,
}

var ouraListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active subscriptions",
	Args:  cobra.NoArgs,
	RunE:  runOuraList,
}

var ouraRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Renew every active subscription",
	Args:  cobra.NoArgs,
	RunE:  runOuraRenew,
}

var callbackURL string

func init() {
	ouraSubscribeCmd.Flags().StringVar(&callbackURL, "callback-url", "", "Public webhook URL (defaults to PUBLIC_BASE_URL/api/oura-webhook)")

	ouraCmd.AddCommand(ouraSubscribeCmd)
	ouraCmd.AddCommand(ouraListCmd)
	ouraCmd.AddCommand(ouraRenewCmd)
	rootCmd.AddCommand(ouraCmd)
}

func runOuraSubscribe(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	target := callbackURL
	if target == "" {
		if svc.Config.PublicBaseURL == "" {
			return errors.New("--callback-url or PUBLIC_BASE_URL is required")
		}
		target = strings.TrimRight(svc.Config.PublicBaseURL, "/") + "/api/oura-webhook"
	}
	if svc.Config.OuraVerificationToken == "" {
		return errors.New("OURA_WEBHOOK_VERIFICATION_TOKEN is not configured")
	}

	subs, err := svc.OuraClient.Subscribe(cmd.Context(), target, svc.Config.OuraVerificationToken, oura.SyncedDataTypes)
	if len(subs) > 0 {
		if perr := printJSON(cmd.OutOrStdout(), subs); perr != nil {
			return perr
		}
	}
	return err
}

func runOuraList(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	subs, err := svc.OuraClient.ListSubscriptions(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), subs)
}

func runOuraRenew(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if err := svc.OuraClient.RenewAll(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "renewed oura subscriptions")
	return nil
}
