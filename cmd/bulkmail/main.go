package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/recipients"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
	bulkmail "github.com/LUCIFER14144/email-marketing-platform/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:           "bulkmail",
	Short:         "Send email campaigns from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a campaign through an environment-declared provider",
	RunE:  runSend,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers declared in the environment",
	RunE:  runProviders,
}

var statsCmd = &cobra.Command{
	Use:   "stats [campaign-id]",
	Short: "Show campaign stats from a running server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

var sendOpts struct {
	provider   string
	subject    string
	body       string
	list       string
	from       string
	format     string
	noTracking bool
}

var statsOpts struct {
	server string
	token  string
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.provider, "provider", "", "provider id, e.g. MAIN for MAIN_SERVICE/MAIN_USER/...")
	f.StringVar(&sendOpts.subject, "subject", "", "email subject")
	f.StringVar(&sendOpts.body, "body", "", "file holding the message body")
	f.StringVar(&sendOpts.list, "list", "", "recipient list (.txt, .csv or .json)")
	f.StringVar(&sendOpts.from, "from", "", "sender display name")
	f.StringVar(&sendOpts.format, "format", campaign.FormatHTML, "body format: html or markdown")
	f.BoolVar(&sendOpts.noTracking, "no-tracking", false, "send without open and click tracking")
	for _, name := range []string{"provider", "subject", "body", "list"} {
		_ = sendCmd.MarkFlagRequired(name)
	}

	sf := statsCmd.Flags()
	sf.StringVar(&statsOpts.server, "server", "http://localhost:3000", "server base URL")
	sf.StringVar(&statsOpts.token, "token", os.Getenv("BULKMAIL_TOKEN"), "access token (defaults to $BULKMAIL_TOKEN)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, "text")

	body, err := os.ReadFile(sendOpts.body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	listData, err := os.ReadFile(sendOpts.list)
	if err != nil {
		return fmt.Errorf("failed to read recipient list: %w", err)
	}
	list, err := recipients.Parse(sendOpts.list, listData)
	if err != nil {
		return err
	}

	campaigns := ledger.New()
	registry := provider.NewRegistry(provider.LoadFromEnv(os.Environ()))
	rewriter := tracking.NewRewriter(campaigns, cfg.TrackingBaseURL())
	dispatcher := campaign.NewDispatcher(campaigns, registry, rewriter, nil, campaign.NewFixedPacer(cfg.Campaign.SendInterval), log)

	out, err := dispatcher.Run(cmd.Context(), campaign.Request{
		ProviderID:      sendOpts.provider,
		From:            sendOpts.from,
		Subject:         sendOpts.subject,
		Message:         string(body),
		Format:          sendOpts.format,
		Recipients:      list,
		TrackingEnabled: !sendOpts.noTracking,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, out.Campaign)
}

func runProviders(cmd *cobra.Command, args []string) error {
	registry := provider.NewRegistry(provider.LoadFromEnv(os.Environ()))
	list := registry.List("")
	if len(list) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No providers declared. Set {ID}_SERVICE, {ID}_USER and {ID}_PASSWORD.")
		return nil
	}
	for i := range list {
		s := list[i].Summary()
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-10s %-24s %s\n", s.ID, list[i].Service, s.Label, s.User)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	client := bulkmail.NewClient(bulkmail.Config{BaseURL: statsOpts.server, Token: statsOpts.token})

	if len(args) == 0 {
		campaigns, err := client.Campaigns(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, campaigns)
	}

	stats, err := client.Stats(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
