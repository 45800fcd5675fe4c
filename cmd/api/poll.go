package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/xavierca1/leadcapture/internal/infra/worker"
)

var pollCmd = &cobra.Command{
	Use:       "poll [email|telephony]",
	Short:     "Run one poller iteration and print its result",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{worker.PollerEmail, worker.PollerTelephony},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var poller worker.Poller
		switch args[0] {
		case worker.PollerEmail:
			if a.emailPoller == nil {
				return eris.New("email poller is not configured")
			}
			poller = a.emailPoller
		case worker.PollerTelephony:
			if a.telephonyPoller == nil {
				return eris.New("telephony poller is not configured")
			}
			poller = a.telephonyPoller
		default:
			return eris.Errorf("unknown poller %q", args[0])
		}

		result, err := poller.RunOnce(ctx)
		if err != nil {
			return eris.Wrapf(err, "%s poll", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
}
