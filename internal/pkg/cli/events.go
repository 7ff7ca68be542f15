package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CalSync/app/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and repair stored webhook events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored webhook events",
	Args:  cobra.NoArgs,
	RunE:  runEventsList,
}

var eventsShowCmd = &cobra.Command{
	Use:   "show [event-key]",
	Short: "Print one stored event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsShow,
}

var processCmd = &cobra.Command{
	Use:   "process [event-key]",
	Short: "Run the processor for one event",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var requeueCmd = &cobra.Command{
	Use:   "requeue [event-key]",
	Short: "Reset retries and terminal state of an event",
	Long:  `Clears retries, the terminal flag and the last error so that the sweeper picks the event up again.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRequeue,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one sweeper pass",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

var (
	listProvider string
	listPending  bool
)

func init() {
	eventsListCmd.Flags().StringVarP(&listProvider, "provider", "p", "", "Only list events of this provider")
	eventsListCmd.Flags().BoolVar(&listPending, "pending", false, "Only list unprocessed events")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsShowCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(requeueCmd)
	rootCmd.AddCommand(sweepCmd)
}

func runEventsList(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var keys []string
	if listProvider != "" {
		p, ok := models.ParseProvider(listProvider)
		if !ok || !p.IsSource() {
			return fmt.Errorf("unknown source provider %q", listProvider)
		}
		keys, err = svc.Repos.Event.KeysByProvider(ctx, p)
	} else {
		keys, err = svc.Repos.Event.Keys(ctx)
	}
	if err != nil {
		return err
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSTATE\tRETRIES\tRECEIVED\tLAST ERROR")
	for _, key := range keys {
		event, err := svc.Repos.Event.Get(ctx, key)
		if err != nil {
			continue
		}
		if listPending && event.Processed {
			continue
		}
		received := "-"
		if !event.ReceivedAt.IsZero() {
			received = event.ReceivedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", key, eventState(event, svc.Config.MaxRetries), event.Retries, received, event.LastError)
	}
	return w.Flush()
}

func eventState(e *models.WebhookEvent, maxRetries int) string {
	switch {
	case e.Processed:
		return "processed"
	case e.Terminal:
		return "terminal"
	case e.IsDead(maxRetries):
		return "dead"
	case e.Retries > 0:
		return "retrying"
	default:
		return "pending"
	}
}

func runEventsShow(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	event, err := svc.Repos.Event.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), event)
}

func runProcess(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	result, err := svc.Processor.Process(cmd.Context(), args[0], "")
	if result != nil {
		if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
	}
	return err
}

func runRequeue(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	event, err := svc.Repos.Event.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if event.Processed {
		return fmt.Errorf("event %s is already processed", args[0])
	}
	event.Requeue()
	if err := svc.Repos.Event.Save(ctx, event); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", args[0])
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	result, err := svc.Sweeper.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
