/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sheshield/apiserver/config"
	"github.com/sheshield/apiserver/internal/mq"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// dispatchCmd represents the dispatch command
var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Consume alert events and notify emergency contacts",
	Long: `Consumes alert events published by the API server and delivers a
notification per emergency contact. Requires MQ_BACKEND to be set to
the same broker the server publishes to. Usage:

	sheshield dispatch
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		broker, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open broker: %v\n", err)
			os.Exit(1)
		}
		if broker == nil {
			fmt.Fprintln(os.Stderr, "dispatch requires MQ_BACKEND (rabbitmq or pubsub)")
			os.Exit(1)
		}
		defer broker.Close()

		dispatcher := services.NewAlertDispatcher(broker, cfg.MQ.AlertChannel, logNotifier)
		if err := dispatcher.Run(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "dispatcher stopped: %v\n", err)
			os.Exit(1)
		}
	},
}

// logNotifier writes one line per contact. It is the integration point
// for an SMS or email gateway.
func logNotifier(_ context.Context, event services.AlertEvent) error {
	location := "unknown location"
	if event.Alert.Location != nil {
		location = *event.Alert.Location
	}
	for _, contact := range event.Contacts {
		log.Printf("alert %d from %s (%s): notify %s at %s",
			event.Alert.ID, event.UserName, location, contact.ContactName, contact.ContactPhone)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}
