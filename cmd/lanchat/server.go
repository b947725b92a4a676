package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lanchat/internal/metrics"
	"lanchat/internal/server"
)

func serverCmd() *cobra.Command {
	var (
		addr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the chatroom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(addr)

			if metricsAddr != "" {
				go func() {
					log.Printf("Metrics on http://%s/metrics", metricsAddr)
					if err := metrics.Serve(metricsAddr); err != nil {
						log.Printf("Metrics endpoint error: %v", err)
					}
				}()
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				errChan <- srv.Start()
			}()

			select {
			case err := <-errChan:
				return err
			case sig := <-sigChan:
				log.Printf("Received signal %v, shutting down...", sig)
				srv.Stop()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":42069", "Address to listen on for TCP and WebSocket clients")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Optional address for the Prometheus /metrics endpoint")

	return cmd
}
