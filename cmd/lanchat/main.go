package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lanchat",
		Short: "Real-time group chat for trusted LANs",
		Long: `Lanchat is a best-effort, ephemeral chatroom for trusted LANs.

Two transports are available:

  server/client   a central TCP server owns the room, the recent
                  history, and the broadcast fan-out; WebSocket clients
                  are accepted on the same port
  peer            serverless UDP: every node broadcasts to the subnet
                  and keeps its own copy of the history`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serverCmd(),
		clientCmd(),
		peerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
