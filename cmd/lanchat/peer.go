package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lanchat/internal/peer"
)

func peerCmd() *cobra.Command {
	var (
		port      int
		broadcast string
		username  string
	)

	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Join the serverless UDP chatroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdin := bufio.NewScanner(os.Stdin)

			if username == "" {
				fmt.Print("Enter your username for the chatroom: ")
				if !stdin.Scan() {
					return stdin.Err()
				}
				username = strings.TrimSpace(stdin.Text())
			}

			node, err := peer.New(peer.Config{
				Username:   username,
				ListenAddr: fmt.Sprintf(":%d", port),
				Broadcast:  broadcast,
			})
			if err != nil {
				return err
			}

			// Console input runs on its own goroutine so it never
			// stalls datagram handling.
			go func() {
				for stdin.Scan() {
					text := stdin.Text()
					if text == "" {
						fmt.Println("You left the chatroom. Goodbye.")
						node.Close()
						return
					}
					if err := node.Send(text); err != nil {
						log.Printf("Failed to send: %v", err)
					}
				}
				node.Close()
			}()

			return node.Run()
		},
	}

	cmd.Flags().IntVar(&port, "port", peer.DefaultPort, "UDP chat port")
	cmd.Flags().StringVar(&broadcast, "broadcast", "", "Broadcast target address (default 255.255.255.255:<port>)")
	cmd.Flags().StringVar(&username, "username", "", "Username for the chatroom (prompted when empty)")

	return cmd
}
