package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lanchat/internal/client"
)

func clientCmd() *cobra.Command {
	var (
		addr     string
		username string
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a chatroom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdin := bufio.NewScanner(os.Stdin)

			if username == "" {
				fmt.Print("Enter your username for the chatroom: ")
				if !stdin.Scan() {
					return stdin.Err()
				}
				username = strings.TrimSpace(stdin.Text())
			}

			c := client.New(addr)
			if err := c.Connect(); err != nil {
				return err
			}
			defer c.Close()

			history, accepted, err := c.Join(username)
			if err != nil {
				return err
			}
			if !accepted {
				return fmt.Errorf("username %q is already taken", username)
			}
			for _, m := range history {
				fmt.Println(m.Display())
			}

			c.Start()
			go func() {
				for m := range c.Messages() {
					fmt.Println(m.Display())
				}
			}()

			// An empty line ends the session.
			for stdin.Scan() {
				text := stdin.Text()
				if text == "" {
					break
				}
				if err := c.Send(text); err != nil {
					return err
				}
			}
			fmt.Println("You left the chatroom. Goodbye.")
			return stdin.Err()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:42069", "Server address")
	cmd.Flags().StringVar(&username, "username", "", "Username for the chatroom (prompted when empty)")

	return cmd
}
