// Poro CLI - command line client for the Poro messaging API
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Friiyous/reseau-social/clients/go/poro"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("PORO_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := poro.NewClient(baseURL, os.Getenv("PORO_TOKEN"))
	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "me":
		resp, err := client.Me(ctx)
		exitOnError(err)
		printJSON(resp)

	case "who":
		requireArgs(3, "who <user_id>")
		resp, err := client.Who(ctx, parseID(os.Args[2]))
		exitOnError(err)
		printJSON(resp)

	case "send":
		requireArgs(4, "send <user_id> <message>")
		msg, err := client.Send(ctx, parseID(os.Args[2]), os.Args[3])
		exitOnError(err)
		fmt.Printf("Sent message %d in conversation %d\n", msg.ID, msg.ConversationID)

	case "inbox":
		convs, err := client.Conversations(ctx, 20, 0)
		exitOnError(err)
		for _, c := range convs {
			preview := ""
			if c.LastMessage != nil {
				preview = c.LastMessage.Content
			}
			fmt.Printf("  #%d  %s (%d unread)  %s\n", c.ID, c.OtherUser.DisplayName, c.UnreadCount, preview)
		}

	case "open":
		requireArgs(3, "open <conversation_id>")
		detail, err := client.Open(ctx, parseID(os.Args[2]))
		exitOnError(err)
		for _, m := range detail.Messages {
			ts := m.CreatedAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, m.Sender.DisplayName, m.Content)
		}

	case "unread":
		msgs, err := client.UnreadMessages(ctx)
		exitOnError(err)
		notes, err := client.UnreadNotifications(ctx)
		exitOnError(err)
		fmt.Printf("Unread messages: %d\nUnread notifications: %d\n", msgs, notes)

	case "notifications":
		ns, err := client.Notifications(ctx, 0, 20)
		exitOnError(err)
		for _, n := range ns {
			mark := " "
			if !n.IsRead {
				mark = "*"
			}
			fmt.Printf("%s %s [%s] %s: %s\n", mark, n.ID, n.Type, n.Title, n.Message)
		}

	case "listen":
		live, err := client.Dial(ctx)
		exitOnError(err)
		defer live.Close()
		fmt.Fprintln(os.Stderr, "Listening for live events, Ctrl-C to stop")
		for {
			ev, err := live.Next()
			exitOnError(err)
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), string(ev.Raw))
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Poro CLI - health worker messaging

Usage: poro <command> [options]

Commands:
  me                       Show your profile
  who <user_id>            Show a user's profile
  send <user_id> <text>    Send a direct message
  inbox                    List conversations
  open <conversation_id>   Show a conversation and mark it read
  unread                   Show unread counters
  notifications            List notifications
  listen                   Print live events as they arrive
  health                   Check server health

Environment:
  PORO_URL     Server URL (default: http://localhost:8080)
  PORO_TOKEN   Bearer token (see cmd/gentoken)`)
}

func requireArgs(n int, form string) {
	if len(os.Args) < n {
		fmt.Fprintln(os.Stderr, "Usage: poro "+form)
		os.Exit(1)
	}
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid id: %s\n", s)
		os.Exit(1)
	}
	return id
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
