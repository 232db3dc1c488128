package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

func main() {
	addrFlag := flag.String("addr", "http://localhost:8080", "daemon base URL")
	tokenFlag := flag.String("token", os.Getenv("HUDDLE_TOKEN"), "bearer token (defaults to HUDDLE_TOKEN)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &client{
		base:  *addrFlag,
		token: *tokenFlag,
		http:  &http.Client{Timeout: 10 * time.Second},
	}

	switch args[0] {
	case "status":
		cmdStatus(c, *jsonFlag)
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: huddlectl search <query>")
			os.Exit(1)
		}
		cmdSearch(c, args[1], *jsonFlag)
	case "conversations":
		cmdConversations(c, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: huddlectl [--addr <url>] [--token <token>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status             Show daemon status")
	fmt.Fprintln(os.Stderr, "  search <query>     Search the profile directory")
	fmt.Fprintln(os.Stderr, "  conversations      List your conversations")
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) get(path string, out any) error {
	req, err := http.NewRequest("GET", c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cmdStatus(c *client, jsonOut bool) {
	var resp struct {
		Status   string `json:"status"`
		Since    int64  `json:"since"`
		Version  string `json:"version"`
		Profiles int64  `json:"profiles"`
		Realtime bool   `json:"realtime"`
	}
	if err := c.get("/api/health", &resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Status:   %s\n", resp.Status)
	fmt.Printf("Version:  %s\n", resp.Version)
	fmt.Printf("Since:    %s\n", time.UnixMilli(resp.Since).Format(time.RFC3339))
	fmt.Printf("Profiles: %d\n", resp.Profiles)
	fmt.Printf("Realtime: %v\n", resp.Realtime)
}

func cmdSearch(c *client, query string, jsonOut bool) {
	var resp struct {
		Profiles []struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
			Title       string `json:"title"`
			Company     string `json:"company"`
		} `json:"profiles"`
	}
	if err := c.get("/api/profiles?q="+url.QueryEscape(query), &resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Profiles) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, p := range resp.Profiles {
		fmt.Printf("%-36s %-25s %s, %s\n", p.ID, p.DisplayName, p.Title, p.Company)
	}
}

func cmdConversations(c *client, jsonOut bool) {
	var resp struct {
		Conversations []struct {
			ThreadID    string `json:"thread_id"`
			Counterpart struct {
				DisplayName string `json:"display_name"`
			} `json:"counterpart"`
			LastMessage *struct {
				Body string `json:"body"`
			} `json:"last_message"`
			UnreadCount int   `json:"unread_count"`
			SortedAt    int64 `json:"sorted_at"`
		} `json:"conversations"`
	}
	if err := c.get("/api/conversations", &resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	for _, conv := range resp.Conversations {
		last := ""
		if conv.LastMessage != nil {
			last = conv.LastMessage.Body
			if len(last) > 40 {
				last = last[:40] + "…"
			}
		}
		unread := ""
		if conv.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", conv.UnreadCount)
		}
		fmt.Printf("%-25s %s%s\n", conv.Counterpart.DisplayName, last, unread)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
