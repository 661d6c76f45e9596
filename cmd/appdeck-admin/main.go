// ABOUTME: Operator CLI for the appdeck admin API.
// ABOUTME: Lists and manages users, apps, and assignments over HTTP with an API key.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/appdeck/appdeck-gateway/internal/store"
)

const banner = `
                       _           _
  __ _ _ __  _ __   __| | ___  ___| | __
 / _' | '_ \| '_ \ / _' |/ _ \/ __| |/ /
| (_| | |_) | |_) | (_| |  __/ (__|   <
 \__,_| .__/| .__/ \__,_|\___|\___|_|\_\
      |_|   |_|          admin
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("APPDECK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	key := os.Getenv("APPDECK_KEY")

	client := &apiClient{baseURL: strings.TrimRight(baseURL, "/"), key: key}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(client)
	case "users":
		err = cmdUsers(client, args)
	case "apps":
		err = cmdApps(client, args)
	case "assign":
		err = cmdAssign(client, args)
	case "assignments":
		err = cmdAssignments(client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: appdeck-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                          Check API health")
	fmt.Println("  users                           List users")
	fmt.Println("  users list [--search S]         List users, optionally filtered")
	fmt.Println("  users create --name N --email E Create a user")
	fmt.Println("  users delete <id>               Delete a user by ID")
	fmt.Println("  apps                            List apps")
	fmt.Println("  apps list [--category C]        List apps, optionally filtered")
	fmt.Println("  apps create --name N            Create an app")
	fmt.Println("  apps delete <id>                Delete an app by ID")
	fmt.Println("  assign <user-id> <app-id>       Assign a user to an app")
	fmt.Println("  assignments <user-id>           List a user's assignments")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  APPDECK_URL   Admin API base URL (default: http://localhost:8080)")
	fmt.Println("  APPDECK_KEY   API key (anon for reads, service_role for writes)")
	fmt.Println()
}

// apiClient is a thin JSON client for the admin API.
type apiClient struct {
	baseURL string
	key     string
}

// do performs one request and decodes the JSON response into out (if non-nil).
// Non-2xx responses become errors carrying the server's error message.
func (c *apiClient) do(method, path string, body, out any) error {
	if c.key == "" {
		return fmt.Errorf("APPDECK_KEY environment variable is required")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("status %d from %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func cmdStatus(c *apiClient) error {
	// Health needs no key, so call it directly
	resp, err := http.Get(c.baseURL + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	green := color.New(color.FgGreen)
	green.Println("healthy")
	return nil
}

// --- users ---

func cmdUsers(c *apiClient, args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "list", "ls":
		return cmdUsersList(c, args)
	case "create", "add":
		return cmdUsersCreate(c, args)
	case "delete", "rm", "remove":
		return cmdUsersDelete(c, args)
	default:
		return fmt.Errorf("unknown users subcommand: %s (use list, create, delete)", subcmd)
	}
}

func cmdUsersList(c *apiClient, args []string) error {
	path := "/api/users"
	if search := flagValue(args, "--search"); search != "" {
		path += "?search=" + search
	}

	var users []*store.User
	if err := c.do(http.MethodGet, path, nil, &users); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Users")
	cyan.Println("  -----")

	if len(users) == 0 {
		fmt.Println("  (no users)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tEMAIL\tTEAM\tCREATED")
	fmt.Fprintln(w, "  --\t----\t-----\t----\t-------")
	for _, u := range users {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(u.ID, 12), truncate(u.Name, 24), truncate(u.Email, 30),
			truncate(u.Team, 16), u.CreatedAt.Format("Jan 02 15:04"))
	}
	w.Flush()
	fmt.Println()

	return nil
}

func cmdUsersCreate(c *apiClient, args []string) error {
	name := flagValue(args, "--name")
	email := flagValue(args, "--email")
	if name == "" || email == "" {
		return fmt.Errorf("--name and --email are required")
	}

	body := map[string]string{
		"name":  name,
		"email": email,
	}
	if team := flagValue(args, "--team"); team != "" {
		body["team"] = team
	}
	if role := flagValue(args, "--job-role"); role != "" {
		body["job_role"] = role
	}

	var user store.User
	if err := c.do(http.MethodPost, "/api/users", body, &user); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ ")
	fmt.Printf("Created user %s (%s)\n", user.Name, user.ID)
	return nil
}

func cmdUsersDelete(c *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user ID is required")
	}
	if err := c.do(http.MethodDelete, "/api/users/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("Deleted user %s\n", args[0])
	return nil
}

// --- apps ---

func cmdApps(c *apiClient, args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "list", "ls":
		return cmdAppsList(c, args)
	case "create", "add":
		return cmdAppsCreate(c, args)
	case "delete", "rm", "remove":
		return cmdAppsDelete(c, args)
	default:
		return fmt.Errorf("unknown apps subcommand: %s (use list, create, delete)", subcmd)
	}
}

func cmdAppsList(c *apiClient, args []string) error {
	path := "/api/apps"
	if category := flagValue(args, "--category"); category != "" {
		path += "?category=" + category
	}

	var apps []*store.App
	if err := c.do(http.MethodGet, path, nil, &apps); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Apps")
	cyan.Println("  ----")

	if len(apps) == 0 {
		fmt.Println("  (no apps)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tCATEGORY\tVENDOR\tSTATUS")
	fmt.Fprintln(w, "  --\t----\t--------\t------\t------")
	for _, a := range apps {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(a.ID, 12), truncate(a.Name, 24), truncate(a.Category, 16),
			truncate(a.Vendor, 16), a.Status)
	}
	w.Flush()
	fmt.Println()

	return nil
}

func cmdAppsCreate(c *apiClient, args []string) error {
	name := flagValue(args, "--name")
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	body := map[string]string{"name": name}
	if category := flagValue(args, "--category"); category != "" {
		body["category"] = category
	}
	if vendor := flagValue(args, "--vendor"); vendor != "" {
		body["vendor"] = vendor
	}

	var app store.App
	if err := c.do(http.MethodPost, "/api/apps", body, &app); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ ")
	fmt.Printf("Created app %s (%s)\n", app.Name, app.ID)
	return nil
}

func cmdAppsDelete(c *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("app ID is required")
	}
	if err := c.do(http.MethodDelete, "/api/apps/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("Deleted app %s\n", args[0])
	return nil
}

// --- assignments ---

func cmdAssign(c *apiClient, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: assign <user-id> <app-id> [--role R] [--license L]")
	}

	body := map[string]string{
		"user_id": args[0],
		"app_id":  args[1],
	}
	if role := flagValue(args[2:], "--role"); role != "" {
		body["role_in_app"] = role
	}
	if license := flagValue(args[2:], "--license"); license != "" {
		body["license_type"] = license
	}

	var assignment store.Assignment
	if err := c.do(http.MethodPost, "/api/assignments", body, &assignment); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ ")
	fmt.Printf("Assigned (id %s, role %s)\n", assignment.ID, assignment.RoleInApp)
	return nil
}

func cmdAssignments(c *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user ID is required")
	}

	var details []*store.AssignmentDetail
	if err := c.do(http.MethodGet, "/api/users/"+args[0]+"/assignments", nil, &details); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Assignments")
	cyan.Println("  -----------")

	if len(details) == 0 {
		fmt.Println("  (no assignments)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  APP\tROLE\tLICENSE\tSTATUS\tASSIGNED")
	fmt.Fprintln(w, "  ---\t----\t-------\t------\t--------")
	for _, d := range details {
		assigned := d.AssignedOn
		if t, err := time.Parse("2006-01-02", d.AssignedOn); err == nil {
			assigned = t.Format("Jan 02 2006")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(d.AppName, 24), truncate(d.RoleInApp, 16),
			truncate(d.LicenseType, 12), d.Status, assigned)
	}
	w.Flush()
	fmt.Println()

	return nil
}

// flagValue returns the value following the given flag, or "".
func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
