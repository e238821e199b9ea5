package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

const serverName = "treeshake"

// mcpClient describes a client whose MCP servers live in a JSON file.
type mcpClient struct {
	ID          string
	DisplayName string
	ConfigPath  string            // relative to the project root
	Marker      string            // directory whose presence selects the client; "" = always
	ServersKey  string            // "servers" (VS Code) or "mcpServers"
	ExtraFields map[string]string // e.g. "type": "stdio" for VS Code
}

var mcpClients = []mcpClient{
	{
		ID: "project", DisplayName: "Project .mcp.json",
		ConfigPath: ".mcp.json", ServersKey: "mcpServers",
	},
	{
		ID: "vscode", DisplayName: "VS Code",
		ConfigPath: filepath.Join(".vscode", "mcp.json"), Marker: ".vscode",
		ServersKey: "servers", ExtraFields: map[string]string{"type": "stdio"},
	},
	{
		ID: "cursor", DisplayName: "Cursor",
		ConfigPath: filepath.Join(".cursor", "mcp.json"), Marker: ".cursor",
		ServersKey: "mcpServers",
	},
}

// Replaceable for testing.
var statFunc = os.Stat

type setupFlags struct {
	yes     bool
	clients []string
}

func newSetupCmd(a *app) *cobra.Command {
	var f setupFlags

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with editor clients",
		Long: `Add a "treeshake" entry running "treeshake serve" to the MCP configuration of
every client detected in the current directory. Factory names and match
patterns given on the command line are baked into the entry's arguments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSetup(cmd.InOrStdin(), cmd.OutOrStdout(), f, a.serveArgs(cmd))
		},
	}

	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "configure without prompting")
	cmd.Flags().StringSliceVar(&f.clients, "client", nil, "only configure these clients: project, vscode, cursor")
	return cmd
}

// serveArgs returns the arguments of the registered command. Only options
// set explicitly on this invocation are forwarded; the server resolves the
// rest from the project config at startup.
func (a *app) serveArgs(cmd *cobra.Command) []string {
	args := []string{"serve"}
	flags := cmd.Flags()
	if flags.Changed("jsxs") {
		args = append(args, "--jsxs", strings.Join(a.flags.jsxs, ","))
	}
	if flags.Changed("matches") {
		for _, m := range a.flags.matches {
			args = append(args, "--matches", m)
		}
	}
	if flags.Changed("options") {
		args = append(args, "--options", a.flags.optionsJSON)
	}
	return args
}

// detectClients returns the clients to configure. An explicit selection
// bypasses marker detection.
func detectClients(only []string) ([]mcpClient, error) {
	for _, id := range only {
		if !slices.ContainsFunc(mcpClients, func(c mcpClient) bool { return c.ID == id }) {
			return nil, fmt.Errorf("unknown client: %s", id)
		}
	}

	var found []mcpClient
	for _, c := range mcpClients {
		if len(only) > 0 {
			if slices.Contains(only, c.ID) {
				found = append(found, c)
			}
			continue
		}
		if c.Marker == "" {
			found = append(found, c)
			continue
		}
		if info, err := statFunc(c.Marker); err == nil && info.IsDir() {
			found = append(found, c)
		}
	}
	return found, nil
}

// serverEntry returns the MCP server object for treeshake.
func serverEntry(args []string, extra map[string]string) map[string]any {
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	entry := map[string]any{
		"command": serverName,
		"args":    anyArgs,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds a treeshake entry under serversKey to the JSON
// document existing (which may be empty) and returns the result.
// Returns nil, nil if an entry already exists.
func mergeServerEntry(existing []byte, serversKey string, entry map[string]any) ([]byte, error) {
	doc := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := doc[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}

	servers[serverName] = entry
	doc[serversKey] = servers

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// configureClient merges the entry into the client's config file. It
// reports whether the file was changed.
func configureClient(c mcpClient, args []string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0o755); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}

	existing, err := os.ReadFile(c.ConfigPath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	merged, err := mergeServerEntry(existing, c.ServersKey, serverEntry(args, c.ExtraFields))
	if err != nil {
		return false, err
	}
	if merged == nil {
		return false, nil
	}
	return true, os.WriteFile(c.ConfigPath, merged, 0o644)
}

// promptYesNo prints a question and reads Y/n. Returns true for yes (default).
func promptYesNo(scanner *bufio.Scanner, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	if !scanner.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

func executeSetup(r io.Reader, w io.Writer, f setupFlags, args []string) error {
	clients, err := detectClients(f.clients)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Server command: %s %s\n", serverName, strings.Join(args, " "))

	scanner := bufio.NewScanner(r)
	var failed int
	for _, c := range clients {
		if !f.yes && !promptYesNo(scanner, w, fmt.Sprintf("%s: add to %s? [Y/n]", c.DisplayName, c.ConfigPath)) {
			fmt.Fprintf(w, "  skipped %s\n", c.DisplayName)
			continue
		}
		changed, err := configureClient(c, args)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(w, "  ! %s: %v\n", c.DisplayName, err)
		case !changed:
			fmt.Fprintf(w, "  * %s already configured\n", c.DisplayName)
		default:
			fmt.Fprintf(w, "  + %s configured (%s)\n", c.DisplayName, c.ConfigPath)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d client(s) failed", failed)
	}
	return nil
}
