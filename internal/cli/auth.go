package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Credentials is the on-disk credential store, one API key per server URL.
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential is a stored API key with an optional operator-chosen label.
type ServerCredential struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage server credentials",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a server",
		Long: `Validate an API key against a bountyd server and store it.

Keys live in ~/.bountyctl/credentials (mode 0600), one per server URL,
and are picked up automatically by every command that talks to that
server. An optional label helps tell keys apart in 'auth status'.

EXAMPLES:
  # Prompt for the key (input is hidden)
  bountyctl auth login

  # Label the key for a specific server
  bountyctl auth login --server https://bounty.example.com --name "verifier bot"

  # Scripted login
  bountyctl auth login --api-key $BOUNTYD_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(serverFlag, apiKeyFlag, nameFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "label for this key")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Long: `Drop the stored API key for one server, or all of them.

EXAMPLES:
  bountyctl auth logout
  bountyctl auth logout --server https://bounty.example.com
  bountyctl auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "forget every stored key")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List stored credentials",
		Long: `List every server with a stored API key. The server the CLI
would currently talk to is marked with an asterisk.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus()
		},
	}

	return cmd
}

func runAuthLogin(serverURL, apiKeyInput, name string) error {
	if serverURL == "" {
		serverURL = getServer()
	}

	key := apiKeyInput
	if key == "" {
		var err error
		key, err = promptAPIKey(serverURL)
		if err != nil {
			return err
		}
	}
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	fmt.Printf("Checking key against %s...\n", serverURL)
	if err := validateAPIKey(serverURL, key); err != nil {
		return err
	}

	if err := saveCredential(serverURL, key, name); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✅ Key %s stored for %s\n", maskAPIKey(key), serverURL)
	return nil
}

// promptAPIKey reads a key from the terminal without echo, falling back
// to plain stdin when not attached to a terminal (pipes, CI).
func promptAPIKey(serverURL string) (string, error) {
	fmt.Printf("API key for %s: ", serverURL)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(serverURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Println("✅ All stored keys forgotten")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No stored key for %s\n", serverURL)
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if _, ok := creds.Servers[serverURL]; !ok {
		fmt.Printf("No stored key for %s\n", serverURL)
		return nil
	}

	delete(creds.Servers, serverURL)
	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✅ Forgot key for %s\n", serverURL)
	return nil
}

func runAuthStatus() error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if err != nil || len(creds.Servers) == 0 {
		fmt.Println("No stored credentials. Run 'bountyctl auth login' first.")
		return nil
	}

	servers := make([]string, 0, len(creds.Servers))
	for server := range creds.Servers {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	active := getServer()
	fmt.Println("Stored credentials:")
	for _, server := range servers {
		cred := creds.Servers[server]
		marker := " "
		if server == active {
			marker = "*"
		}
		if cred.Name != "" {
			fmt.Printf("%s %s  %s (%s)\n", marker, server, maskAPIKey(cred.APIKey), cred.Name)
		} else {
			fmt.Printf("%s %s  %s\n", marker, server, maskAPIKey(cred.APIKey))
		}
	}

	return nil
}

// Credential file helpers

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bountyctl"
	}
	return filepath.Join(home, ".bountyctl")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL, apiKey, name string) error {
	creds, err := loadCredentials()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	}

	creds.Servers[serverURL] = ServerCredential{APIKey: apiKey, Name: name}
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].APIKey
}

// errorEnvelope matches the server's error response body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// validateAPIKey sends the key to the server's health endpoint. Only a
// definite UNAUTHORIZED rejects it; a degraded server still accepts the
// login so operators can store keys ahead of an incident.
func validateAPIKey(serverURL, apiKey string) error {
	req, err := http.NewRequestWithContext(context.Background(), "GET", serverURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		return nil
	}

	var envelope errorEnvelope
	if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error.Code == "UNAUTHORIZED" {
		return fmt.Errorf("server rejected the API key")
	}
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
