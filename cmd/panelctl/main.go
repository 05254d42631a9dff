// Package main implements the panelctl CLI for manual operations against the paneld HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the paneld HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "panelctl",
	Short: "CLI for paneld HTTP server operations",
	Long: `panelctl is a command-line interface for interacting with the paneld daemon.
It provides commands for checking daemon health, inspecting the tracked
thread context, managing the signed-in identity, and running extraction.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8787", "paneld server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(extractCmd)
}

// healthCmd checks daemon health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check paneld daemon health",
	Long: `Check the health status of the paneld daemon.

Examples:
  # Check health
  panelctl health

  # Check health on a different server
  panelctl health --server http://localhost:8080`,
	RunE: runHealth,
}

// contextCmd prints the current thread context
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the currently tracked thread context",
	Long: `Show the mail thread context paneld is currently tracking.

Examples:
  # Show the current context
  panelctl context`,
	RunE: runContext,
}

// authCmd groups identity operations
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the signed-in identity",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a user is signed in",
	RunE:  runAuthStatus,
}

var authSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and revoke the stored token",
	RunE:  runAuthSignOut,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authSignOutCmd)
}

// HealthResponse matches internal/server HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// envelope is the uniform reply shape of the /v1 message routes.
type envelope map[string]any

func (e envelope) success() bool {
	ok, _ := e["success"].(bool)
	return ok
}

func (e envelope) errorString() string {
	s, _ := e["error"].(string)
	return s
}

// getEnvelope performs a GET against a /v1 route and decodes the reply
// envelope.
func getEnvelope(path string) (envelope, error) {
	return doEnvelope(http.MethodGet, path, nil)
}

// postEnvelope performs a POST against a /v1 route and decodes the
// reply envelope.
func postEnvelope(path string, body io.Reader) (envelope, error) {
	return doEnvelope(http.MethodPost, path, body)
}

func doEnvelope(method, path string, body io.Reader) (envelope, error) {
	url := serverURL + path
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	return env, nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}

// runContext handles the context command
func runContext(cmd *cobra.Command, args []string) error {
	env, err := getEnvelope("/v1/context")
	if err != nil {
		return err
	}
	if !env.success() {
		return fmt.Errorf("context request failed: %s", env.errorString())
	}

	// The context fields sit at the top level of the envelope.
	out, err := json.MarshalIndent(map[string]any{
		"threadId":     env["threadId"],
		"accountIndex": env["accountIndex"],
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format context: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// runAuthStatus handles the auth status command
func runAuthStatus(cmd *cobra.Command, args []string) error {
	env, err := getEnvelope("/v1/auth/status")
	if err != nil {
		return err
	}
	if !env.success() {
		return fmt.Errorf("status request failed: %s", env.errorString())
	}

	signedIn, _ := env["signedIn"].(bool)
	if !signedIn {
		fmt.Println("Not signed in")
		return nil
	}

	email, _ := env["email"].(string)
	fmt.Printf("Signed in as %s\n", email)
	return nil
}

// runAuthSignOut handles the auth signout command
func runAuthSignOut(cmd *cobra.Command, args []string) error {
	env, err := postEnvelope("/v1/signout", nil)
	if err != nil {
		return err
	}
	if !env.success() {
		return fmt.Errorf("sign-out failed: %s", env.errorString())
	}

	fmt.Println("Signed out")
	return nil
}
