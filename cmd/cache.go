package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KaramelBytes/shipsight/internal/server"
	"github.com/spf13/cobra"
)

var (
	cacheAddr    string
	cacheSession string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the running server's cached warehouse rows",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached rows so the next load queries the warehouse",
	Long: `Cached rows live in the memory of "shipsight serve". This asks the server
listening on --addr (default: listen_addr) to drop them. In the interactive
profile each browser session has its own connection; pass its id with
--session to clear that one.`,
	Example: `  shipsight cache clear
  shipsight cache clear --addr http://dashboard.internal:8501 --session 3f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := cacheAddr
		if addr == "" {
			addr = c.ListenAddr
		}
		endpoint, err := refreshURL(addr)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(commandContext(cmd), 15*time.Second)
		defer cancel()
		if err := postRefresh(ctx, endpoint, cacheSession); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cache cleared on %s\n", endpoint)
		return nil
	},
}

// refreshURL turns a listen address or a base URL into the refresh
// endpoint. Wildcard hosts are dialled on loopback.
func refreshURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("no server address (set listen_addr or pass --addr)")
	}
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("invalid server address %q", addr)
		}
		u.Path = strings.TrimRight(u.Path, "/") + server.EndPointRefresh
		return u.String(), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + server.EndPointRefresh, nil
}

func postRefresh(ctx context.Context, endpoint, session string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if session != "" {
		req.Header.Set(server.HeaderSessionID, session)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach the ShipSight server (is \"shipsight serve\" running?): %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 8<<10)).Decode(&body)
	if body.Error == "" {
		body.Error = resp.Status
	}
	return fmt.Errorf("cache clear failed (status %d): %s", resp.StatusCode, body.Error)
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().StringVar(&cacheAddr, "addr", "", "server address or base URL (default: listen_addr)")
	cacheClearCmd.Flags().StringVar(&cacheSession, "session", "", "browser session id (interactive profile)")
}
