package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"podstudio/internal/config"
	"podstudio/internal/redisstate"
	"podstudio/internal/store"
)

const (
	dialTimeout      = 5 * time.Second
	defaultCohereURL = "https://api.cohere.com"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase opens the SQLite database, which also verifies the schema
// version.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Database"
	st, err := store.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckRedis verifies the workflow state server answers.
func CheckRedis(ctx context.Context, cfg config.State) Result {
	const name = "Redis state"
	checkCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	st, err := redisstate.Open(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	_ = st.Close()
	return Result{Name: name, Passed: true, Detail: cfg.RedisAddr}
}

// CheckEndpoint verifies credentials are present and the endpoint's host
// accepts connections.
func CheckEndpoint(ctx context.Context, name, endpoint, apiKey string) Result {
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", endpoint)}
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	address := net.JoinHostPort(u.Hostname(), port)
	if err := dial(ctx, address); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	return Result{Name: name, Passed: true, Detail: address + " reachable"}
}

// CheckBrokers verifies at least one Kafka broker accepts connections.
func CheckBrokers(ctx context.Context, brokers []string) Result {
	const name = "Kafka brokers"
	if len(brokers) == 0 {
		return Result{Name: name, Detail: "no brokers configured"}
	}
	var failures []string
	for _, broker := range brokers {
		if err := dial(ctx, broker); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", broker, summarizeNetError(err)))
			continue
		}
		return Result{Name: name, Passed: true, Detail: broker + " reachable"}
	}
	return Result{Name: name, Detail: strings.Join(failures, "; ")}
}

func dial(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (unreachable)"
	}
	return err.Error()
}
