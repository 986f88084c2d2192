// Package scrape is the single typed surface over the external scraper
// binary. All outbound metadata fetches route through it so retry,
// timeout, and host pacing live in one place rather than at each caller.
package scrape

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps scraper CLI interactions.
type Client struct {
	binary         string
	region         string
	searchTimeout  time.Duration
	detailTimeout  time.Duration
	channelTimeout time.Duration
	commentTimeout time.Duration
	timeoutRetries int
	limiter        *hostLimiter
	exec           Executor
	logger         *slog.Logger
}

// New constructs a scrape client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Scraper.Binary)
	if binary == "" {
		return nil, errors.New("scraper binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		binary:         binary,
		region:         cfg.Scraper.Region,
		searchTimeout:  time.Duration(cfg.Scraper.SearchTimeout) * time.Second,
		detailTimeout:  time.Duration(cfg.Scraper.DetailTimeout) * time.Second,
		channelTimeout: time.Duration(cfg.Scraper.ChannelTimeout) * time.Second,
		commentTimeout: time.Duration(cfg.Scraper.CommentTimeout) * time.Second,
		timeoutRetries: cfg.Scraper.TimeoutRetries,
		limiter:        newHostLimiter(time.Duration(cfg.Scraper.HostSpacingMS) * time.Millisecond),
		exec:           commandExecutor{},
		logger:         logging.WithComponent(logger, "scrape"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search runs a flat search for one keyword, returning up to max
// partial records. Timeouts are retried within the per-keyword budget.
func (c *Client) Search(ctx context.Context, keyword string, max int) ([]Record, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, errors.New("keyword required")
	}
	if max <= 0 {
		max = 50
	}
	target := fmt.Sprintf("ytsearch%d:%s", max, keyword)
	args := []string{"--dump-json", "--flat-playlist", "--no-warnings", "--ignore-errors"}
	if c.region != "" {
		args = append(args, "--geo-bypass-country", c.region)
	}
	args = append(args, target)

	lines, err := c.runWithRetry(ctx, "youtube.com", args, c.searchTimeout)
	if err != nil {
		return nil, fmt.Errorf("flat search %q: %w", keyword, err)
	}
	return parseFlatLines(lines, c.logger), nil
}

// Fetch retrieves the full detail record for one video.
func (c *Client) Fetch(ctx context.Context, videoID string) (*Record, error) {
	if len(videoID) != VideoIDLength {
		return nil, fmt.Errorf("%w: video id %q", ErrParse, videoID)
	}
	url := "https://www.youtube.com/watch?v=" + videoID
	args := []string{"--dump-json", "--no-warnings", "--skip-download", url}

	lines, err := c.runWithRetry(ctx, "youtube.com", args, c.detailTimeout)
	if err != nil {
		return nil, fmt.Errorf("detail fetch %s: %w", videoID, err)
	}
	record, err := parseDetail(lines)
	if err != nil {
		return nil, fmt.Errorf("detail fetch %s: %w", videoID, err)
	}
	return record, nil
}

// FetchWithComments retrieves the detail record plus top comments.
func (c *Client) FetchWithComments(ctx context.Context, videoID string, maxComments int) (*Record, error) {
	if len(videoID) != VideoIDLength {
		return nil, fmt.Errorf("%w: video id %q", ErrParse, videoID)
	}
	if maxComments <= 0 {
		maxComments = 50
	}
	url := "https://www.youtube.com/watch?v=" + videoID
	args := []string{
		"--dump-json", "--no-warnings", "--skip-download", "--write-comments",
		"--extractor-args", fmt.Sprintf("youtube:max_comments=%d", maxComments),
		url,
	}

	lines, err := c.runWithRetry(ctx, "youtube.com", args, c.commentTimeout)
	if err != nil {
		return nil, fmt.Errorf("comment fetch %s: %w", videoID, err)
	}
	record, err := parseDetail(lines)
	if err != nil {
		return nil, fmt.Errorf("comment fetch %s: %w", videoID, err)
	}
	return record, nil
}

// RecentUploads lists a channel's latest uploads in flat mode.
func (c *Client) RecentUploads(ctx context.Context, channelID string, max int) ([]Record, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, errors.New("channel id required")
	}
	if max <= 0 {
		max = 10
	}
	url := fmt.Sprintf("https://www.youtube.com/channel/%s/videos", channelID)
	args := []string{
		"--dump-json", "--flat-playlist", "--no-warnings", "--ignore-errors",
		"--playlist-end", fmt.Sprintf("%d", max),
		url,
	}

	lines, err := c.runWithRetry(ctx, "youtube.com", args, c.searchTimeout)
	if err != nil {
		return nil, fmt.Errorf("recent uploads %s: %w", channelID, err)
	}
	return parseFlatLines(lines, c.logger), nil
}

// FetchChannel retrieves the About-page profile of a channel.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (*ChannelProfile, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, errors.New("channel id required")
	}
	url := fmt.Sprintf("https://www.youtube.com/channel/%s/about", channelID)
	args := []string{"--dump-single-json", "--no-warnings", "--playlist-items", "0", url}

	lines, err := c.runWithRetry(ctx, "youtube.com", args, c.channelTimeout)
	if err != nil {
		return nil, fmt.Errorf("channel fetch %s: %w", channelID, err)
	}
	profile, err := parseChannel(lines)
	if err != nil {
		return nil, fmt.Errorf("channel fetch %s: %w", channelID, err)
	}
	return profile, nil
}

// runWithRetry paces the call against the host, applies the per-call
// timeout, and retries on timeout within the configured budget. Nonzero
// exits are permanent and never retried.
func (c *Client) runWithRetry(ctx context.Context, host string, args []string, timeout time.Duration) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.timeoutRetries; attempt++ {
		if err := c.limiter.wait(ctx, host); err != nil {
			return nil, err
		}
		lines, err := c.run(ctx, args, timeout)
		if err == nil {
			return lines, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		c.logger.Warn("scraper call timed out",
			logging.Int("attempt", attempt+1),
			logging.Duration("timeout", timeout))
	}
	return nil, lastErr
}

func (c *Client) run(ctx context.Context, args []string, timeout time.Duration) ([]string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		mu    sync.Mutex
		lines []string
	)
	err := c.exec.Run(callCtx, c.binary, args, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: after %s", ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: exit status %d", ErrExit, exitErr.ExitCode())
		}
		return nil, fmt.Errorf("%w: %v", ErrExit, err)
	}
	return lines, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, func(line string) {
		// Scraper progress noise goes to stderr; keep it out of results.
		fmt.Fprintln(os.Stderr, line)
	})

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return err
	}
	return nil
}
