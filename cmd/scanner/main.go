package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"ticketgate/internal/checkin"
	"ticketgate/internal/qr"
	"ticketgate/internal/scanner"
)

func main() {
	var (
		serverURL = flag.String("server", envOr("TICKETGATE_SERVER", "http://localhost:8080"), "ticketgate server base URL")
		eventID   = flag.String("event", os.Getenv("TICKETGATE_EVENT"), "event ID this scanner is bound to")
		operator  = flag.String("operator", envOr("TICKETGATE_OPERATOR", "scanner"), "operator name recorded on check-ins")
		poll      = flag.Duration("poll", 500*time.Millisecond, "frame poll interval")
		timeout   = flag.Duration("timeout", 5*time.Second, "per check-in timeout")
	)
	flag.Parse()

	if *eventID == "" {
		fmt.Fprintln(os.Stderr, "scanner: -event (or TICKETGATE_EVENT) is required")
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	source := newStdinSource(os.Stdin)
	checkInFn := newHTTPCheckIn(*serverURL, *eventID, *operator)

	client := scanner.New(log, source, checkInFn, printOutcome, scanner.Config{
		PollInterval:   *poll,
		CheckInTimeout: *timeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("scanner for event %s (operator %q); type or scan a code, Ctrl-C to quit\n", *eventID, *operator)

	if err := client.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "scanner: device unavailable, manual entry only")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
	<-stop

	client.Stop()
	fmt.Println("scanner stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// stdinSource treats typed lines as frames: a background reader buffers the
// latest line and Frame hands it over on the next poll tick.
type stdinSource struct {
	lines chan string
}

func newStdinSource(r io.Reader) *stdinSource {
	s := &stdinSource{lines: make(chan string, 1)}

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case s.lines <- line:
			default:
				// Operator typed faster than we submit; keep the oldest.
			}
		}
		close(s.lines)
	}()

	return s
}

func (s *stdinSource) Acquire(ctx context.Context) error { return nil }

func (s *stdinSource) Frame(ctx context.Context) (string, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", scanner.ErrDeviceUnavailable
		}
		return line, nil
	default:
		return "", scanner.ErrNoCode
	}
}

func (s *stdinSource) Release() error { return nil }

type checkInRequest struct {
	Code   string `json:"code"`
	Actor  string `json:"actor"`
	Method string `json:"method"`
}

type checkInResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Result checkin.Result `json:"result"`
}

// newHTTPCheckIn builds a CheckInFunc that posts the raw code to the server's
// check-in endpoint. Domain outcomes come back as result kinds; only
// transport and server failures surface as errors.
func newHTTPCheckIn(serverURL, eventID, operator string) scanner.CheckInFunc {
	url := strings.TrimRight(serverURL, "/") + "/events/" + eventID + "/checkin"
	httpClient := &http.Client{}

	return func(ctx context.Context, raw string) (checkin.Result, error) {
		body, err := json.Marshal(checkInRequest{Code: raw, Actor: operator, Method: "qr"})
		if err != nil {
			return checkin.Result{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return checkin.Result{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return checkin.Result{}, err
		}
		defer resp.Body.Close()

		var out checkInResponse
		if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return checkin.Result{}, fmt.Errorf("decode response: %w", err)
		}

		if resp.StatusCode == http.StatusBadRequest {
			return checkin.Result{}, qr.ErrInvalidPayload
		}
		if out.Result.Kind == "" {
			return checkin.Result{}, fmt.Errorf("server error: %s", out.Error)
		}

		return out.Result, nil
	}
}

func printOutcome(o scanner.Outcome) {
	switch o.Kind {
	case scanner.OutcomeSuccess:
		name := ""
		if o.Result.Booking != nil {
			name = " " + o.Result.Booking.AttendeeName
		}
		color.Green("checked in%s", name)
	case scanner.OutcomeAlready:
		at := ""
		if o.Result.CheckedInAt != nil {
			at = o.Result.CheckedInAt.Format(time.Kitchen)
		}
		color.Yellow("already checked in at %s by %s", at, o.Result.CheckedInBy)
	case scanner.OutcomeRejected:
		color.Red("rejected: %s", o.Result.Kind)
	case scanner.OutcomeInvalidCode:
		color.Red("unreadable code")
	case scanner.OutcomeDeviceError:
		color.Red("device error: %v", o.Err)
	case scanner.OutcomeFailed:
		color.Red("check-in failed, re-scan to verify: %v", o.Err)
	}
}
