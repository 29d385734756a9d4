// Command scan decodes QR name cards and performs check-ins against the
// Conferly API. It handles a single image, or watches a directory that a
// camera or capture tool drops frames into.
//
//	scan -image badge.png -conference 3
//	scan -image badge.png -conference 3 -action checkout
//	scan -watch /var/frames -conference 3
//	scan -list-conferences
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/conferly/api/internal/checkin"
	"github.com/conferly/api/internal/config"
	"github.com/conferly/api/internal/conferly"
	"github.com/conferly/api/internal/payload"
	"github.com/conferly/api/internal/qr"
	"github.com/conferly/api/internal/scanner"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	var (
		imagePath = fs.String("image", "", "path to an image containing a QR name card")
		watchDir  = fs.String("watch", "", "directory to watch for dropped frame images")
		confID    = fs.Int64("conference", 0, "conference id to check in against")
		action    = fs.String("action", "checkin", "checkin or checkout")
		validate  = fs.Bool("validate", false, "validate the code without changing state")
		listConfs = fs.Bool("list-conferences", false, "list conferences and exit")
		apiURL    = fs.String("api", cfg.APIBaseURL, "base URL of the Conferly API")
		verbose   = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := checkin.NewClient(checkin.Config{
		BaseURL:              *apiURL,
		Timeout:              cfg.RequestTimeout,
		AllowOfflineFallback: cfg.AllowOfflineFallback,
	}, logger)

	switch {
	case *listConfs:
		return listConferences(ctx, client, stdout)
	case *watchDir != "":
		return watch(ctx, logger, client, *watchDir, *confID, conferly.Action(*action), stdout)
	case *imagePath != "":
		return scanFile(ctx, client, *imagePath, *confID, conferly.Action(*action), *validate, stdout)
	default:
		return errors.New("one of -image, -watch, or -list-conferences is required")
	}
}

func scanFile(ctx context.Context, client *checkin.Client, path string, confID int64, action conferly.Action, validate bool, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	text, err := qr.DecodeReader(f)
	if errors.Is(err, qr.ErrNoSymbol) {
		return fmt.Errorf("no QR code found in %s", path)
	}
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	dec := payload.Parse(text)
	if validate {
		res, err := client.ValidateQR(ctx, dec.Raw, confID)
		if err != nil {
			return err
		}
		if !res.Valid {
			fmt.Fprintln(stdout, "invalid: code does not match a registration for this conference")
			return nil
		}
		fmt.Fprintf(stdout, "valid: %s <%s>\n", res.Attendee.Name, res.Attendee.Email)
		return nil
	}
	return submit(ctx, client, dec, confID, action, stdout)
}

// watch runs capture sessions against a directory source until interrupted.
// Each decoded badge is submitted and capture restarts for the next one.
func watch(ctx context.Context, logger *slog.Logger, client *checkin.Client, dir string, confID int64, action conferly.Action, stdout io.Writer) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	fmt.Fprintf(stdout, "watching %s, ctrl-c to stop\n", dir)

	src := &dirSource{dir: dir, seen: make(map[string]bool)}
	for ctx.Err() == nil {
		results := make(chan payload.Decoded, 1)
		sc := scanner.New(logger, func(d payload.Decoded) { results <- d })
		if err := sc.Start(ctx, src); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			sc.Stop()
			return nil
		case dec := <-results:
			if err := submit(ctx, client, dec, confID, action, stdout); err != nil {
				if errors.Is(err, checkin.ErrNoConference) {
					return errors.New("missing -conference")
				}
				logger.Error("submitting check-in", "error", err)
			}
		}
	}
	return nil
}

func submit(ctx context.Context, client *checkin.Client, dec payload.Decoded, confID int64, action conferly.Action, stdout io.Writer) error {
	req := checkin.Request{
		ConferenceID: confID,
		Method:       conferly.MethodQR,
		Action:       action,
	}
	switch dec.Kind {
	case payload.KindPayload:
		req.AttendeeID = dec.Payload.AttendeeID
		req.SessionID = dec.Payload.SessionID
	default:
		req.QRCode = dec.Raw
	}

	result, err := client.CheckIn(ctx, req)
	if err != nil {
		if errors.Is(err, checkin.ErrNoConference) {
			return err
		}
		fmt.Fprintln(stdout, checkin.UserMessage(err))
		if checkin.Warning(err) {
			return nil
		}
		return err
	}

	name := "attendee"
	if result.Record.AttendeeName != nil {
		name = *result.Record.AttendeeName
	}
	if result.Offline {
		fmt.Fprintf(stdout, "%s recorded offline for %s at %s (will not sync automatically)\n",
			action, name, result.Record.CheckInTime)
		return nil
	}
	fmt.Fprintf(stdout, "%s: %s at %s\n", action, name, result.Record.CheckInTime)
	return nil
}

func listConferences(ctx context.Context, client *checkin.Client, stdout io.Writer) error {
	confs, err := client.Conferences(ctx)
	if err != nil {
		return err
	}
	if len(confs) == 0 {
		fmt.Fprintln(stdout, "no conferences")
		return nil
	}
	for _, c := range confs {
		fmt.Fprintf(stdout, "%d\t%s\t%s\n", c.ID, c.Name, c.Date)
	}
	return nil
}

// dirSource feeds images dropped into a directory to the scanner, oldest
// first. Files are remembered by name and never handed out twice. Close is a
// no-op so the source survives across capture sessions.
type dirSource struct {
	dir  string
	seen map[string]bool
}

func (d *dirSource) Frame(ctx context.Context) (image.Image, error) {
	for {
		name, err := d.nextFile()
		if err != nil {
			return nil, err
		}
		if name == "" {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(200 * time.Millisecond):
				continue
			}
		}

		d.seen[name] = true
		f, err := os.Open(filepath.Join(d.dir, name))
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			// Partially written or non-image file, skip it.
			continue
		}
		return img, nil
	}
}

func (d *dirSource) nextFile() (string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || d.seen[e.Name()] {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[0], nil
}

func (d *dirSource) Close() error { return nil }
