// Command submit sends a competition entry from the terminal using the same
// path selection and upload flow as the website form.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/client"
	"github.com/noah-isme/txnt-submissions-api/internal/models"
)

func main() {
	var (
		apiURL    = flag.String("api", os.Getenv("SUBMISSIONS_API_URL"), "base URL of the submissions API")
		file      = flag.StringP("file", "f", "", "archive to submit (.zip, .rar, .7z, .tar, .gz)")
		threshold = flag.Int64("large-threshold", models.LargeFileThresholdBytes, "files at or above this many bytes upload directly to storage")
		maxSize   = flag.Int64("max-size", models.MaxUploadSizeBytes, "largest accepted file in bytes")
		verbose   = flag.BoolP("verbose", "v", false, "log state transitions")
		form      client.Form
	)
	flag.StringVar(&form.TeamName, "team", "", "team name")
	flag.StringVar(&form.University, "university", "", "university")
	flag.StringVar(&form.TeamLeader, "leader", "", "team leader")
	flag.StringVar(&form.ContactEmail, "email", "", "contact email")
	flag.StringVar(&form.TeamMembers, "members", "", "team members, comma separated")
	flag.StringVar(&form.ProjectTitle, "title", "", "project title")
	flag.StringVar(&form.ProjectDescription, "description", "", "project description")
	flag.Parse()

	if *apiURL == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: submit --api URL --file ARCHIVE [form flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logr := zap.NewNop()
	if *verbose {
		logr, _ = zap.NewDevelopment()
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lastPercent := -1
	orch := client.NewOrchestrator(
		client.NewAPIClient(*apiURL, &http.Client{}),
		client.NewUploader(&http.Client{}),
		client.OrchestratorConfig{
			MaxFileSize:        *maxSize,
			LargeFileThreshold: *threshold,
			OnTransition: func(from, to client.State) {
				logr.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
			},
			OnProgress: func(fraction float64) {
				if pct := int(fraction * 100); pct != lastPercent {
					lastPercent = pct
					fmt.Fprintf(os.Stderr, "\ruploading %3d%%", pct)
				}
			},
		},
	)

	sel, err := orch.Select(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path := "inline"
	if sel.Large {
		path = "direct upload"
	}
	fmt.Fprintf(os.Stderr, "submitting %s (%d bytes, %s)\n", sel.Name, sel.Size, path)

	res, err := orch.Submit(ctx, form)
	if lastPercent >= 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}

	fmt.Printf("%s\nsubmission id: %s\n", res.Message, res.SubmissionID)
	if res.DownloadURL != "" {
		fmt.Printf("stored at: %s\n", res.DownloadURL)
	}
}

func describe(err error) string {
	var failure *client.Failure
	if errors.As(err, &failure) {
		switch failure.Kind {
		case client.FailureValidation:
			msg := "submission rejected: " + failure.Message
			if len(failure.Fields) > 0 {
				msg += fmt.Sprintf(" (check: %v)", failure.Fields)
			}
			return msg
		case client.FailureNetwork:
			return fmt.Sprintf("could not reach the API after %s: %v", failure.Duration.Round(time.Millisecond), failure.Err)
		default:
			return "server error: " + failure.Error()
		}
	}
	var transport *client.TransportError
	if errors.As(err, &transport) {
		return "upload to storage failed: " + transport.Error()
	}
	return err.Error()
}
