// Package summarizecmder provides the summarize command, a streaming client
// for a running scribe server.
package summarizecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scribe/pkg/cliui"
	"github.com/papercomputeco/scribe/pkg/config"
	"github.com/papercomputeco/scribe/pkg/logger"
	"github.com/papercomputeco/scribe/pkg/prompt"
	"github.com/papercomputeco/scribe/pkg/sse"
	"github.com/papercomputeco/scribe/server"
)

// ErrStreamFailed wraps the message carried by a terminal error event.
var ErrStreamFailed = errors.New("stream failed")

type summarizeCommander struct {
	target string
	token  string
	idea   bool
	file   string
	raw    bool
	render bool
	debug  bool
	visit  prompt.Visit

	out    io.Writer
	client *http.Client
	logger *slog.Logger
}

const summarizeLongDesc string = `Stream a summary from a running scribe server.

With visit flags (or --file pointing at a JSON visit) the command POSTs the
visit and prints the doctor's summary, next steps and patient email as they
stream in. With --idea it asks for a business idea instead.

The bearer token is read from --token or SCRIBE_TOKEN.

Examples:
  scribe summarize --patient-name "Jane Doe" --date 2024-05-01 --notes "Mild fever"
  scribe summarize --file visit.json --render
  scribe summarize --idea --raw`

const summarizeShortDesc string = "Stream a visit summary from a scribe server"

func NewSummarizeCmd() *cobra.Command {
	cmder := &summarizeCommander{}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: summarizeShortDesc,
		Long:  summarizeLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("target") {
				cmder.target = cfg.Client.Target
			}
			if cmder.token == "" {
				cmder.token = os.Getenv("SCRIBE_TOKEN")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVar(&cmder.token, "token", "", "Bearer token (default $SCRIBE_TOKEN)")
	cmd.Flags().BoolVar(&cmder.idea, "idea", false, "Ask for a business idea instead of a visit summary")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Read the visit from a JSON file")
	cmd.Flags().StringVar(&cmder.visit.PatientName, "patient-name", "", "Patient name")
	cmd.Flags().StringVar(&cmder.visit.DateOfVisit, "date", "", "Date of the visit")
	cmd.Flags().StringVar(&cmder.visit.Notes, "notes", "", "Visit notes")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw event stream")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the finished response as markdown")
	cmd.MarkFlagsMutuallyExclusive("idea", "file")
	cmd.MarkFlagsMutuallyExclusive("raw", "render")

	return cmd
}

func (c *summarizeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	if c.token == "" {
		return errors.New("a bearer token is required (set --token or SCRIBE_TOKEN)")
	}

	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	client := c.client
	if client == nil {
		client = newHTTPClient()
	}

	c.logger.Debug("sending request", "method", req.Method, "url", req.URL.String())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to scribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	full, err := c.stream(resp.Body)
	if err != nil {
		return err
	}

	if c.render {
		rendered, err := cliui.RenderMarkdown(full)
		if err != nil {
			c.logger.Debug("markdown render failed", "error", err)
		}
		fmt.Fprint(c.out, rendered)
		return nil
	}

	if !c.raw {
		fmt.Fprintln(c.out)
	}
	return nil
}

// responseHeaderTimeout bounds the wait for the server to commit the stream.
// The body has no deadline: it ends when the server closes the stream or the
// command's context is cancelled.
const responseHeaderTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = responseHeaderTimeout
	return &http.Client{Transport: transport}
}

func (c *summarizeCommander) newRequest(ctx context.Context) (*http.Request, error) {
	url := strings.TrimRight(c.target, "/") + server.RouteAPI

	var (
		req *http.Request
		err error
	)
	if c.idea {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	} else {
		visit, verr := c.loadVisit()
		if verr != nil {
			return nil, verr
		}

		body, merr := json.Marshal(visit)
		if merr != nil {
			return nil, fmt.Errorf("marshaling visit: %w", merr)
		}

		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

// loadVisit returns the visit from --file, or from the visit flags.
// Flags set alongside --file override the file's fields.
func (c *summarizeCommander) loadVisit() (prompt.Visit, error) {
	var visit prompt.Visit
	if c.file != "" {
		data, err := os.ReadFile(c.file)
		if err != nil {
			return visit, fmt.Errorf("reading visit file: %w", err)
		}
		if err := json.Unmarshal(data, &visit); err != nil {
			return visit, fmt.Errorf("parsing visit file: %w", err)
		}
	}

	if c.visit.PatientName != "" {
		visit.PatientName = c.visit.PatientName
	}
	if c.visit.DateOfVisit != "" {
		visit.DateOfVisit = c.visit.DateOfVisit
	}
	if c.visit.Notes != "" {
		visit.Notes = c.visit.Notes
	}
	return visit, nil
}

// stream prints fragments as they arrive and returns the reassembled text.
// A terminal error event ends the stream with ErrStreamFailed.
func (c *summarizeCommander) stream(body io.Reader) (string, error) {
	var reader *sse.TeeReader
	if c.raw {
		reader = sse.NewTeeReader(body, c.out)
	} else {
		reader = sse.NewReader(body)
	}

	var full strings.Builder
	for {
		ev, err := reader.Next()
		if err != nil {
			return full.String(), fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return full.String(), nil
		}

		if sse.IsError(ev.Data) {
			return full.String(), fmt.Errorf("%w: %s", ErrStreamFailed, strings.TrimPrefix(ev.Data, sse.ErrorPrefix))
		}

		text := sse.DecodeFragment(ev.Data)
		full.WriteString(text)
		if !c.raw && !c.render {
			fmt.Fprint(c.out, text)
		}
	}
}

// statusError turns a non-200 response into an error carrying the server's
// message and, for 422s, the missing fields.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var verr server.ValidationErrorResponse
	if err := json.Unmarshal(body, &verr); err != nil || verr.Error == "" {
		return fmt.Errorf("scribe returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if len(verr.Missing) > 0 {
		return fmt.Errorf("scribe returned status %d: %s: %s",
			resp.StatusCode, verr.Error, strings.Join(verr.Missing, ", "))
	}
	return fmt.Errorf("scribe returned status %d: %s", resp.StatusCode, verr.Error)
}
