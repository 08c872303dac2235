package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/instanthost/internal/client/client"
	"github.com/dmitrijs2005/instanthost/internal/client/services"
	"github.com/dmitrijs2005/instanthost/internal/client/state"
	"github.com/dmitrijs2005/instanthost/internal/client/uploader"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type publishFlags struct {
	slug        string
	claimToken  string
	title       string
	description string
	ttlSeconds  int64
	exclude     []string
}

func (a *App) newPublishCmd() *cobra.Command {
	var f publishFlags

	cmd := &cobra.Command{
		Use:     "publish <target>",
		Aliases: []string{"deploy"},
		Short:   "Publish a file or directory",
		Long: `Publish a file or directory.

The site URL is printed to standard output. Status lines of the form
publish_result.<name>=<value> are printed to standard error, and the result
is recorded in the state file so the site can be updated later with --slug.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPublish(cmd, args[0], f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.slug, "slug", "", "update the existing site with this slug")
	fs.StringVar(&f.claimToken, "claim-token", "", "claim token for an anonymous site (defaults to the stored one)")
	fs.StringVar(&f.title, "title", "", "viewer title")
	fs.StringVar(&f.description, "description", "", "viewer description")
	fs.Int64Var(&f.ttlSeconds, "ttl", 0, "lifetime in seconds (authenticated only)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "skip files and directories whose name matches a glob")

	return cmd
}

func (a *App) runPublish(cmd *cobra.Command, target string, f publishFlags) error {
	ctx := cmd.Context()

	key, err := a.apiKey()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := a.log.With("run_id", runID)

	api, err := client.NewHTTPClient(a.cfg.BaseURL,
		client.WithAPIKey(key),
		client.WithRequestID(runID),
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.APITimeout}),
	)
	if err != nil {
		return err
	}

	up := uploader.New(uploader.Config{
		Concurrency: a.cfg.Concurrency,
		Retries:     a.cfg.UploadRetries,
		Backoff:     a.cfg.RetryBackoff,
		Timeout:     a.cfg.UploadTimeout,
	}, &http.Client{}, log)

	svc := services.NewPublishService(api, up, state.NewStore(a.cfg.StateFile), log)

	opts := services.PublishOptions{
		Slug:       f.slug,
		ClaimToken: f.claimToken,
		TTL:        time.Duration(f.ttlSeconds) * time.Second,
		Exclude:    f.exclude,
	}
	if cmd.Flags().Changed("title") {
		opts.Title = &f.title
	}
	if cmd.Flags().Changed("description") {
		opts.Description = &f.description
	}
	if opts.TTL > 0 && key == "" {
		log.Warn(ctx, "ttl is only honoured for authenticated publishes")
	}

	res, err := svc.Publish(ctx, target, opts)
	if err != nil {
		var te *uploader.TransferError
		if errors.As(err, &te) {
			for _, failed := range te.Failures {
				fmt.Fprintf(a.errOut, "publish_result.failed_upload=%s: %v\n", failed.Path, failed.Err)
			}
		}
		return err
	}

	a.printResult(res)
	return nil
}

func (a *App) printResult(res *services.PublishResult) {
	fmt.Fprintf(a.errOut, "publish_result.site_url=%s\n", res.SiteURL)
	if res.Anonymous {
		fmt.Fprintln(a.errOut, "publish_result.auth_mode=anonymous")
		if res.ClaimURL != nil {
			fmt.Fprintf(a.errOut, "publish_result.claim_url=%s\n", *res.ClaimURL)
		}
		if res.ServerWarning != "" {
			fmt.Fprintf(a.errOut, "publish_result.warning=%s\n", res.ServerWarning)
		}
	} else {
		fmt.Fprintln(a.errOut, "publish_result.auth_mode=authenticated")
	}
	if res.StateWarning != nil {
		fmt.Fprintf(a.errOut, "publish_result.state_warning=%v\n", res.StateWarning)
	}

	fmt.Fprintln(a.out, res.SiteURL)
}
