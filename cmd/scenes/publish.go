package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/publish"
)

func publishCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload generated artifacts to S3",
		Long: `Upload every generated registry item, then the index, to
s3://<bucket>/<prefix><name>.json.

Credentials are read from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY,
falling back to a .env file in the project root. Set publish.endpoint
in scenes.json to target an S3-compatible store.

Examples:
  scenes publish
  scenes publish --bucket=my-registry --prefix=r/
  scenes publish --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), bucket, prefix, dryRun)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination bucket (default from scenes.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Object key prefix (default from scenes.json)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the objects without uploading")

	return cmd
}

func runPublish(ctx context.Context, bucket, prefix string, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bucket != "" {
		cfg.Publish.Bucket = bucket
	}
	if prefix != "" {
		cfg.Publish.Prefix = prefix
	}

	p, err := publish.New(cfg, publish.Options{
		DryRun: dryRun,
		OnUpload: func(obj publish.Object) {
			info("%-28s → %s (%s)", obj.Name, obj.Key, formatBytes(obj.Size))
		},
	})
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(stdout, "  Dry run: would publish to s3://%s/%s\n\n", cfg.Publish.Bucket, cfg.Publish.Prefix)
	} else {
		fmt.Fprintf(stdout, "  Publishing to s3://%s/%s\n\n", cfg.Publish.Bucket, cfg.Publish.Prefix)
	}

	result, err := p.Publish(ctx)
	if err != nil {
		if result != nil && len(result.Objects) > 0 {
			warn("%d object(s) were uploaded before the failure", len(result.Objects))
		}
		return err
	}

	fmt.Fprintln(stdout)
	if dryRun {
		success("%d object(s) would be uploaded", len(result.Objects))
		return nil
	}
	success("Published %d object(s) in %s", len(result.Objects), result.Duration.Round(time.Millisecond))
	return nil
}
