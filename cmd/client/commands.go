package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gostones/emotion-report/internal/download"
	"github.com/gostones/emotion-report/internal/form"
	"github.com/gostones/emotion-report/internal/objectstore"
	"github.com/gostones/emotion-report/internal/reports"
	"github.com/gostones/emotion-report/internal/types"
	"github.com/gostones/emotion-report/internal/upload"
)

var (
	requestS3  s3Flags
	preflight  bool
	checkS3    s3Flags
	uploadS3   s3Flags
	uploadFile string
	noCreate   bool
	outputDir  string
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Ask the backend to analyse a video stored in S3",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var submitter form.Submitter = backend
		if preflight || cfg.Preflight {
			submitter = objectstore.NewPreflightSubmitter(backend)
		}
		list := reports.NewList(backend)
		f := form.New(submitter, list)

		req := requestS3.request()
		for _, field := range types.Fields {
			if err := f.Set(field, req.Get(field)); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "Analysing emotions, this can take a while...")
		id, err := f.Submit(cmd.Context())
		if id != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Report result %s generated.\n\n", id)
		}
		if err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), list)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List report results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list := reports.NewList(backend)
		if err := list.Load(cmd.Context()); err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), list)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <reportResultId>",
	Short: "Show one report result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report result id %q", args[0])
		}
		res, err := backend.ReportResult(cmd.Context(), id)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for i, cell := range res.Cells() {
			fmt.Fprintf(w, "%s\t%s\n", types.Columns[i], cell)
		}
		return w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the last report as " + download.Filename,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := download.New(backend).SaveFile(cmd.Context(), outputDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a video to S3, creating the bucket if needed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := uploadS3.request()
		if req.KeyName == "" {
			req.KeyName = filepath.Base(uploadFile)
		}

		svc, err := upload.NewS3Client(req)
		if err != nil {
			return err
		}
		u := upload.NewUploader(svc, cfg.Upload.PartSize, cfg.Upload.Concurrency)

		if !noCreate {
			if _, err := u.EnsureBucket(ctx, req.BucketName); err != nil {
				return err
			}
		}

		done := make(chan struct{})
		defer close(done)
		go reportProgress(u, done)

		res, err := u.Upload(ctx, uploadFile, req.BucketName, req.KeyName)
		if err != nil {
			return err
		}
		log.Info().
			Str("bucket", res.Bucket).
			Str("key", res.Key).
			Int64("size", res.Size).
			Int("parts", res.Parts).
			Msg("upload complete")
		fmt.Fprintln(cmd.OutOrStdout(), res.Location)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the video object exists and is readable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := objectstore.NewProbe(checkS3.request())
		if err != nil {
			return err
		}
		info, err := p.Check(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %d bytes %s %s\n",
			info.Bucket, info.Key, info.Size, info.ContentType, info.LastModified.Format(time.RFC3339))
		return nil
	},
}

func init() {
	requestS3.register(requestCmd)
	requestCmd.Flags().BoolVar(&preflight, "preflight", false, "Check the object exists before requesting the report")

	checkS3.register(checkCmd)

	uploadS3.register(uploadCmd)
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "Local video to upload")
	uploadCmd.Flags().BoolVar(&noCreate, "no-create-bucket", false, "Fail instead of creating a missing bucket")
	uploadCmd.MarkFlagRequired("file")

	downloadCmd.Flags().StringVarP(&outputDir, "dir", "d", ".", "Directory to save the report in")
}

func reportProgress(u *upload.Uploader, done <-chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			log.Info().Int64("uploaded", u.Progress()).Msg("uploading")
		}
	}
}

func printTable(w io.Writer, list *reports.List) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range list.Columns() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, row := range list.Rows() {
		for i, cell := range row.Cells {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
