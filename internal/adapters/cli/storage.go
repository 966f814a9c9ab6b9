package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"collectorkit/internal/infrastructure/storage"
)

func (a *App) withStorage(ctx context.Context, stats bool, fn func(*storage.Client) error) error {
	client, closer, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer closer()
	if err := fn(client); err != nil {
		return err
	}
	if stats {
		a.printLatency(client)
	}
	return nil
}

func (a *App) storageCmd() *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Upload, download and manage objects in the configured bucket backend",
		Long: `Objects are addressed as BUCKET/NAME. The backend (local, gcs or s3) comes
from STORAGE_BACKEND; transient failures are retried MAX_RETRY_ATTEMPTS times.`,
	}
	cmd.PersistentFlags().BoolVar(&stats, "stats", false, "print per-operation latency after the command")

	var contentType string
	upload := &cobra.Command{
		Use:   "upload BUCKET/NAME FILE",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			return a.withStorage(cmd.Context(), stats, func(c *storage.Client) error {
				info, err := c.Upload(cmd.Context(), args[0], f, storage.UploadOptions{ContentType: contentType})
				if err != nil {
					return err
				}
				a.print().Success(fmt.Sprintf("%s/%s uploaded (%d bytes, %s)", info.Bucket, info.Name, info.Size, info.ContentType))
				return nil
			})
		},
	}
	upload.Flags().StringVar(&contentType, "content-type", "", "override the detected content type")

	var output string
	download := &cobra.Command{
		Use:   "download BUCKET/NAME",
		Short: "Download an object to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStorage(cmd.Context(), stats, func(c *storage.Client) error {
				data, err := c.Download(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = a.out.Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "destination file (stdout by default)")

	var (
		prefix string
		limit  int
	)
	list := &cobra.Command{
		Use:     "ls BUCKET",
		Aliases: []string{"list"},
		Short:   "List the objects of a bucket",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStorage(cmd.Context(), stats, func(c *storage.Client) error {
				objects, err := c.Bucket(args[0]).Objects(cmd.Context(), storage.ListOptions{Prefix: prefix, Limit: limit})
				if err != nil {
					return err
				}
				rows := [][]string{{"NAME", "SIZE", "TYPE", "UPDATED"}}
				for _, o := range objects {
					rows = append(rows, []string{o.Name, strconv.FormatInt(o.Size, 10), o.ContentType, o.UpdatedAt.UTC().Format(time.RFC3339)})
				}
				a.print().Table(rows)
				return nil
			})
		},
	}
	list.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of objects")

	remove := &cobra.Command{
		Use:   "rm BUCKET/NAME",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStorage(cmd.Context(), stats, func(c *storage.Client) error {
				obj, err := c.Object(args[0])
				if err != nil {
					return err
				}
				if err := obj.Delete(cmd.Context()); err != nil {
					return err
				}
				a.print().Success(args[0] + " deleted")
				return nil
			})
		},
	}

	info := &cobra.Command{
		Use:   "info BUCKET/NAME",
		Short: "Show object metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStorage(cmd.Context(), stats, func(c *storage.Client) error {
				obj, err := c.Object(args[0])
				if err != nil {
					return err
				}
				o, err := obj.Info(cmd.Context())
				if err != nil {
					return err
				}
				p := a.print()
				p.Header(path.Join(o.Bucket, o.Name))
				fmt.Fprintf(p.w, "Size:         %d\n", o.Size)
				fmt.Fprintf(p.w, "Content-Type: %s\n", o.ContentType)
				fmt.Fprintf(p.w, "ETag:         %s\n", o.ETag)
				fmt.Fprintf(p.w, "Updated:      %s\n", o.UpdatedAt.UTC().Format(time.RFC3339))
				for _, k := range slices.Sorted(maps.Keys(o.Metadata)) {
					fmt.Fprintf(p.w, "  %s: %s\n", k, o.Metadata[k])
				}
				return nil
			})
		},
	}

	cmd.AddCommand(upload, download, list, remove, info)
	return cmd
}

func (a *App) printLatency(c *storage.Client) {
	rows := [][]string{{"OP", "COUNT", "P50", "P99", "MAX"}}
	for _, op := range []string{"upload", "download", "list", "delete", "info"} {
		s := c.Latency(op)
		if s.Count == 0 {
			continue
		}
		rows = append(rows, []string{op, strconv.FormatInt(s.Count, 10), s.P50.String(), s.P99.String(), s.Max.String()})
	}
	if len(rows) > 1 {
		a.print().Table(rows)
	}
}
