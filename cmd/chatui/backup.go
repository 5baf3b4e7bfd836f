package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/chatui/internal/config"
	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/backup"
)

func backupCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Keep database snapshots in S3",
		Long: `Upload, list and restore database snapshots kept in an S3 bucket.

The bucket is configured in the "backup" section of chatui.json.
Credentials are read from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY;
without them requests are sent anonymously.`,
	}
	cmd.AddCommand(
		backupUploadCmd(flags),
		backupListCmd(flags),
		backupRestoreCmd(flags),
	)
	return cmd
}

func backupUploadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload a snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, target, err := backupTarget(cmd, flags)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			snap, err := backup.Take(cmd.Context(), db, time.Now())
			if err != nil {
				return err
			}
			key, err := target.Upload(cmd.Context(), snap)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Uploaded s3://%s/%s", cfg.Backup.Bucket, key)
			return nil
		},
	}
}

func backupListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the uploaded snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, target, err := backupTarget(cmd, flags)
			if err != nil {
				return err
			}
			objects, err := target.List(cmd.Context(), cfg.Storage.Database)
			if err != nil {
				return err
			}
			if len(objects) == 0 {
				info(cmd.OutOrStdout(), "No snapshots in s3://%s/%s", cfg.Backup.Bucket, cfg.Backup.Prefix)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
			for _, o := range objects {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func backupRestoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [key]",
		Short: "Restore a snapshot, the latest one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, target, err := backupTarget(cmd, flags)
			if err != nil {
				return err
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else if key, err = target.Latest(cmd.Context(), cfg.Storage.Database); err != nil {
				return err
			}
			if key == "" {
				return errors.New("E113").
					WithDetailf("no snapshots of %q in s3://%s/%s", cfg.Storage.Database, cfg.Backup.Bucket, cfg.Backup.Prefix)
			}

			snap, err := target.Download(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := restore(cmd, cfg, snap); err != nil {
				return err
			}
			info(cmd.OutOrStdout(), "from s3://%s/%s", cfg.Backup.Bucket, key)
			return nil
		},
	}
}

func backupTarget(cmd *cobra.Command, flags *globalFlags) (*config.Config, *backup.S3Target, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Backup.Enabled() {
		return nil, nil, errors.New("E121").
			WithDetail("backup.bucket is not set").
			WithSuggestion("Add a \"backup\" section with a bucket to chatui.json")
	}
	client := backup.NewS3Client(backup.ClientOptions{
		Region:          cfg.Backup.Region,
		Endpoint:        cfg.Backup.Endpoint,
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		UsePathStyle:    cfg.Backup.PathStyle,
	})
	return cfg, backup.NewS3Target(client, cfg.Backup.Bucket, cfg.Backup.Prefix), nil
}

// restore writes snap into the configured database.
func restore(cmd *cobra.Command, cfg *config.Config, snap *backup.Snapshot) error {
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	skipped, err := backup.Restore(cmd.Context(), db, snap)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Restored %s (%d stores)", snap.Database, len(snap.Stores)-len(skipped))
	printSkipped(cmd.OutOrStdout(), skipped)
	return nil
}
