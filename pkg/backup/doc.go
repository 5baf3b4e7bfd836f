// Package backup exports a webdb database to a JSON snapshot, restores
// snapshots, and keeps snapshots in an S3 bucket.
//
//	snap, err := backup.Take(ctx, db, time.Now())
//	key, err := backup.NewS3Target(client, "my-bucket", "chatui/").Upload(ctx, snap)
package backup
