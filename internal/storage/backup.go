package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const backupPrefix = "wheat-save-"

// BackupInfo describes one backup object in the bucket.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
}

// S3Backup uploads the save database to an S3-compatible bucket and rotates
// old backups. Optional: constructed only when a bucket is configured.
type S3Backup struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	dbPath   string
	log      zerolog.Logger
}

// NewS3Backup creates the backup service using the default AWS credential
// chain for the given region.
func NewS3Backup(ctx context.Context, bucket, region, dbPath string, log zerolog.Logger) (*S3Backup, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Backup{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		dbPath:   dbPath,
		log:      log.With().Str("component", "s3_backup").Logger(),
	}, nil
}

// Upload pushes a timestamped copy of the save database to the bucket.
func (b *S3Backup) Upload(ctx context.Context) error {
	start := time.Now()

	file, err := os.Open(b.dbPath)
	if err != nil {
		return fmt.Errorf("storage: failed to open save database: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("storage: failed to stat save database: %w", err)
	}

	key := backupPrefix + time.Now().UTC().Format("2006-01-02-150405") + ".db"
	_, err = b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("storage: failed to upload backup: %w", err)
	}

	b.log.Info().
		Str("key", key).
		Int64("size_bytes", info.Size()).
		Dur("duration_ms", time.Since(start)).
		Msg("Backup uploaded")
	return nil
}

// List returns the backups in the bucket, newest first.
func (b *S3Backup) List(ctx context.Context) ([]BackupInfo, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(backupPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		stamp := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), ".db")
		ts, err := time.Parse("2006-01-02-150405", stamp)
		if err != nil {
			b.log.Warn().Str("key", key).Msg("Skipping backup with unparseable timestamp")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       key,
			Timestamp: ts,
			SizeBytes: aws.ToInt64(obj.Size),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Rotate deletes backups older than the retention period, always keeping
// the newest three.
func (b *S3Backup) Rotate(ctx context.Context, retentionDays int) error {
	backups, err := b.List(ctx)
	if err != nil {
		return err
	}

	const minToKeep = 3
	if len(backups) <= minToKeep || retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, backup := range backups {
		if i < minToKeep || backup.Timestamp.After(cutoff) {
			continue
		}
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(backup.Key),
		})
		if err != nil {
			b.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	b.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return nil
}

// BackupJob runs upload and rotation on the scheduler.
type BackupJob struct {
	backup        *S3Backup
	retentionDays int
}

// NewBackupJob wraps an S3Backup as a scheduled job.
func NewBackupJob(backup *S3Backup, retentionDays int) *BackupJob {
	return &BackupJob{backup: backup, retentionDays: retentionDays}
}

// Name implements scheduler.Job
func (j *BackupJob) Name() string { return "s3_backup" }

// Run implements scheduler.Job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.backup.Upload(ctx); err != nil {
		return err
	}
	return j.backup.Rotate(ctx, j.retentionDays)
}
