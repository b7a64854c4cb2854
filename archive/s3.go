/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package archive is an optional cold tier for sealed (non-open)
// partitions. It is never on the mmap hot path: object storage cannot
// be zero-copy mmap'd, so Archiver.Push/Fetch moves a whole partition
// directory's files as a deliberate batch and never substitutes for
// local partition access.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects the bucket and credentials an Archiver talks to.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible storage (MinIO, etc.)
	Bucket          string
	Prefix          string
	ForcePathStyle  bool // required for MinIO
}

// Archiver pushes/fetches whole partition directories to/from one bucket.
type Archiver struct {
	cfg    Config
	client *s3.Client
}

// New builds an Archiver: static credentials if given, falling back to
// the default credential chain otherwise.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return &Archiver{cfg: cfg, client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

func (a *Archiver) key(partitionKey, name string) string {
	if a.cfg.Prefix != "" {
		return a.cfg.Prefix + "/" + partitionKey + "/" + name
	}
	return partitionKey + "/" + name
}

// Push uploads every file under dir, one object per column/meta file.
// The whole object is replaced on each push since S3 has no append.
func (a *Archiver) Push(ctx context.Context, dir, partitionKey string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("archive: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("archive: read %s: %w", e.Name(), err)
		}
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(a.cfg.Bucket),
			Key:    aws.String(a.key(partitionKey, e.Name())),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("archive: put %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Fetch downloads a previously pushed partition's files into dir.
func (a *Archiver) Fetch(ctx context.Context, dir, partitionKey string) error {
	prefix := a.key(partitionKey, "")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("archive: mkdir %s: %w", dir, err)
	}
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("archive: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name := filepath.Base(*obj.Key)
			resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.cfg.Bucket), Key: obj.Key})
			if err != nil {
				return fmt.Errorf("archive: get %s: %w", *obj.Key, err)
			}
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("archive: read %s: %w", *obj.Key, err)
			}
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return fmt.Errorf("archive: write %s: %w", name, err)
			}
		}
	}
	return nil
}

// Remove deletes every object under a pushed partition's prefix.
func (a *Archiver) Remove(ctx context.Context, partitionKey string) error {
	prefix := a.key(partitionKey, "")
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("archive: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(a.cfg.Bucket), Key: obj.Key}); err != nil {
				return fmt.Errorf("archive: delete %s: %w", *obj.Key, err)
			}
		}
	}
	return nil
}
