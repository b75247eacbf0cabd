package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config configures an S3 (or S3-compatible) storage.
type S3Config struct {
	Bucket    string
	Prefix    string // key prefix the storage root maps to
	Region    string
	Endpoint  string // custom endpoint for MinIO and friends; path-style addressing
	AccessKey string
	SecretKey string
}

// S3Driver maps storage identifiers onto object keys. Folders are key
// prefixes; CreateFolder writes an empty "<prefix>/" marker object.
type S3Driver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Driver creates a driver from cfg using the default AWS credential
// chain unless static keys are given.
func NewS3Driver(ctx context.Context, cfg S3Config) (*S3Driver, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Driver(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Driver(client *s3.Client, bucket, prefix string) *S3Driver {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Driver{client: client, bucket: bucket, prefix: prefix}
}

func (d *S3Driver) Type() string { return "s3" }

func (d *S3Driver) Close() error { return nil }

// key maps an identifier onto an object key; folder keys keep their trailing slash.
func (d *S3Driver) key(identifier string) string {
	return d.prefix + strings.TrimPrefix(identifier, "/")
}

// identifier maps an object key back onto a storage identifier.
func (d *S3Driver) identifier(key string) string {
	return "/" + strings.TrimPrefix(key, d.prefix)
}

func (d *S3Driver) FolderExists(ctx context.Context, folder string) (bool, error) {
	folder = NormalizeFolder(folder)
	if folder == "/" {
		return true, nil
	}

	out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.bucket),
		Prefix:  aws.String(d.key(folder)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("check folder %s: %w", folder, mapS3Error(err, ErrFolderNotFound))
	}
	return len(out.Contents) > 0, nil
}

func (d *S3Driver) FileExists(ctx context.Context, identifier string) (bool, error) {
	_, err := d.Stat(ctx, identifier)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d *S3Driver) CreateFolder(ctx context.Context, folder string) error {
	folder = NormalizeFolder(folder)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.key(folder)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("create folder %s: %w", folder, mapS3Error(err, ErrFolderNotFound))
	}
	return nil
}

func (d *S3Driver) ListFiles(ctx context.Context, folder string, recursive bool) ([]FileInfo, error) {
	folder = NormalizeFolder(folder)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(d.key(folder)),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var files []FileInfo
	paginator := s3.NewListObjectsV2Paginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folder, mapS3Error(err, ErrFolderNotFound))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || hasHiddenSegment(d.identifier(key)) {
				continue
			}
			files = append(files, FileInfo{
				Identifier: d.identifier(key),
				Size:       aws.ToInt64(obj.Size),
				ModTime:    aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Identifier < files[j].Identifier })
	return files, nil
}

func (d *S3Driver) ListFolders(ctx context.Context, folder string, recursive bool) ([]string, error) {
	folder = NormalizeFolder(folder)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(d.key(folder)),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	seen := make(map[string]bool)
	paginator := s3.NewListObjectsV2Paginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list folders of %s: %w", folder, mapS3Error(err, ErrFolderNotFound))
		}
		for _, p := range page.CommonPrefixes {
			seen[d.identifier(aws.ToString(p.Prefix))] = true
		}
		if !recursive {
			continue
		}
		// Every intermediate prefix of a key below folder is a folder
		for _, obj := range page.Contents {
			for _, f := range intermediateFolders(folder, d.identifier(aws.ToString(obj.Key))) {
				seen[f] = true
			}
		}
	}

	folders := make([]string, 0, len(seen))
	for f := range seen {
		if f != folder && !hasHiddenSegment(f) {
			folders = append(folders, f)
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// intermediateFolders lists the folders between root and identifier,
// excluding root itself.
func intermediateFolders(root, identifier string) []string {
	rest := strings.TrimPrefix(identifier, root)
	parts := strings.Split(rest, "/")

	var out []string
	current := root
	// The last part is the file name (or empty for a folder marker)
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		current += part + "/"
		out = append(out, current)
	}
	return out
}

func hasHiddenSegment(identifier string) bool {
	for _, s := range segments(identifier) {
		if isHidden(s) {
			return true
		}
	}
	return false
}

func (d *S3Driver) Stat(ctx context.Context, identifier string) (FileInfo, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(identifier)),
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", identifier, mapS3Error(err, ErrFileNotFound))
	}
	return FileInfo{
		Identifier: NormalizeFile(identifier),
		Size:       aws.ToInt64(out.ContentLength),
		ModTime:    aws.ToTime(out.LastModified),
	}, nil
}

func (d *S3Driver) Open(ctx context.Context, identifier string) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(identifier)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", identifier, mapS3Error(err, ErrFileNotFound))
	}
	return out.Body, nil
}

// Move copies the object to dst and removes the source.
func (d *S3Driver) Move(ctx context.Context, src, dst string) error {
	exists, err := d.FileExists(ctx, dst)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("move %s to %s: %w", src, dst, ErrExists)
	}

	source := (&url.URL{Path: d.bucket + "/" + d.key(src)}).EscapedPath()
	_, err = d.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(d.bucket),
		Key:        aws.String(d.key(dst)),
		CopySource: aws.String(source),
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, mapS3Error(err, ErrFileNotFound))
	}

	if err := d.Delete(ctx, src); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

func (d *S3Driver) Delete(ctx context.Context, identifier string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(identifier)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", identifier, mapS3Error(err, ErrFileNotFound))
	}
	return nil
}

func mapS3Error(err error, notFound error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return fmt.Errorf("%w: %w", notFound, err)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return err
	}
}
