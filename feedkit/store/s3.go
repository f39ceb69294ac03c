package store

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// SplitS3URI validates an s3://bucket/key-or-prefix URI and returns its
// parts.
func SplitS3URI(uri string) (bucket, key string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("store: the URI cannot be an empty string")
	}
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("store: the URI '%s' must start with the S3 scheme", uri)
	}
	pos := strings.IndexByte(rest, '/')
	switch {
	case pos < 0:
		return "", "", fmt.Errorf("store: the URI '%s' must consist of a bucket name and a key/prefix", uri)
	case pos == 0:
		return "", "", fmt.Errorf("store: the URI '%s' does not contain a bucket name", uri)
	case pos == len(rest)-1:
		return "", "", fmt.Errorf("store: the URI '%s' does not contain a key/prefix", uri)
	}
	return rest[:pos], rest[pos+1:], nil
}

// S3Client wraps the AWS SDK S3 API with the three calls the reader needs:
// sizing, ranged reads, and listing.
type S3Client struct {
	api s3iface.S3API
}

func NewS3Client(api s3iface.S3API) *S3Client {
	return &S3Client{api: api}
}

func (c *S3Client) ObjectSize(bucket, key, versionID string) (int64, error) {
	input := &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	out, err := c.api.HeadObject(input)
	if err != nil {
		return 0, fmt.Errorf("store: head s3://%s/%s: %w", bucket, key, err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

func (c *S3Client) ReadObject(bucket, key, versionID string, pos int64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", pos, pos+int64(len(p))-1)),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	out, err := c.api.GetObject(input)
	if err != nil {
		return 0, fmt.Errorf("store: get s3://%s/%s: %w", bucket, key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()
	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	if err != nil {
		return n, fmt.Errorf("store: read s3://%s/%s: %w", bucket, key, err)
	}
	return n, nil
}

func (c *S3Client) ListObjects(bucket, prefix string, fn func(uri string)) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)}
	err := c.api.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			fn("s3://" + bucket + "/" + aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("store: list s3://%s/%s: %w", bucket, prefix, err)
	}
	return nil
}

// s3Stream reads an object through ranged GETs. The size is fetched once at
// open.
type s3Stream struct {
	client    *S3Client
	bucket    string
	key       string
	versionID string
	size      int64
	pos       int64
	closed    bool
}

func openS3Stream(client *S3Client, uri, versionID string) (*s3Stream, error) {
	bucket, key, err := SplitS3URI(uri)
	if err != nil {
		return nil, err
	}
	size, err := client.ObjectSize(bucket, key, versionID)
	if err != nil {
		return nil, err
	}
	return &s3Stream{client: client, bucket: bucket, key: key, versionID: versionID, size: size}, nil
}

func (s *s3Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, streams.ErrClosed
	}
	if s.pos == s.size {
		return 0, io.EOF
	}
	if remaining := s.size - s.pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := s.client.ReadObject(s.bucket, s.key, s.versionID, s.pos, p)
	s.pos += int64(n)
	return n, err
}

func (s *s3Stream) SeekTo(pos int64) error {
	if s.closed {
		return streams.ErrClosed
	}
	if pos < 0 || pos > s.size {
		return fmt.Errorf("store: seek position %d out of range", pos)
	}
	s.pos = pos
	return nil
}

func (s *s3Stream) Size() (int64, bool) { return s.size, true }
func (s *s3Stream) Position() int64     { return s.pos }
func (s *s3Stream) Seekable() bool      { return true }
func (s *s3Stream) Closed() bool        { return s.closed }

func (s *s3Stream) Close() error {
	s.closed = true
	return nil
}

// S3Object is a data store over a single S3 object, optionally pinned to a
// version.
type S3Object struct {
	client      *S3Client
	uri         string
	versionID   string
	compression streams.Compression
	id          string
}

func NewS3Object(client *S3Client, uri, versionID string, compression streams.Compression) (*S3Object, error) {
	if _, _, err := SplitS3URI(uri); err != nil {
		return nil, err
	}
	id := uri
	if versionID != "" {
		id = uri + "@" + versionID
	}
	return &S3Object{client: client, uri: uri, versionID: versionID, compression: compression, id: id}, nil
}

func (s *S3Object) OpenRead() (streams.Stream, error) {
	logrus.Debugf("store: opening S3 object '%s'", s.id)

	stream, err := openS3Stream(s.client, s.uri, s.versionID)
	if err != nil {
		return nil, err
	}
	return streams.NewInflateStream(stream, effectiveCompression(s.compression, s.uri))
}

func (s *S3Object) ID() string     { return s.id }
func (s *S3Object) String() string { return quoteID("s3-object", s.id) }

// ListS3ObjectsParams controls dataset assembly from object storage.
type ListS3ObjectsParams struct {
	// URIs of the form s3://bucket/key-or-prefix.
	URIs []string
	// Pattern is an optional glob applied to the full object URI.
	Pattern string
	// Predicate is an optional caller filter applied to the full object
	// URI.
	Predicate   Predicate
	Compression streams.Compression
}

// ListS3Objects expands the given prefixes into object stores in natural sort
// order.
func ListS3Objects(client *S3Client, params ListS3ObjectsParams) ([]Store, error) {
	var uris []string

	for _, uri := range params.URIs {
		bucket, prefix, err := SplitS3URI(uri)
		if err != nil {
			return nil, err
		}
		err = client.ListObjects(bucket, prefix, func(objectURI string) {
			if params.Pattern != "" && !wildcardMatch(params.Pattern, objectURI) {
				return
			}
			if params.Predicate != nil && !params.Predicate(objectURI) {
				return
			}
			uris = append(uris, objectURI)
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(uris, func(i, j int) bool { return natLess(uris[i], uris[j]) })

	stores := make([]Store, 0, len(uris))
	for _, uri := range uris {
		s, err := NewS3Object(client, uri, "", params.Compression)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}
