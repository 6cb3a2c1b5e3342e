package diagnostics

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

type fakeS3 struct {
	s3iface.S3API
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.StringValue(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestCaptureWritesLocalFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	r := NewRecorder(dir, nil, logging.NewNopLogger())

	written, err := r.Capture(context.Background(), Artifact{
		Source:     "escalafon",
		RunID:      "escalafon-1234abcd",
		Reason:     "empty",
		HTML:       "<html></html>",
		Screenshot: []byte{0x89, 'P', 'N', 'G'},
	})
	require.NoError(t, err)
	require.Len(t, written, 2)

	html, err := os.ReadFile(filepath.Join(dir, "escalafon-escalafon-1234abcd.html"))
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(html))
	require.FileExists(t, filepath.Join(dir, "escalafon-escalafon-1234abcd.png"))
}

func TestCaptureSkipsMissingScreenshot(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, nil, logging.NewNopLogger())

	written, err := r.Capture(context.Background(), Artifact{Source: "cronicas", RunID: "r1", HTML: "<p></p>"})
	require.NoError(t, err)
	require.Len(t, written, 1)
	require.NoFileExists(t, filepath.Join(dir, "cronicas-r1.png"))
}

func TestCaptureUploadsToSpaces(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}}
	uploader := newSpacesUploader(fake, config.SpacesConfig{
		BucketName:  "taurino-debug",
		Region:      "ams3",
		CDNEndpoint: "https://cdn.example.com/",
	}, logging.NewNopLogger())
	r := NewRecorder(t.TempDir(), uploader, logging.NewNopLogger())

	written, err := r.Capture(context.Background(), Artifact{Source: "servitoro", RunID: "r2", HTML: "<html/>"})
	require.NoError(t, err)
	require.Contains(t, written, "https://cdn.example.com/debug/servitoro/servitoro-r2.html")
	require.Equal(t, []byte("<html/>"), fake.puts["debug/servitoro/servitoro-r2.html"])
}

func TestCaptureUploadFailureIsNotAnError(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}, err: errors.New("access denied")}
	uploader := newSpacesUploader(fake, config.SpacesConfig{BucketName: "b", Region: "ams3"}, logging.NewNopLogger())
	r := NewRecorder(t.TempDir(), uploader, logging.NewNopLogger())

	written, err := r.Capture(context.Background(), Artifact{Source: "servitoro", RunID: "r3", HTML: "<html/>"})
	require.NoError(t, err)
	require.Len(t, written, 1)
}

func TestPublicBaseURL(t *testing.T) {
	require.Equal(t, "https://cdn.example.com", publicBaseURL(config.SpacesConfig{CDNEndpoint: "https://cdn.example.com/"}))
	require.Equal(t, "https://bucket.ams3.digitaloceanspaces.com", publicBaseURL(config.SpacesConfig{BucketURL: "bucket.ams3.digitaloceanspaces.com"}))
	require.Equal(t, "https://b.fra1.digitaloceanspaces.com", publicBaseURL(config.SpacesConfig{BucketName: "b", Region: "fra1"}))
}

func TestNewDisabled(t *testing.T) {
	r, err := New(&config.Config{}, logging.NewNopLogger())
	require.NoError(t, err)
	require.Nil(t, r)
}
