package resumes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 - in-memory реализация s3API
type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	headErr error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_SaveReadDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3StoreWithClient(fake, "resumes")

	key, err := s.Save(ctx, 11, "cv.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "users/11/"))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "resumes", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, int64(len("pdf-bytes")), aws.ToInt64(fake.puts[0].ContentLength))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, s.Delete(ctx, key))

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Read(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("put failure", func(t *testing.T) {
		fake := newFakeS3()
		fake.putErr = errors.New("access denied")
		s := newS3StoreWithClient(fake, "b")

		_, err := s.Save(ctx, 1, "cv.pdf", strings.NewReader("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to put object")
	})

	t.Run("head failure is not 'missing'", func(t *testing.T) {
		fake := newFakeS3()
		fake.headErr = errors.New("network down")
		s := newS3StoreWithClient(fake, "b")

		exists, err := s.Exists(ctx, "users/1/x.pdf")
		require.Error(t, err)
		assert.False(t, exists)
	})

	t.Run("invalid key never reaches s3", func(t *testing.T) {
		s := newS3StoreWithClient(newFakeS3(), "b")

		_, err := s.Read(ctx, "../x")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)
}
