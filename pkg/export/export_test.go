package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-attackpath/pkg/analysis"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/reporting"
	"github.com/dd0wney/cluso-attackpath/pkg/visualization"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		RequestID:  "req-42",
		Operation:  analysis.OpAnalyze,
		Projection: visualization.BuildProjection(nil),
		Report:     reporting.BuildReport(nil),
	}
}

func TestEncodeDecode(t *testing.T) {
	report := reporting.BuildReport(nil)

	for _, compress := range []bool{false, true} {
		a, err := Encode("report.json", report, compress)
		require.NoError(t, err)
		assert.Equal(t, compress, a.Compressed())

		if compress {
			assert.Equal(t, "report.json.sz", a.Name)
			assert.Equal(t, snappyContentType, a.ContentType)
		} else {
			assert.Equal(t, "report.json", a.Name)
			assert.Contains(t, string(a.Body), `"no_paths_found": true`)
		}

		var decoded reporting.Report
		require.NoError(t, Decode(a, &decoded))
		assert.True(t, decoded.NoPathsFound)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	err := Decode(Artifact{Name: "x.json.sz", Body: []byte("not snappy")}, &struct{}{})
	assert.Error(t, err)
}

func TestEncodeUnsupportedValue(t *testing.T) {
	_, err := Encode("bad.json", make(chan int), false)
	assert.Error(t, err)
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	names, err := Publish(context.Background(), sink, sampleResult(), Options{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42/projection.json.sz", "req-42/report.json.sz"}, names)

	body, err := os.ReadFile(filepath.Join(dir, "req-42", "report.json.sz"))
	require.NoError(t, err)

	var decoded reporting.Report
	require.NoError(t, Decode(Artifact{Name: "report.json.sz", Body: body}, &decoded))
	assert.True(t, decoded.NoPathsFound)
}

func TestFileSinkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFileSink(t.TempDir()).Write(ctx, Artifact{Name: "a.json"})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "findings", "attackpath/runs")
	reg := metrics.NewRegistry()

	names, err := Publish(context.Background(), sink, sampleResult(), Options{IncludePaths: true, Metrics: reg})
	require.NoError(t, err)
	assert.Len(t, names, 3)

	for _, key := range []string{
		"findings/attackpath/runs/req-42/projection.json",
		"findings/attackpath/runs/req-42/report.json",
		"findings/attackpath/runs/req-42/paths.json",
	} {
		assert.Contains(t, client.puts, key)
	}

	var m dto.Metric
	require.NoError(t, reg.ExportsTotal.WithLabelValues("s3", "success").Write(&m))
	assert.Equal(t, 3.0, m.Counter.GetValue())
}

func TestPublishJoinsFailures(t *testing.T) {
	boom := errors.New("access denied")
	reg := metrics.NewRegistry()

	names, err := Publish(context.Background(), NewS3Sink(&fakeS3{err: boom}, "b", ""), sampleResult(), Options{Metrics: reg})
	assert.Empty(t, names)
	assert.ErrorIs(t, err, boom)

	var m dto.Metric
	require.NoError(t, reg.ExportsTotal.WithLabelValues("s3", "error").Write(&m))
	assert.Equal(t, 2.0, m.Counter.GetValue())
}

func TestPublishNilResult(t *testing.T) {
	_, err := Publish(context.Background(), NewFileSink(t.TempDir()), nil, Options{})
	assert.Error(t, err)
}

func TestNewS3SinkFromConfig(t *testing.T) {
	_, err := NewS3SinkFromConfig(context.Background(), S3Config{})
	assert.Error(t, err, "bucket is required")

	sink, err := NewS3SinkFromConfig(context.Background(), S3Config{
		Bucket:          "findings",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", sink.Kind())
}
