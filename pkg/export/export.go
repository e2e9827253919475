// Package export publishes analysis artifacts (projection, report, paths) to
// a local directory or an S3 bucket, optionally snappy-compressed.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-attackpath/pkg/analysis"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
)

const (
	jsonContentType   = "application/json"
	snappyContentType = "application/x-snappy"
	snappySuffix      = ".sz"
)

// Artifact is one encoded document ready for a sink.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

// Compressed reports whether the body is snappy-encoded.
func (a Artifact) Compressed() bool {
	return strings.HasSuffix(a.Name, snappySuffix)
}

// Sink stores artifacts.
type Sink interface {
	// Kind labels the sink in metrics and logs.
	Kind() string
	Write(ctx context.Context, a Artifact) error
}

// Encode marshals v as indented JSON under name. With compress the body is
// snappy block-encoded and ".sz" is appended to the name.
func Encode(name string, v any, compress bool) (Artifact, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", name, err)
	}
	if !compress {
		return Artifact{Name: name, ContentType: jsonContentType, Body: body}, nil
	}
	return Artifact{
		Name:        name + snappySuffix,
		ContentType: snappyContentType,
		Body:        snappy.Encode(nil, body),
	}, nil
}

// Decode reverses Encode.
func Decode(a Artifact, v any) error {
	body := a.Body
	if a.Compressed() {
		var err error
		if body, err = snappy.Decode(nil, a.Body); err != nil {
			return fmt.Errorf("decode %s: %w", a.Name, err)
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", a.Name, err)
	}
	return nil
}

// Options control what Publish writes.
type Options struct {
	Compress     bool
	IncludePaths bool
	Metrics      *metrics.Registry
	Logger       logging.Logger
}

type document struct {
	name string
	v    any
}

// Publish writes projection.json and report.json (and paths.json when
// IncludePaths is set) under the result's request id. It returns the names
// written. Every artifact is attempted; failures are joined.
func Publish(ctx context.Context, sink Sink, res *analysis.Result, opts Options) ([]string, error) {
	if res == nil {
		return nil, errors.New("export: nil result")
	}
	log := logging.OrDefault(opts.Logger).With(logging.Component("export"), logging.RequestID(res.RequestID))

	docs := []document{
		{"projection.json", res.Projection},
		{"report.json", res.Report},
	}
	if opts.IncludePaths {
		docs = append(docs, document{"paths.json", res.Paths})
	}

	var (
		written []string
		errs    []error
	)
	for _, d := range docs {
		a, err := Encode(path.Join(res.RequestID, d.name), d.v, opts.Compress)
		if err == nil {
			err = sink.Write(ctx, a)
		}

		status := "success"
		if err != nil {
			status = "error"
			errs = append(errs, err)
			log.Error("artifact export failed", logging.String("artifact", a.Name), logging.String("sink", sink.Kind()), logging.Error(err))
		} else {
			written = append(written, a.Name)
			log.Debug("artifact exported", logging.String("artifact", a.Name), logging.Int("bytes", len(a.Body)))
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordExport(sink.Kind(), status)
		}
	}
	return written, errors.Join(errs...)
}
