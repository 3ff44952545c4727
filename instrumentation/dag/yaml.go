package dag

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes documents as YAML to an afs URL
type YAMLExporter struct {
	ctx context.Context
	fs  afs.Service
	URL string
}

// Export uploads the document
func (e *YAMLExporter) Export(doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err = e.fs.Upload(e.ctx, e.URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload dag to %v: %w", e.URL, err)
	}
	return nil
}

// NewYAMLExporter creates an exporter writing to URL
func NewYAMLExporter(ctx context.Context, URL string) *YAMLExporter {
	return &YAMLExporter{ctx: ctx, fs: afs.New(), URL: URL}
}
