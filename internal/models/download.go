// Package models resolves and downloads the ggml whisper models used for
// recognition.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL hosts the ggml conversions of the whisper models.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// quant names the quantized variants published for a model size. An
// empty field means that precision is not published.
type quant struct {
	int8, int5 string
}

// knownSizes are the model sizes published in ggml form, with their
// quantized variants.
var knownSizes = map[string]quant{
	"tiny":           {"q8_0", "q5_1"},
	"tiny.en":        {"q8_0", "q5_1"},
	"base":           {"q8_0", "q5_1"},
	"base.en":        {"q8_0", "q5_1"},
	"small":          {"q8_0", "q5_1"},
	"small.en":       {"q8_0", "q5_1"},
	"medium":         {"q8_0", "q5_0"},
	"medium.en":      {"q8_0", "q5_0"},
	"large-v1":       {},
	"large-v2":       {"q8_0", "q5_0"},
	"large-v3":       {"", "q5_0"},
	"large-v3-turbo": {"q8_0", "q5_0"},
}

// ErrUnpublished is returned by FileName for a size and precision pair
// that has no published ggml file.
var ErrUnpublished = errors.New("models: no published model for this compute type")

// FileName maps a model size and compute precision to the ggml file name,
// e.g. ("small.en", "int8") -> "ggml-small.en-q8_0.bin". "large" is an
// alias for the newest large model.
func FileName(size, precision string) (string, error) {
	if size == "large" {
		size = "large-v3"
	}
	q, ok := knownSizes[size]
	if !ok {
		return "", fmt.Errorf("models: unknown model size %q", size)
	}

	var variant string
	switch precision {
	case "", "auto", "float16":
		return "ggml-" + size + ".bin", nil
	case "int8":
		variant = q.int8
	case "int5":
		variant = q.int5
	default:
		return "", fmt.Errorf("models: unknown compute type %q", precision)
	}
	if variant == "" {
		return "", fmt.Errorf("%w: %s with %s", ErrUnpublished, size, precision)
	}
	return "ggml-" + size + "-" + variant + ".bin", nil
}

// Downloader fetches model files into a local directory.
type Downloader struct {
	BaseURL string
	Client  *http.Client
	Log     *slog.Logger
}

// NewDownloader returns a Downloader for DefaultBaseURL.
func NewDownloader(log *slog.Logger) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	return &Downloader{BaseURL: DefaultBaseURL, Client: http.DefaultClient, Log: log}
}

// Path returns where the model for size and precision lives in dir.
func Path(dir, size, precision string) (string, error) {
	name, err := FileName(size, precision)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Ensure returns the path of the model in dir, downloading it first if it
// is missing. Partial downloads never appear under the final name.
func (d *Downloader) Ensure(ctx context.Context, dir, size, precision string) (string, error) {
	name, err := FileName(size, precision)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		d.Log.Debug("model already present", "path", dest, "mb", mb(info.Size()))
		return dest, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}
	if err := d.download(ctx, strings.TrimSuffix(d.BaseURL, "/")+"/"+name, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (d *Downloader) download(ctx context.Context, url, dest string) error {
	d.Log.Info("downloading model", "url", url, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("models: building request: %w", err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("models: downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("models: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	pw := &progressWriter{writer: tmp, total: resp.ContentLength, label: filepath.Base(dest), log: d.Log}
	written, err := io.Copy(pw, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: writing model file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: moving model file: %w", err)
	}
	d.Log.Info("model downloaded", "path", dest, "mb", mb(written))
	return nil
}

// progressWriter logs download progress every tenth of the total.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	next    int64
	label   string
	log     *slog.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 && pw.written >= pw.next {
		pct := pw.written * 100 / pw.total
		pw.log.Info("download progress", "file", pw.label, "percent", pct, "mb", mb(pw.written))
		pw.next = (pct/10 + 1) * pw.total / 10
	}
	return n, err
}

func mb(n int64) string {
	return fmt.Sprintf("%.1f", float64(n)/(1024*1024))
}
