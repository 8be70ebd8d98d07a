package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, nil
}

// TesseractOCR rasterises pages with poppler's pdftoppm and recognises them
// with the tesseract CLI.
type TesseractOCR struct {
	Pdftoppm  string
	Tesseract string
	DPI       int
	Language  string
	Run       Runner
}

func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{Pdftoppm: "pdftoppm", Tesseract: "tesseract", DPI: 300, Language: "eng", Run: execRunner}
}

// Available reports whether both binaries are on PATH.
func (o *TesseractOCR) Available() bool {
	if _, err := exec.LookPath(o.Pdftoppm); err != nil {
		return false
	}
	_, err := exec.LookPath(o.Tesseract)
	return err == nil
}

var pageImageRe = regexp.MustCompile(`-(\d+)\.png$`)

func (o *TesseractOCR) RecognizePDF(ctx context.Context, data []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "docchat-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, err
	}
	if _, err := o.Run(ctx, o.Pdftoppm, "-r", strconv.Itoa(o.DPI), "-png", src, filepath.Join(dir, "page")); err != nil {
		return nil, err
	}
	images, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	// pdftoppm zero-pads page numbers by page count; order numerically.
	sort.Slice(images, func(i, j int) bool { return pageNumber(images[i]) < pageNumber(images[j]) })

	pages := make([]string, 0, len(images))
	for _, img := range images {
		out, err := o.Run(ctx, o.Tesseract, img, "stdout", "-l", o.Language)
		if err != nil {
			return nil, err
		}
		pages = append(pages, string(out))
	}
	return pages, nil
}

func pageNumber(path string) int {
	m := pageImageRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
