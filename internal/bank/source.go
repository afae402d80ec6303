package bank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Source yields the raw rows of one sheet of a question bank workbook.
type Source interface {
	Rows(ctx context.Context, sheet string) ([][]string, error)
}

// NewSource picks an HTTP source for http(s) locations and a local workbook otherwise.
func NewSource(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout)
	}
	return &FileSource{Path: strings.TrimPrefix(location, "file://")}
}

// HTTPSource downloads an .xlsx export (for example a spreadsheet's
// export?format=xlsx link) on every call.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Rows(ctx context.Context, sheet string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &DataSourceError{Source: s.url, Sheet: sheet, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &DataSourceError{Source: s.url, Sheet: sheet, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &DataSourceError{
			Source: s.url,
			Sheet:  sheet,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		return nil, &DataSourceError{Source: s.url, Sheet: sheet, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	return sheetRows(f, s.url, sheet)
}

// FileSource reads a workbook from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) Rows(_ context.Context, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &DataSourceError{Source: s.Path, Sheet: sheet, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	return sheetRows(f, s.Path, sheet)
}

func sheetRows(f *excelize.File, source, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &DataSourceError{Source: source, Sheet: sheet, Err: fmt.Errorf("sheet not found")}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DataSourceError{Source: source, Sheet: sheet, Err: err}
	}
	return rows, nil
}
