package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	LicenseSheet  = "license"
	FeaturesSheet = "features"
)

// Document is the batch input: one license with its feature grants.
// The JSON keys follow the files already in circulation, "vender" included.
type Document struct {
	VendorName string        `json:"vender_name" validate:"required"`
	AppName    string        `json:"app_name" validate:"required"`
	MAC        string        `json:"mac" validate:"required"`
	Features   []FeatureSpec `json:"features" validate:"required,min=1,dive"`
}

// FeatureSpec is one feature grant of a Document. An empty Version grants
// the feature without a version.
type FeatureSpec struct {
	Name    string `json:"name" validate:"required"`
	Version string `json:"version" validate:"omitempty,numeric"`
	NumLics uint32 `json:"num_lics" validate:"gt=0"`
}

// ReadDocument reads a JSON document, or an .xlsx workbook when path has that
// extension, and validates it.
func ReadDocument(fs afero.Fs, path string, validate *validator.Validate) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var doc *Document
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		doc, err = parseWorkbook(bytes.NewReader(data))
	} else {
		doc, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid input %s: %w", path, err)
	}
	return doc, nil
}

func parseJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// parseWorkbook reads the license sheet as key/value rows and the features
// sheet as a table whose first row names the columns.
func parseWorkbook(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(LicenseSheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", LicenseSheet, err)
	}
	doc := &Document{}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		value := strings.TrimSpace(row[1])
		switch strings.ToLower(strings.TrimSpace(row[0])) {
		case "vender_name":
			doc.VendorName = value
		case "app_name":
			doc.AppName = value
		case "mac":
			doc.MAC = value
		}
	}

	rows, err = f.GetRows(FeaturesSheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", FeaturesSheet, err)
	}
	if len(rows) == 0 {
		return nil, errors.New("features sheet is empty")
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"name", "version", "num_lics"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("features sheet: missing column %q", name)
		}
	}

	cell := func(row []string, col string) string {
		i := cols[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	for n, row := range rows[1:] {
		name := cell(row, "name")
		if name == "" {
			continue
		}
		count, err := strconv.ParseUint(cell(row, "num_lics"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("features sheet row %d: num_lics: %w", n+2, err)
		}
		doc.Features = append(doc.Features, FeatureSpec{
			Name:    name,
			Version: cell(row, "version"),
			NumLics: uint32(count),
		})
	}
	return doc, nil
}
