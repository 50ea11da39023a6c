package tables

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/tablab/semtab/pkg/errors"
)

const filePermissions = 0644

// Load reads a table document from a .json, .yaml or .yml file.
// YAML goes through a JSON intermediate so that column and row order is
// preserved exactly as in the file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		jsonData, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
		data = jsonData
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	if doc.Columns == nil {
		doc.Columns = NewOrderedMap[*Column]()
	}
	if doc.Rows == nil {
		doc.Rows = NewOrderedMap[*Row]()
	}
	return &doc, nil
}

// Save writes a table document to a .json, .yaml or .yml file, keyed on
// the extension.
func Save(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WrapParse("json", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		yamlData, err := yaml.JSONToYAML(data)
		if err != nil {
			return errors.WrapParse("yaml", path, err)
		}
		data = yamlData
	}

	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
