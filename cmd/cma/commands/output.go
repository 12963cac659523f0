package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	// NotAvailable is shown for missing table values.
	NotAvailable = "N/A"

	// Masked replaces secrets in output.
	Masked = "***"

	defaultJSONIndent = 2
)

// outputFormat returns the requested output format, defaulting to a table on
// a terminal and JSON otherwise.
func outputFormat() string {
	format := viper.GetString("output")
	if format != "" {
		return format
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return constants.FormatTable
	}

	return constants.FormatJSON
}

// render writes value as JSON or YAML, or calls table for table output.
func render(w io.Writer, format string, value interface{}, table func(*tablewriter.Table)) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	case constants.FormatTable:
		writer := tablewriter.NewWriter(w)
		table(writer)

		err := writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, format)
	}
}

// propertyTable renders a map as sorted Property/Value rows.
func propertyTable(values map[string]interface{}) func(*tablewriter.Table) {
	return func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			_ = table.Append(key, formatValue(values[key]))
		}
	}
}

// formatValue renders scalars as is and everything else as compact JSON.
func formatValue(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return NotAvailable
	case string:
		return typed
	case bool, float64, int:
		return fmt.Sprint(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(data)
	}
}

// metaString returns meta[key] of a decoded resource.
func metaString(resource map[string]interface{}, key string) string {
	meta, _ := resource["meta"].(map[string]interface{})

	value, ok := meta[key].(string)
	if !ok || value == "" {
		return NotAvailable
	}

	return value
}
