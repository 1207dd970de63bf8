package console

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/wasm-slim/wasm-slim/pkg/styles"
)

// TableConfig describes a table to render.
type TableConfig struct {
	Title     string
	Headers   []string
	Rows      [][]string
	ShowTotal bool
	TotalRow  []string
}

// RenderTable renders config as an aligned plain-text table. An empty config
// renders as the empty string.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 && len(config.Rows) == 0 {
		return ""
	}

	widths := columnWidths(config)

	var b strings.Builder
	if config.Title != "" {
		b.WriteString(styles.Bold.Render(config.Title))
		b.WriteString("\n")
	}

	b.WriteString(renderRow(config.Headers, widths))
	b.WriteString(renderSeparator(widths))
	for _, row := range config.Rows {
		b.WriteString(renderRow(row, widths))
	}
	if config.ShowTotal && len(config.TotalRow) > 0 {
		b.WriteString(renderSeparator(widths))
		b.WriteString(renderRow(config.TotalRow, widths))
	}

	return b.String()
}

// RenderTableAsJSON renders the table rows as a JSON array of objects keyed
// by header. An empty config renders as "[]".
func RenderTableAsJSON(config TableConfig) (string, error) {
	records := make([]map[string]string, 0, len(config.Rows))
	for _, row := range config.Rows {
		record := make(map[string]string, len(config.Headers))
		for i, header := range config.Headers {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal table as JSON: %w", err)
	}
	return string(data), nil
}

// RenderStruct renders a struct or slice of structs as a table, using
// `console` struct tags to control columns:
//
//	Field string   `console:"header:Column Name"`
//	Other []string `console:"header:Other,omitempty"` // drop column if empty everywhere
//	List  []string `console:"title:Items,omitempty"`  // titled list after the table
//	Skip  any      `console:"-"`
//
// Untagged exported fields use the field name as the column header.
func RenderStruct(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	var items []reflect.Value
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i)
			for item.Kind() == reflect.Pointer {
				item = item.Elem()
			}
			items = append(items, item)
		}
	case reflect.Struct:
		items = []reflect.Value{rv}
	default:
		return fmt.Sprintf("%v", v)
	}

	if len(items) == 0 {
		return ""
	}

	elemType := items[0].Type()
	if elemType.Kind() != reflect.Struct {
		return fmt.Sprintf("%v", v)
	}

	var columns []structColumn
	var sections []structSection
	for i := 0; i < elemType.NumField(); i++ {
		field := elemType.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := parseConsoleTag(field)
		switch {
		case tag.skip:
			continue
		case tag.title != "":
			sections = append(sections, structSection{field: i, title: tag.title, omitEmpty: tag.omitEmpty})
		default:
			columns = append(columns, structColumn{field: i, header: tag.header, omitEmpty: tag.omitEmpty})
		}
	}

	config := TableConfig{}
	for _, col := range columns {
		values := make([]string, len(items))
		empty := true
		for i, item := range items {
			values[i] = formatCell(item.Field(col.field))
			if values[i] != "" {
				empty = false
			}
		}
		if col.omitEmpty && empty {
			continue
		}
		config.Headers = append(config.Headers, col.header)
		for i, value := range values {
			if len(config.Rows) <= i {
				config.Rows = append(config.Rows, nil)
			}
			config.Rows[i] = append(config.Rows[i], value)
		}
	}

	var b strings.Builder
	b.WriteString(RenderTable(config))
	for _, section := range sections {
		for _, item := range items {
			lines := sectionLines(item.Field(section.field))
			if section.omitEmpty && len(lines) == 0 {
				continue
			}
			b.WriteString("\n")
			b.WriteString(styles.Bold.Render(section.title + ":"))
			b.WriteString("\n")
			for _, line := range lines {
				b.WriteString(FormatListItem(line))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

type structColumn struct {
	field     int
	header    string
	omitEmpty bool
}

type structSection struct {
	field     int
	title     string
	omitEmpty bool
}

type consoleTag struct {
	skip      bool
	header    string
	title     string
	omitEmpty bool
}

func parseConsoleTag(field reflect.StructField) consoleTag {
	tag := consoleTag{header: field.Name}

	raw, ok := field.Tag.Lookup("console")
	if !ok {
		return tag
	}
	if raw == "-" {
		tag.skip = true
		return tag
	}

	for _, part := range strings.Split(raw, ",") {
		switch {
		case strings.HasPrefix(part, "header:"):
			tag.header = strings.TrimPrefix(part, "header:")
		case strings.HasPrefix(part, "title:"):
			tag.title = strings.TrimPrefix(part, "title:")
		case part == "omitempty":
			tag.omitEmpty = true
		}
	}
	return tag
}

func formatCell(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.String {
			parts := make([]string, v.Len())
			for i := 0; i < v.Len(); i++ {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, ", ")
		}
	case reflect.Invalid:
		return ""
	}
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Interface && v.IsNil() {
		return ""
	}
	return fmt.Sprintf("%v", v.Interface())
}

func sectionLines(v reflect.Value) []string {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		lines := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			lines = append(lines, fmt.Sprintf("%v", v.Index(i).Interface()))
		}
		return lines
	case reflect.String:
		if v.String() == "" {
			return nil
		}
		return []string{v.String()}
	default:
		return []string{fmt.Sprintf("%v", v.Interface())}
	}
}

func columnWidths(config TableConfig) []int {
	cols := len(config.Headers)
	for _, row := range config.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(config.Headers)
	for _, row := range config.Rows {
		measure(row)
	}
	if config.ShowTotal {
		measure(config.TotalRow)
	}
	return widths
}

func renderRow(row []string, widths []int) string {
	cells := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells[i] = cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ") + "\n"
}

func renderSeparator(widths []int) string {
	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * (len(widths) - 1)
	if total <= 0 {
		total = 1
	}
	return strings.Repeat("-", total) + "\n"
}
