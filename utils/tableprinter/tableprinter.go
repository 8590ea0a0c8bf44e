package tableprinter

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
)

// PrintAsTable prints the fields and values of a slice of structs (or struct pointers) as a table.
// Headers are the json names of the fields; fields selects and orders them by Go field name.
func PrintAsTable(out io.Writer, data interface{}, fields ...string) error {
	val := reflect.ValueOf(data)

	if val.Kind() != reflect.Slice {
		return fmt.Errorf("input must be a slice")
	}

	if val.Len() == 0 {
		fmt.Fprintln(out, "No data to display.")
		return nil
	}

	elementType := val.Type().Elem()
	isPtr := false
	if elementType.Kind() == reflect.Ptr {
		elementType = elementType.Elem()
		isPtr = true
	}
	if elementType.Kind() != reflect.Struct {
		return fmt.Errorf("slice elements must be structs or pointers to structs")
	}

	headers, fieldIndices, err := columns(elementType, fields)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t")+"\t")

	for i := 0; i < val.Len(); i++ {
		element := val.Index(i)
		if isPtr {
			if element.IsNil() {
				continue
			}
			element = element.Elem()
		}

		values := make([]string, len(fieldIndices))
		for k, j := range fieldIndices {
			values[k] = fmt.Sprintf("%v", element.Field(j).Interface())
		}
		fmt.Fprintln(w, strings.Join(values, "\t")+"\t")
	}

	return w.Flush()
}

// PrintKeyValues prints one struct as FIELD/VALUE rows
func PrintKeyValues(out io.Writer, data interface{}) error {
	val := reflect.Indirect(reflect.ValueOf(data))
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("input must be a struct or a pointer to a struct")
	}

	headers, fieldIndices, err := columns(val.Type(), nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE\t")
	for k, j := range fieldIndices {
		fmt.Fprintf(w, "%s\t%v\t\n", headers[k], val.Field(j).Interface())
	}
	return w.Flush()
}

// columns resolves the exported fields to print and their headers
func columns(structType reflect.Type, fields []string) ([]string, []int, error) {
	var headers []string
	var fieldIndices []int

	if len(fields) == 0 {
		for i := 0; i < structType.NumField(); i++ {
			field := structType.Field(i)
			if !field.IsExported() {
				continue
			}
			header, ok := headerFor(field)
			if !ok {
				continue
			}
			headers = append(headers, header)
			fieldIndices = append(fieldIndices, i)
		}
		return headers, fieldIndices, nil
	}

	for _, fieldName := range fields {
		field, found := structType.FieldByName(fieldName)
		if !found || len(field.Index) != 1 || !field.IsExported() {
			return nil, nil, fmt.Errorf("field '%s' not found in struct", fieldName)
		}
		header, _ := headerFor(field)
		headers = append(headers, header)
		fieldIndices = append(fieldIndices, field.Index[0])
	}
	return headers, fieldIndices, nil
}

// headerFor returns the json name of a field, or its Go name when untagged.
// Fields tagged json:"-" are not printed.
func headerFor(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return field.Name, true
}
