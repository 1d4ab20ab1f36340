package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	yamlv2 "gopkg.in/yaml.v2"
)

// printOutput writes v to w as JSON or YAML.
func printOutput(w io.Writer, v interface{}, format string) error {
	var (
		b   []byte
		err error
	)
	switch format {
	case "json", "":
		b, err = json.MarshalIndent(v, "", "  ")
	case "yaml":
		b, err = yamlv2.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q, use json or yaml", format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
