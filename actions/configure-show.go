package actions

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/relloyd/campaignpipe/config"
)

// RunConfigShow writes the effective configuration to out with passwords redacted.
func RunConfigShow(cfg *config.Config, out io.Writer, format string) error {
	if cfg == nil {
		return fmt.Errorf("nil pointer for config supplied")
	}
	r := cfg.Redacted()
	var (
		b   []byte
		err error
	)
	switch format {
	case "yaml", "":
		b, err = r.ToYaml()
	case "json":
		b, err = json.MarshalIndent(r, "", "  ")
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
