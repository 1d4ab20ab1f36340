package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var DefaultConnectionKeyNames = struct {
	Dsn  string
	Path string
}{
	Dsn:  "dsn",
	Path: "path",
}

// ConnectionDetails is intended to hold credentials for a logical database connection.
// Network databases are described by Data["dsn"] while SQLite uses Data["path"].
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"database type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"database logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Data[k]
		switch k {
		case DefaultConnectionKeyNames.Dsn:
			v = DsnConnectionDetails{Dsn: v}.String()
		case "password":
			v = "xxxxx"
		}
		x = append(x, fmt.Sprintf("  %v = %v", k, v))
	}
	return strings.Join(x, "\n")
}

// Redacted returns a copy of c with secrets removed from Data.
func (c ConnectionDetails) Redacted() ConnectionDetails {
	r := ConnectionDetails{Type: c.Type, LogicalName: c.LogicalName, Data: make(map[string]string, len(c.Data))}
	for k, v := range c.Data {
		switch k {
		case DefaultConnectionKeyNames.Dsn:
			v = DsnConnectionDetails{Dsn: v}.String()
		case "password":
			v = "xxxxx"
		}
		r.Data[k] = v
	}
	return r
}

// DBConnections is a map of logical connection name to ConnectionDetails.
type DBConnections map[string]ConnectionDetails

// LoadConnection implements ConnectionGetter.
func (c DBConnections) LoadConnection(name string) (ConnectionDetails, error) {
	d, ok := c[name]
	if !ok {
		return ConnectionDetails{}, fmt.Errorf("connection %q not found", name)
	}
	if d.LogicalName == "" {
		d.LogicalName = name
	}
	if d.Type == "" {
		return ConnectionDetails{}, errors.Errorf("connection %q has no type", name)
	}
	return d, nil
}
