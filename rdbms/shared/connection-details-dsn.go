package shared

import (
	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

// DsnConnectionDetails is a simple struct to hold a DSN only.
type DsnConnectionDetails struct {
	Dsn            string `errorTxt:"data source name i.e. connect string" mandatory:"yes"`
	OriginalScheme string
}

// String returns the DSN with redacted password.
// A DSN that cannot be parsed is hidden entirely.
func (d DsnConnectionDetails) String() string {
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return "<unparsable DSN>"
	}
	return u.Redacted()
}

// Parse returns the dburl.URL for the DSN.
func (d *DsnConnectionDetails) Parse() (*dburl.URL, error) {
	if d.Dsn == "" { // if the Dsn is invalid...
		return nil, errors.New("DSN not found")
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "DSN could not be parsed")
	}
	d.OriginalScheme = u.OriginalScheme
	return u, nil
}

// GetDsnConnectionDetails converts generic ConnectionDetails to DsnConnectionDetails
// and returns a pointer to the new struct.
func GetDsnConnectionDetails(c *ConnectionDetails) *DsnConnectionDetails {
	return &DsnConnectionDetails{
		Dsn: c.Data[DefaultConnectionKeyNames.Dsn],
	}
}
