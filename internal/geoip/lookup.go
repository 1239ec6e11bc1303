package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

type Database struct {
	reader *geoip2.Reader
}

func Open(path string) (*Database, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Database{reader: r}, nil
}

// Lookup returns the ISO country code for a host. Hostnames are resolved
// first; lookup failures degrade to "" rather than erroring, since country
// tags are decoration on the report.
func (d *Database) Lookup(host string) string {
	if d == nil || d.reader == nil {
		return ""
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil || len(addrs) == 0 {
			return ""
		}
		ip = addrs[0]
	}

	record, err := d.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func (d *Database) Close() {
	if d != nil && d.reader != nil {
		d.reader.Close()
	}
}
