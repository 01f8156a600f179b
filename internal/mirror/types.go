package mirror

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protocol is the transport a mirror serves packages over.
type Protocol string

const (
	ProtocolFTP   Protocol = "ftp"
	ProtocolHTTPS Protocol = "https"
	ProtocolHTTP  Protocol = "http"
	ProtocolRsync Protocol = "rsync"
)

// ParseProtocol validates a protocol name from config or query input.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(s)
	if !p.valid() {
		return "", fmt.Errorf("unknown protocol %q", s)
	}
	return p, nil
}

func (p Protocol) valid() bool {
	switch p {
	case ProtocolFTP, ProtocolHTTPS, ProtocolHTTP, ProtocolRsync:
		return true
	}
	return false
}

// SortKey selects the ranking order for a mirror list.
type SortKey string

const (
	// SortAge orders by last server synchronisation, oldest first.
	SortAge SortKey = "age"
	// SortRate orders by measured download rate, fastest first.
	SortRate SortKey = "rate"
	// SortCountry orders by country name, alphabetically.
	SortCountry SortKey = "country"
	// SortScore orders by mirror status score, lower is better.
	SortScore SortKey = "score"
	// SortDelay orders by mirror status delay, lower is better.
	SortDelay SortKey = "delay"
)

// ParseSortKey validates a sort key name from config or query input.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortAge, SortRate, SortCountry, SortScore, SortDelay:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Mirror is one candidate mirror from the status document. All fields
// except DownloadRate come from the decoded JSON and are never mutated
// afterwards; DownloadRate is set only by a completed probe.
type Mirror struct {
	URL         string     `json:"url"`
	Protocol    Protocol   `json:"protocol"`
	Score       *float64   `json:"score"`
	Delay       *float64   `json:"delay"`
	Country     *string    `json:"country"`
	CountryCode *string    `json:"country_code"`
	LastSync    *time.Time `json:"last_sync"`
	Isos        *bool      `json:"isos"`
	IPv4        *bool      `json:"ipv4"`
	IPv6        *bool      `json:"ipv6"`
	Details     string     `json:"details"`

	// DownloadRate is the measured transfer rate in kB/s. It is nil
	// until a probe succeeds. NaN means the probe completed but
	// transferred zero bytes.
	DownloadRate *float64 `json:"-"`
}

// UnmarshalJSON applies the https protocol default and rejects
// protocols outside the known set.
func (m *Mirror) UnmarshalJSON(data []byte) error {
	type alias Mirror
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Protocol == "" {
		a.Protocol = ProtocolHTTPS
	}
	if !a.Protocol.valid() {
		return fmt.Errorf("mirror %s: unknown protocol %q", a.URL, a.Protocol)
	}
	*m = Mirror(a)
	return nil
}

// Age returns the elapsed time since the last synchronisation, or nil
// when the mirror never reported one. A future last_sync yields a
// negative duration.
func (m *Mirror) Age() *time.Duration {
	if m.LastSync == nil {
		return nil
	}
	d := time.Since(*m.LastSync)
	return &d
}

// List is an ordered collection of mirrors plus the origin of the data.
type List struct {
	Mirrors []Mirror `json:"urls"`
	Source  string   `json:"-"`
}

// Decode parses the archlinux.org mirror status JSON document.
func Decode(data []byte, source string) (List, error) {
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return List{}, fmt.Errorf("decode mirror status: %w", err)
	}
	l.Source = source
	return l, nil
}

// Truncate limits the list to at most n mirrors, keeping order.
func (l List) Truncate(n int) List {
	if n < 0 || n > len(l.Mirrors) {
		n = len(l.Mirrors)
	}
	l.Mirrors = l.Mirrors[:n]
	return l
}
