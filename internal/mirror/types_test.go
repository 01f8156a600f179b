package mirror

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mirrorRutgers = `{
	"url": "https://mirrors.rutgers.edu/archlinux/",
	"protocol": "https",
	"last_sync": null,
	"completion_pct": 0.0,
	"delay": null,
	"duration_avg": null,
	"duration_stddev": null,
	"score": null,
	"active": true,
	"country": "United States",
	"country_code": "US",
	"isos": true,
	"ipv4": true,
	"ipv6": false,
	"details": "https://archlinux.org/mirrors/rutgers.edu/910/"
}`

const mirrorNtua = `{
	"url": "http://ftp.ntua.gr/pub/linux/archlinux/",
	"protocol": "http",
	"last_sync": "2024-05-01T14:25:08Z",
	"completion_pct": 1.0,
	"delay": 6354,
	"duration_avg": 0.4358575581256008,
	"duration_stddev": 0.6512862688716142,
	"score": 2.852143826997215,
	"active": true,
	"country": "Greece",
	"country_code": "GR",
	"isos": true,
	"ipv4": true,
	"ipv6": true,
	"details": "https://archlinux.org/mirrors/ntua.gr/333/"
}`

const mirrorAarnet = `{
	"url": "https://mirror.aarnet.edu.au/pub/archlinux/",
	"protocol": "https",
	"last_sync": "2024-04-01T08:22:54Z",
	"completion_pct": 1.0,
	"delay": 1863,
	"duration_avg": 1.1129106909958357,
	"duration_stddev": 0.23354254068513589,
	"score": 1.8639532316809715,
	"active": true,
	"country": "Australia",
	"country_code": "AU",
	"isos": true,
	"ipv4": true,
	"ipv6": true,
	"details": "https://archlinux.org/mirrors/aarnet.edu.au/5/"
}`

// threeMirrors returns the rutgers/ntua/aarnet fixture list, in that
// order.
func threeMirrors(t *testing.T) List {
	t.Helper()
	doc := `{"urls":[` + mirrorRutgers + `,` + mirrorNtua + `,` + mirrorAarnet + `]}`
	l, err := Decode([]byte(doc), "test")
	require.NoError(t, err)
	require.Len(t, l.Mirrors, 3)
	return l
}

func fptr(f float64) *float64 { return &f }

func bptr(b bool) *bool { return &b }

func tptr(ts time.Time) *time.Time { return &ts }

func TestDecode(t *testing.T) {
	l := threeMirrors(t)
	assert.Equal(t, "test", l.Source)

	m := l.Mirrors[0]
	assert.Equal(t, "https://mirrors.rutgers.edu/archlinux/", m.URL)
	assert.Equal(t, ProtocolHTTPS, m.Protocol)
	assert.Nil(t, m.LastSync)
	assert.Nil(t, m.Score)
	assert.Nil(t, m.Delay)
	require.NotNil(t, m.Country)
	assert.Equal(t, "United States", *m.Country)
	require.NotNil(t, m.IPv6)
	assert.False(t, *m.IPv6)
	assert.Nil(t, m.DownloadRate)

	m = l.Mirrors[1]
	require.NotNil(t, m.LastSync)
	assert.Equal(t, time.Date(2024, 5, 1, 14, 25, 8, 0, time.UTC), m.LastSync.UTC())
	require.NotNil(t, m.Delay)
	assert.Equal(t, 6354.0, *m.Delay)
}

func TestDecodeDefaultProtocol(t *testing.T) {
	var m Mirror
	err := json.Unmarshal([]byte(`{"url":"https://example.org/arch/"}`), &m)
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTPS, m.Protocol)
}

func TestDecodeUnknownProtocol(t *testing.T) {
	var m Mirror
	err := json.Unmarshal([]byte(`{"url":"x","protocol":"gopher"}`), &m)
	assert.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"urls":[{]}`), "test")
	assert.Error(t, err)
}

func TestAge(t *testing.T) {
	l := threeMirrors(t)
	assert.Nil(t, l.Mirrors[0].Age())

	a1 := l.Mirrors[1].Age()
	a2 := l.Mirrors[2].Age()
	require.NotNil(t, a1)
	require.NotNil(t, a2)
	// ntua synchronised more recently than aarnet
	assert.Less(t, *a1, *a2)

	future := Mirror{LastSync: tptr(time.Now().Add(10 * time.Minute))}
	fa := future.Age()
	require.NotNil(t, fa)
	assert.Negative(t, *fa)
}

func TestParseSortKey(t *testing.T) {
	for _, s := range []string{"age", "rate", "country", "score", "delay"} {
		k, err := ParseSortKey(s)
		require.NoError(t, err)
		assert.Equal(t, SortKey(s), k)
	}
	_, err := ParseSortKey("speed")
	assert.Error(t, err)
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("rsync")
	require.NoError(t, err)
	assert.Equal(t, ProtocolRsync, p)
	_, err = ParseProtocol("gopher")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	l := threeMirrors(t)
	assert.Len(t, l.Truncate(2).Mirrors, 2)
	assert.Len(t, l.Truncate(10).Mirrors, 3)
	assert.Len(t, l.Truncate(-1).Mirrors, 3)
	assert.Len(t, l.Truncate(0).Mirrors, 0)
}
