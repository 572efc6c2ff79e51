package pgwire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known base type OIDs, per pg_type.dat. Vendored as constants
// rather than importing jackc/pgx/v5/pgtype's codec machinery: the
// client decodes text-mode results only, so it needs the OID numbers,
// not the binary codec registry.
const (
	OIDBool        = 16
	OIDBytea       = 17
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDText        = 25
	OIDOID         = 26
	OIDJSON        = 114
	OIDPoint       = 600
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDCircle      = 718
	OIDUnknown     = 705
	OIDMoney       = 790
	OIDBPChar      = 1042
	OIDVarchar     = 1043
	OIDDate        = 1082
	OIDTime        = 1083
	OIDTimestamp   = 1114
	OIDTimestampTz = 1184
	OIDInterval    = 1186
	OIDNumeric     = 1700
	OIDUUID        = 2950
	OIDJSONB       = 3802
	OIDInet        = 869
	OIDCidr        = 650
	OIDInt4Range   = 3904
	OIDInt8Range   = 3926
	OIDNumRange    = 3906
	OIDTsRange     = 3908
	OIDTstzRange   = 3910
)

// Decoder decodes one text-mode field value.
type Decoder func([]byte) (any, error)

// Registry maps base type OIDs to Decoders, with array-of-T and
// range-of-T handled generically rather than per-element-type.
type Registry struct {
	byOID map[uint32]Decoder
	// arrayElem maps an array type's OID to its element type's OID, so
	// arrays of arbitrary element types can share one array decoder.
	arrayElem map[uint32]uint32
}

// DefaultRegistry returns a Registry with the built-in decoders
// enumerated in spec.md §4.B: booleans, integers, floats, text types,
// timestamps (with/without zone), intervals, JSON/JSONB, arrays of any
// element type, ranges of any subtype, points, circles, byte sequences,
// UUIDs, and money/inet/cidr as strings. Unknown OIDs fall back to raw
// text.
func DefaultRegistry() *Registry {
	r := &Registry{byOID: map[uint32]Decoder{}, arrayElem: map[uint32]uint32{}}
	r.byOID[OIDBool] = decodeBool
	r.byOID[OIDInt2] = decodeInt(16)
	r.byOID[OIDInt4] = decodeInt(32)
	r.byOID[OIDInt8] = decodeInt(64)
	r.byOID[OIDOID] = decodeInt(32)
	r.byOID[OIDFloat4] = decodeFloat(32)
	r.byOID[OIDFloat8] = decodeFloat(64)
	r.byOID[OIDNumeric] = decodeText
	text := decodeText
	for _, oid := range []uint32{OIDText, OIDVarchar, OIDBPChar, OIDUnknown, OIDMoney, OIDInet, OIDCidr} {
		r.byOID[oid] = text
	}
	r.byOID[OIDUUID] = decodeUUID
	r.byOID[OIDDate] = decodeTimestamp("2006-01-02")
	r.byOID[OIDTimestamp] = decodeTimestamp("2006-01-02 15:04:05")
	r.byOID[OIDTimestampTz] = decodeTimestamp("2006-01-02 15:04:05Z07:00")
	r.byOID[OIDTime] = decodeText
	r.byOID[OIDInterval] = decodeText
	r.byOID[OIDJSON] = decodeJSON
	r.byOID[OIDJSONB] = decodeJSON
	r.byOID[OIDBytea] = decodeBytea
	r.byOID[OIDPoint] = decodeText
	r.byOID[OIDCircle] = decodeText
	for _, oid := range []uint32{OIDInt4Range, OIDInt8Range, OIDNumRange, OIDTsRange, OIDTstzRange} {
		r.byOID[oid] = decodeText
	}
	// Built-in array types, array OID -> element OID (19 is name, which
	// decodes through the raw-text fallback).
	for arrayOID, elemOID := range map[uint32]uint32{
		1000: OIDBool, 1001: OIDBytea, 1003: 19, 1005: OIDInt2, 1007: OIDInt4,
		1009: OIDText, 1014: OIDBPChar, 1015: OIDVarchar, 1016: OIDInt8,
		1021: OIDFloat4, 1022: OIDFloat8, 1028: OIDOID, 1115: OIDTimestamp,
		1182: OIDDate, 1183: OIDTime, 1185: OIDTimestampTz, 1187: OIDInterval,
		1231: OIDNumeric, 199: OIDJSON, 2951: OIDUUID, 3807: OIDJSONB,
	} {
		r.arrayElem[arrayOID] = elemOID
	}
	return r
}

// RegisterArray tells the registry that arrayOID is an array whose
// elements have type elemOID, enabling DecodeArray-style decoding for
// introspected user-defined array types.
func (r *Registry) RegisterArray(arrayOID, elemOID uint32) {
	r.arrayElem[arrayOID] = elemOID
}

// Register installs or overrides the decoder for oid.
func (r *Registry) Register(oid uint32, d Decoder) {
	r.byOID[oid] = d
}

// Decode decodes raw's text-mode value given its type OID. A nil raw
// means SQL NULL and decodes to nil. Unknown OIDs return the raw text.
func (r *Registry) Decode(oid uint32, raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if elemOID, ok := r.arrayElem[oid]; ok {
		return r.decodeArray(elemOID, raw)
	}
	if d, ok := r.byOID[oid]; ok {
		return d(raw)
	}
	return string(raw), nil
}

func (r *Registry) decodeArray(elemOID uint32, raw []byte) (any, error) {
	elems, err := splitPGArray(string(raw))
	if err != nil {
		return nil, err
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		if e == nil {
			continue
		}
		v, err := r.Decode(elemOID, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// splitPGArray splits a Postgres text-mode array literal ("{a,b,"c d"}")
// into its element byte slices, honoring quoting and NULL. A nested
// array comes back as one element holding the sub-array's literal text;
// decodeArray hands that text to the element type's decoder, so
// multi-dimensional arrays are not decoded into nested []any.
func splitPGArray(s string) ([][]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("pgwire: malformed array literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	var (
		elems   [][]byte
		cur     strings.Builder
		depth   int
		inQuote bool
	)
	flush := func() {
		v := cur.String()
		cur.Reset()
		if !inQuote && v == "NULL" {
			elems = append(elems, nil)
			return
		}
		elems = append(elems, []byte(v))
	}
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '"' && !inQuote:
			inQuote = true
		case c == '"' && inQuote:
			if i+1 < len(inner) && inner[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuote = false
		case c == '\\' && inQuote && i+1 < len(inner):
			i++
			cur.WriteByte(inner[i])
		case c == '{' && !inQuote:
			depth++
			cur.WriteByte(c)
		case c == '}' && !inQuote:
			depth--
			cur.WriteByte(c)
		case c == ',' && !inQuote && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return elems, nil
}

func decodeText(raw []byte) (any, error) { return string(raw), nil }

func decodeUUID(raw []byte) (any, error) {
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("pgwire: invalid uuid %q: %w", raw, err)
	}
	return id, nil
}

func decodeBool(raw []byte) (any, error) {
	switch string(raw) {
	case "t":
		return true, nil
	case "f":
		return false, nil
	default:
		return nil, fmt.Errorf("pgwire: invalid bool %q", raw)
	}
}

func decodeInt(bits int) Decoder {
	return func(raw []byte) (any, error) {
		v, err := strconv.ParseInt(string(raw), 10, bits)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func decodeFloat(bits int) Decoder {
	return func(raw []byte) (any, error) {
		v, err := strconv.ParseFloat(string(raw), bits)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func decodeTimestamp(layout string) Decoder {
	return func(raw []byte) (any, error) {
		t, err := time.Parse(layout, string(raw))
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func decodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeBytea(raw []byte) (any, error) {
	s := string(raw)
	if !strings.HasPrefix(s, "\\x") {
		return []byte(s), nil
	}
	hexStr := s[2:]
	out := make([]byte, len(hexStr)/2)
	for i := range out {
		n, err := strconv.ParseUint(hexStr[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(n)
	}
	return out, nil
}
