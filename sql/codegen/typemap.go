package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/pgwire"
)

// GoShape is a field's rendered Go type plus the runtime decoder it
// needs, if any, per spec.md §4.I's row-mapper requirement ("per-field
// runtime decoders for fields whose types are composites, tables,
// ranges, arrays, or timestamps").
type GoShape struct {
	Type    jen.Code
	Decoder string // empty means the pgwire decoder's native Go value needs no remapping
}

// builtinGoType maps the well-known base-type OIDs to their natural Go
// representation, mirroring pgwire's own DefaultRegistry decode
// targets so a non-null scalar field's type is the type pgwire.Row.Get
// returns for it. Nullable fields are pointers and array fields are
// typed slices, while Row.Get returns the bare value and []any.
func builtinGoType(oid uint32, nullable bool, ndims int) GoShape {
	var base GoShape
	switch oid {
	case pgwire.OIDBool:
		base = GoShape{Type: jen.Bool()}
	case pgwire.OIDInt2, pgwire.OIDInt4, pgwire.OIDOID, pgwire.OIDInt8:
		base = GoShape{Type: jen.Int64()}
	case pgwire.OIDFloat4, pgwire.OIDFloat8:
		base = GoShape{Type: jen.Float64()}
	case pgwire.OIDText, pgwire.OIDVarchar, pgwire.OIDBPChar, pgwire.OIDUnknown, pgwire.OIDNumeric,
		pgwire.OIDMoney, pgwire.OIDInet, pgwire.OIDCidr,
		pgwire.OIDTime, pgwire.OIDInterval, pgwire.OIDPoint, pgwire.OIDCircle:
		base = GoShape{Type: jen.String()}
	case pgwire.OIDUUID:
		base = GoShape{Type: jen.Qual("github.com/google/uuid", "UUID")}
	case pgwire.OIDDate, pgwire.OIDTimestamp, pgwire.OIDTimestampTz:
		base = GoShape{Type: jen.Qual("time", "Time"), Decoder: "timestamp"}
	case pgwire.OIDJSON, pgwire.OIDJSONB:
		base = GoShape{Type: jen.Any()}
	case pgwire.OIDBytea:
		base = GoShape{Type: jen.Index().Byte()}
	case pgwire.OIDInt4Range, pgwire.OIDInt8Range, pgwire.OIDNumRange, pgwire.OIDTsRange, pgwire.OIDTstzRange:
		base = GoShape{Type: jen.String(), Decoder: "range"}
	default:
		base = GoShape{Type: jen.Any(), Decoder: "composite"}
	}
	for i := 0; i < ndims; i++ {
		base.Type = jen.Index().Add(base.Type)
		if base.Decoder == "" {
			base.Decoder = "array"
		}
	}
	if nullable && ndims == 0 {
		base.Type = jen.Op("*").Add(base.Type)
	}
	return base
}
