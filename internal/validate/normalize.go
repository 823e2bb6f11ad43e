package validate

import "strings"

// typeAliases collapses engine-specific catalog type names onto one
// canonical name per family, so expected types written against one engine
// match the catalog output of another.
var typeAliases = map[string]string{
	"int":       "integer",
	"int2":      "integer",
	"int4":      "integer",
	"int8":      "integer",
	"smallint":  "integer",
	"bigint":    "integer",
	"serial":    "integer",
	"bigserial": "integer",
	"smallserial": "integer",
	"tinyint":     "integer",
	"mediumint":   "integer",

	"varchar":           "text",
	"character varying": "text",
	"char":              "text",
	"character":         "text",
	"nvarchar":          "text",
	"citext":            "text",
	"tinytext":          "text",
	"mediumtext":        "text",
	"longtext":          "text",

	"decimal": "numeric",

	"float4":           "real",
	"float8":           "real",
	"float":            "real",
	"double":           "real",
	"double precision": "real",

	"bool": "boolean",

	"timestamptz":                 "timestamp",
	"timestamp with time zone":    "timestamp",
	"timestamp without time zone": "timestamp",
	"datetime":                    "timestamp",

	"timetz":                 "time",
	"time with time zone":    "time",
	"time without time zone": "time",
}

// NormalizeType maps a catalog or authoring-time type string to its
// canonical family name: lowercased, length modifiers stripped, aliases
// collapsed. VARCHAR(100) and "character varying" both normalize to "text";
// INTEGER, serial, and int4 all normalize to "integer".
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))

	// Strip a trailing length/precision modifier: varchar(100), numeric(10,2).
	if i := strings.IndexByte(t, '('); i >= 0 {
		if j := strings.LastIndexByte(t, ')'); j > i {
			t = strings.TrimSpace(t[:i] + t[j+1:])
		} else {
			t = strings.TrimSpace(t[:i])
		}
	}

	if canonical, ok := typeAliases[t]; ok {
		return canonical
	}
	return t
}

// TypesEquivalent reports whether two type strings belong to the same
// canonical family.
func TypesEquivalent(a, b string) bool {
	return NormalizeType(a) == NormalizeType(b)
}
