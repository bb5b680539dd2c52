package sql

// keywords are the SQL words the lexer classifies as keywords rather than
// identifiers. The set covers the read-only query grammar plus every
// modifying or administrative verb so the validator can block them as
// keywords instead of mistaking them for schema references.
var keywords = map[string]bool{
	// query grammar
	"select": true, "from": true, "where": true, "as": true, "and": true,
	"or": true, "not": true, "in": true, "is": true, "null": true,
	"like": true, "ilike": true, "between": true, "exists": true, "any": true,
	"all": true, "some": true, "case": true, "when": true, "then": true,
	"else": true, "end": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "outer": true, "cross": true, "on": true,
	"using": true, "group": true, "by": true, "having": true, "order": true,
	"asc": true, "desc": true, "nulls": true, "first": true, "last": true,
	"limit": true, "offset": true, "fetch": true, "next": true, "rows": true,
	"only": true, "distinct": true, "union": true, "intersect": true,
	"except": true, "with": true, "recursive": true, "true": true,
	"false": true, "cast": true, "interval": true, "over": true,
	"partition": true, "filter": true, "lateral": true, "natural": true,

	// modifying and administrative verbs, kept as keywords so they can
	// never resolve as identifiers
	"insert": true, "update": true, "delete": true, "drop": true,
	"alter": true, "create": true, "truncate": true, "merge": true,
	"grant": true, "revoke": true, "copy": true, "call": true, "do": true,
	"execute": true, "prepare": true, "deallocate": true, "set": true,
	"reset": true, "show": true, "listen": true, "notify": true,
	"vacuum": true, "reindex": true, "cluster": true, "comment": true,
	"begin": true, "commit": true, "rollback": true, "savepoint": true,
	"into": true, "returning": true, "values": true, "share": true,
	"lock": true, "explain": true, "analyze": true, "declare": true,
	"security": true, "attach": true, "load": true, "import": true,
}

// blockedKeywords may never appear anywhere in a validated statement,
// including inside CTE bodies and subqueries. SELECT/WITH verb detection
// alone does not cover data-modifying CTEs or SELECT ... INTO, so the whole
// token stream is screened.
var blockedKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true,
	"alter": true, "create": true, "truncate": true, "merge": true,
	"grant": true, "revoke": true, "copy": true, "call": true, "do": true,
	"execute": true, "prepare": true, "deallocate": true, "set": true,
	"reset": true, "show": true, "listen": true, "notify": true,
	"vacuum": true, "reindex": true, "cluster": true, "comment": true,
	"begin": true, "commit": true, "rollback": true, "savepoint": true,
	"into": true, "returning": true, "values": true, "share": true,
	"lock": true, "explain": true, "analyze": true, "declare": true,
	"security": true, "attach": true, "load": true, "import": true,
}

// allowedFunctions is the whitelist of callable functions. Anything outside
// it - notably the pg_* administrative family, dblink, lo_import and friends -
// is rejected. Fail closed: an unknown function is an unsafe query, not a
// pass-through.
var allowedFunctions = map[string]bool{
	// aggregates
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"string_agg": true, "array_agg": true, "bool_and": true, "bool_or": true,

	// string
	"lower": true, "upper": true, "length": true, "char_length": true,
	"substring": true, "substr": true, "trim": true, "ltrim": true,
	"rtrim": true, "replace": true, "concat": true, "concat_ws": true,
	"position": true, "split_part": true, "initcap": true, "reverse": true,
	"lpad": true, "rpad": true,

	// numeric
	"round": true, "ceil": true, "ceiling": true, "floor": true, "abs": true,
	"mod": true, "power": true, "sqrt": true, "sign": true, "trunc": true,

	// date/time
	"now": true, "date_trunc": true, "date_part": true, "extract": true,
	"age": true, "to_char": true, "to_date": true, "to_timestamp": true,
	"current_date": true, "current_timestamp": true, "make_date": true,
	"justify_days": true, "justify_hours": true,

	// conditional / misc
	"coalesce": true, "nullif": true, "greatest": true, "least": true,

	// window
	"row_number": true, "rank": true, "dense_rank": true, "ntile": true,
	"lag": true, "lead": true, "first_value": true, "last_value": true,
}
