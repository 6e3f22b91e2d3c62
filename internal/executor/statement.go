package executor

import (
	"context"
	"regexp"
	"strings"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/catalog"
	"github.com/Embucket/embucket-sub001/internal/session"
)

// The patterns below are a lightweight statement classifier, not a SQL
// parser: DuckDB is the actual parser/planner, an external
// collaborator this service never reimplements. They exist only to
// drive two things around the engine call in Query/run: session
// statements the engine itself has no notion of, and Caching Catalog
// bookkeeping for schema-qualified table references.
const ident = `[A-Za-z_][\w]*`

var (
	tableRefPattern   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(` + ident + `)\.(` + ident + `)(?:\.(` + ident + `))?`)
	selectListPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+(.*?)\s+FROM\s`)

	setVarPattern    = regexp.MustCompile(`(?is)^\s*(?:ALTER\s+SESSION\s+SET|SET)\s+(` + ident + `)\s*=\s*'?([^;']*?)'?\s*;?\s*$`)
	unsetVarPattern  = regexp.MustCompile(`(?is)^\s*(?:ALTER\s+SESSION\s+)?UNSET\s+(` + ident + `)\s*;?\s*$`)
	useSchemaPattern = regexp.MustCompile(`(?is)^\s*USE\s+SCHEMA\s+(?:(` + ident + `)\.)?(` + ident + `)\s*;?\s*$`)
	useDbPattern     = regexp.MustCompile(`(?is)^\s*USE\s+DATABASE\s+(` + ident + `)\s*;?\s*$`)

	createSchemaPattern = regexp.MustCompile(`(?i)^\s*CREATE\s+SCHEMA\s+(?:IF\s+NOT\s+EXISTS\s+)?(?:(` + ident + `)\.)?(` + ident + `)`)
	createTablePattern  = regexp.MustCompile(`(?i)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(?:(` + ident + `)\.)?(` + ident + `)\.(` + ident + `)`)
	dropSchemaPattern   = regexp.MustCompile(`(?i)^\s*DROP\s+SCHEMA\s+(?:IF\s+EXISTS\s+)?(?:(` + ident + `)\.)?(` + ident + `)`)
	dropTablePattern    = regexp.MustCompile(`(?i)^\s*DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?(?:(` + ident + `)\.)?(` + ident + `)\.(` + ident + `)`)

	quotedIdentPattern = regexp.MustCompile(`"([^"]+)"`)
)

// applySessionStatement recognizes SET/ALTER SESSION SET/UNSET/USE
// statements (spec §4.4) and applies them directly to sess, reporting
// whether sqlText matched one of these forms so Query can short-circuit
// before the engine ever sees it -- DuckDB has no notion of a
// Snowflake-shaped session variable or search path.
func applySessionStatement(sess *session.Session, sqlText string) bool {
	if m := setVarPattern.FindStringSubmatch(sqlText); m != nil {
		sess.SetVariable(strings.ToLower(m[1]), strings.TrimSpace(m[2]))
		return true
	}
	if m := unsetVarPattern.FindStringSubmatch(sqlText); m != nil {
		sess.UnsetVariable(strings.ToLower(m[1]))
		return true
	}
	if m := useSchemaPattern.FindStringSubmatch(sqlText); m != nil {
		path := sess.SearchPath()
		if m[1] != "" {
			path.Database = m[1]
		}
		path.Schema = m[2]
		sess.SetSearchPath(path)
		return true
	}
	if m := useDbPattern.FindStringSubmatch(sqlText); m != nil {
		path := sess.SearchPath()
		path.Database = m[1]
		sess.SetSearchPath(path)
		return true
	}
	return false
}

// qualify resolves a 2-or-3-part FROM/JOIN match to a (schema, table)
// pair scoped to the catalog's single bound database. A 3-part
// reference whose leading segment isn't that database is left
// unresolved: cross-database references aren't modeled by this
// single-catalog instance.
func qualify(a, b, c, database string) (schema, table string, ok bool) {
	if c != "" {
		if !strings.EqualFold(a, database) {
			return "", "", false
		}
		return b, c, true
	}
	return a, b, true
}

func selectListColumns(sqlText string) []string {
	m := selectListPattern.FindStringSubmatch(sqlText)
	if m == nil {
		return nil
	}
	var cols []string
	for _, p := range strings.Split(m[1], ",") {
		p = strings.TrimSpace(p)
		if p == "" || p == "*" || strings.ContainsAny(p, "() .") {
			continue
		}
		cols = append(cols, p)
	}
	return cols
}

// resolveCatalogTables runs the Caching Catalog resolve step (spec
// §4.2's "Executor submission -> Caching Catalog resolve -> planner")
// ahead of execution: every schema-qualified table reference in a
// FROM/JOIN clause must resolve through cat, surfacing a missing
// schema/table as apierr.EntityNotFound before DuckDB ever sees the
// query (Scenario S2).
func (e *Executor) resolveCatalogTables(ctx context.Context, sqlText string) error {
	if e.catalog == nil {
		return nil
	}

	matches := tableRefPattern.FindAllStringSubmatch(sqlText, -1)
	cols := selectListColumns(sqlText)
	for i, m := range matches {
		schema, table, ok := qualify(m[1], m[2], m[3], e.catalogDatabase)
		if !ok {
			continue
		}
		tbl, err := e.catalog.Table(ctx, schema, table)
		if err != nil {
			return err
		}
		e.annotateColumns(ctx, tbl, schema, table)

		if i == 0 {
			for _, c := range cols {
				resolved := tbl.ResolveColumn(c)
				if !strings.EqualFold(resolved, c) {
					e.log.Debug("catalog: column reference", c, "resolved to", tbl.LowercaseColumn(resolved))
				}
			}
		}
	}
	return nil
}

// annotateColumns fetches the table's live DuckDB column list and
// attaches it to the resolved CaseInsensitiveTable. The catalog's
// metastore record carries no column list of its own (it tracks
// identity, not physical schema), so the engine is the only source of
// truth for this. Failure here is non-fatal: case-insensitive column
// resolution just degrades to its pass-through behavior.
func (e *Executor) annotateColumns(ctx context.Context, tbl *catalog.CaseInsensitiveTable, schema, table string) {
	q := "SELECT column_name FROM information_schema.columns WHERE table_schema = '" + schema + "' AND table_name = '" + table + "'"
	rows, err := e.engine.QueryContext(ctx, q)
	if err != nil {
		return
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return
		}
		cols = append(cols, name)
	}
	if len(cols) == 0 {
		return
	}
	tbl.WithColumns(cols)
	e.log.Debug("catalog: resolved", schema+"."+table, "columns", tbl.LowercaseSchema())
}

// syncCatalogDDL mirrors simple CREATE/DROP SCHEMA/TABLE forms into
// the catalog's metastore bookkeeping after the engine has already
// performed the real, physical DDL: the metastore stays the
// authoritative identity-record layer while DuckDB remains the
// physical storage/execution engine for everything this classifier
// doesn't recognize. AlreadyExists/NotFound from the mirror call are
// tolerated (IF NOT EXISTS / IF EXISTS reruns, spec S5) since the
// engine's own idempotency already decided the real outcome.
func (e *Executor) syncCatalogDDL(ctx context.Context, sqlText string) {
	if e.catalog == nil {
		return
	}

	switch {
	case createSchemaPattern.MatchString(sqlText):
		m := createSchemaPattern.FindStringSubmatch(sqlText)
		if m[1] != "" && !strings.EqualFold(m[1], e.catalogDatabase) {
			return
		}
		e.logCatalogSync("register schema", m[2], e.catalog.RegisterSchema(ctx, m[2], nil))

	case createTablePattern.MatchString(sqlText):
		m := createTablePattern.FindStringSubmatch(sqlText)
		if m[1] != "" && !strings.EqualFold(m[1], e.catalogDatabase) {
			return
		}
		_, err := e.catalog.RegisterTable(ctx, m[2], m[3], "")
		e.logCatalogSync("register table", m[2]+"."+m[3], err)

	case dropTablePattern.MatchString(sqlText):
		m := dropTablePattern.FindStringSubmatch(sqlText)
		if m[1] != "" && !strings.EqualFold(m[1], e.catalogDatabase) {
			return
		}
		e.logCatalogSync("deregister table", m[2]+"."+m[3], e.catalog.DeregisterTable(ctx, m[2], m[3], false))

	case dropSchemaPattern.MatchString(sqlText):
		m := dropSchemaPattern.FindStringSubmatch(sqlText)
		if m[1] != "" && !strings.EqualFold(m[1], e.catalogDatabase) {
			return
		}
		e.logCatalogSync("deregister schema", m[2], e.catalog.DeregisterSchema(ctx, m[2], false))
	}
}

func (e *Executor) logCatalogSync(op, name string, err error) {
	if err == nil {
		return
	}
	if apiErr, ok := err.(*apierr.Error); ok {
		switch apiErr.Kind {
		case apierr.KindAlreadyExists, apierr.KindEntityNotFoundTable, apierr.KindEntityNotFoundSchema, apierr.KindEntityNotFoundDatabase:
			return
		}
	}
	e.log.Warn(op + " " + name + ": " + err.Error())
}

// classifyEngineError inspects a DuckDB execution error for a missing
// schema/table condition and maps it to apierr.EntityNotFound (spec
// Scenario S2) instead of the generic backend wrap; anything else is
// a genuine backend fault.
func classifyEngineError(err error) error {
	msg := err.Error()
	entity := ""
	switch {
	case strings.Contains(msg, "Catalog Error") && strings.Contains(strings.ToLower(msg), "schema"):
		entity = "schema"
	case strings.Contains(msg, "Catalog Error") && strings.Contains(strings.ToLower(msg), "table"):
		entity = "table"
	case strings.Contains(msg, "does not exist"):
		entity = "table"
	}
	if entity == "" {
		return apierr.Wrap(apierr.KindBackend, "engine execution failed", err)
	}
	return apierr.EntityNotFound(entity, extractMissingName(msg))
}

func extractMissingName(msg string) string {
	if m := quotedIdentPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return msg
}
