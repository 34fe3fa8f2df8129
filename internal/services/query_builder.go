package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"dbrest/internal/database"
	"dbrest/internal/models"
)

// dayBucket is the width of a datetime filter match.
const dayBucket = 24 * time.Hour

// isoLayouts are the date/time spellings accepted in datetime filters, tried
// in order.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// QueryBuilder turns a reflected table plus caller values into parameterized
// statements. Identifiers come only from the catalog and are always quoted;
// values are always bound.
type QueryBuilder struct {
	dialect database.Dialect
	schema  string
}

func NewQueryBuilder(dialect database.Dialect, schema string) *QueryBuilder {
	return &QueryBuilder{dialect: dialect, schema: schema}
}

// binds collects positional arguments and hands out matching placeholders.
type binds struct {
	dialect database.Dialect
	args    []any
}

func (b *binds) add(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (qb *QueryBuilder) table(t *models.Table) string {
	return qb.dialect.Table(qb.schema, t.Name)
}

func (qb *QueryBuilder) selectList(t *models.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = qb.dialect.QuoteIdent(c.Name)
	}
	return strings.Join(cols, ", ")
}

// payloadColumns returns the payload keys in table column order after
// checking every key names a column exactly.
func payloadColumns(t *models.Table, values map[string]any) ([]string, error) {
	for name := range values {
		if _, ok := t.Column(name); !ok {
			return nil, &UnknownColumnError{Table: t.Name, Column: name}
		}
	}
	cols := make([]string, 0, len(values))
	for _, c := range t.Columns {
		if _, ok := values[c.Name]; ok {
			cols = append(cols, c.Name)
		}
	}
	return cols, nil
}

func primaryKey(t *models.Table) (string, error) {
	pk, ok := t.PrimaryKey()
	if !ok {
		return "", &MissingPrimaryKeyError{Table: t.Name}
	}
	return pk, nil
}

// Insert builds an INSERT of values. The statement yields the new key when the
// dialect can return it inline.
func (qb *QueryBuilder) Insert(t *models.Table, values map[string]any) (database.Statement, error) {
	pk, err := primaryKey(t)
	if err != nil {
		return database.Statement{}, err
	}
	cols, err := payloadColumns(t, values)
	if err != nil {
		return database.Statement{}, err
	}

	b := &binds{dialect: qb.dialect}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = qb.dialect.QuoteIdent(c)
		marks[i] = b.add(values[c])
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qb.table(t))
	if len(cols) > 0 {
		sb.WriteString(" (" + strings.Join(quoted, ", ") + ")")
	}

	style := qb.dialect.InsertReturning()
	if style == database.OutputInserted {
		sb.WriteString(" OUTPUT INSERTED." + qb.dialect.QuoteIdent(pk))
	}

	switch {
	case len(cols) > 0:
		sb.WriteString(" VALUES (" + strings.Join(marks, ", ") + ")")
	case qb.dialect.Name() == "mysql":
		sb.WriteString(" () VALUES ()")
	default:
		sb.WriteString(" DEFAULT VALUES")
	}

	if style == database.ReturningClause {
		sb.WriteString(" RETURNING " + qb.dialect.QuoteIdent(pk))
	}

	return database.Statement{
		SQL:       sb.String(),
		Args:      b.args,
		Returning: style != database.LastInsertID,
	}, nil
}

// SelectByID selects the row whose primary key equals id.
func (qb *QueryBuilder) SelectByID(t *models.Table, id any) (database.Statement, error) {
	pk, err := primaryKey(t)
	if err != nil {
		return database.Statement{}, err
	}
	b := &binds{dialect: qb.dialect}
	query := "SELECT " + qb.selectList(t) + " FROM " + qb.table(t) +
		" WHERE " + qb.dialect.QuoteIdent(pk) + " = " + b.add(id)
	return database.Statement{SQL: query, Args: b.args}, nil
}

// SelectFiltered builds the generic list query. Each parameter whose name
// matches a column (ignoring case) becomes a condition: datetime columns
// match the whole day starting at the parsed value, everything else is an
// equality on the raw string. Unmatched parameters and unparseable dates are
// dropped. Conditions are ANDed; with none, every row is selected.
func (qb *QueryBuilder) SelectFiltered(t *models.Table, params map[string]string) database.Statement {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	b := &binds{dialect: qb.dialect}
	var conditions []string
	for _, name := range names {
		col, ok := t.ColumnFold(name)
		if !ok {
			continue
		}
		value := params[name]
		ident := qb.dialect.QuoteIdent(col.Name)

		if col.Type == models.TypeDateTime {
			start, ok := ParseISODateTime(value)
			if !ok {
				continue
			}
			end := start.Add(dayBucket)
			column := qb.dialect.TimeColumn(ident)
			conditions = append(conditions,
				column+" >= "+b.add(qb.dialect.TimeValue(start)),
				column+" < "+b.add(qb.dialect.TimeValue(end)),
			)
			continue
		}

		conditions = append(conditions, ident+" = "+b.add(value))
	}

	query := "SELECT " + qb.selectList(t) + " FROM " + qb.table(t)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return database.Statement{SQL: query, Args: b.args}
}

// Update sets values on the row whose primary key equals id.
func (qb *QueryBuilder) Update(t *models.Table, id any, values map[string]any) (database.Statement, error) {
	pk, err := primaryKey(t)
	if err != nil {
		return database.Statement{}, err
	}
	if len(values) == 0 {
		return database.Statement{}, ErrEmptyPayload
	}
	cols, err := payloadColumns(t, values)
	if err != nil {
		return database.Statement{}, err
	}

	b := &binds{dialect: qb.dialect}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = qb.dialect.QuoteIdent(c) + " = " + b.add(values[c])
	}
	query := "UPDATE " + qb.table(t) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + qb.dialect.QuoteIdent(pk) + " = " + b.add(id)
	return database.Statement{SQL: query, Args: b.args}, nil
}

// Delete removes the row whose primary key equals id.
func (qb *QueryBuilder) Delete(t *models.Table, id any) (database.Statement, error) {
	pk, err := primaryKey(t)
	if err != nil {
		return database.Statement{}, err
	}
	b := &binds{dialect: qb.dialect}
	query := "DELETE FROM " + qb.table(t) + " WHERE " + qb.dialect.QuoteIdent(pk) + " = " + b.add(id)
	return database.Statement{SQL: query, Args: b.args}, nil
}

// ConvertID turns a path id into the key column's native type so the lookup
// compares like with like.
func ConvertID(t *models.Table, raw string) (any, error) {
	pk, err := primaryKey(t)
	if err != nil {
		return nil, err
	}
	col, _ := t.Column(pk)

	switch col.Type {
	case models.TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidID
		}
		return n, nil
	case models.TypeBoolean:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidID
		}
		return v, nil
	default:
		return raw, nil
	}
}

// ParseISODateTime parses an ISO-8601 date or date-time. Values without an
// offset are taken as UTC.
func ParseISODateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
