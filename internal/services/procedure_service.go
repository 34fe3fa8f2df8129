package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"dbrest/internal/database"
	"dbrest/internal/models"
	"dbrest/internal/utils"
)

// ProcedureLister reads the stored procedure catalog.
type ProcedureLister interface {
	GetProcedures(ctx context.Context, schema string) ([]models.Procedure, error)
}

// ProcedureParam is one named argument of a procedure call, in the order the
// client supplied it.
type ProcedureParam struct {
	Name  string
	Value string
}

type ProcedureService struct {
	dialect database.Dialect
	schema  string
	lister  ProcedureLister
	store   RecordStore
}

func NewProcedureService(dialect database.Dialect, schema string, lister ProcedureLister, store RecordStore) *ProcedureService {
	return &ProcedureService{dialect: dialect, schema: schema, lister: lister, store: store}
}

func (s *ProcedureService) supported() bool {
	switch s.dialect.Name() {
	case "sqlserver", "postgres", "mysql":
		return true
	}
	return false
}

// List returns the stored procedures of the configured schema.
func (s *ProcedureService) List(ctx context.Context) ([]models.Procedure, error) {
	if !s.supported() {
		return nil, ErrProceduresUnsupported
	}
	return s.lister.GetProcedures(ctx, s.schema)
}

// ListText renders List as the plain-text listing served over HTTP.
func (s *ProcedureService) ListText(ctx context.Context) (string, error) {
	procs, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SCHEMA: %s\n\n", s.schema)
	w := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "#\tStored Procedure Name\tParameters")
	fmt.Fprintln(w, "-\t---------------------\t----------")
	for i, p := range procs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, p.Name, strings.ReplaceAll(p.Parameters, `"`, ""))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Execute calls the named procedure with params bound as named arguments and
// returns the first result set.
func (s *ProcedureService) Execute(ctx context.Context, name string, params []ProcedureParam) ([]map[string]any, error) {
	if !s.supported() {
		return nil, ErrProceduresUnsupported
	}

	stmt, err := s.BuildCall(name, params)
	if err != nil {
		return nil, &ProcedureError{Name: name, Err: err}
	}

	rows, err := s.store.Query(ctx, stmt)
	if err != nil {
		return nil, &ProcedureError{Name: name, Err: err}
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// BuildCall renders the engine specific call statement. The name may be
// schema qualified; unqualified names use the configured schema.
func (s *ProcedureService) BuildCall(name string, params []ProcedureParam) (database.Statement, error) {
	schema, proc, err := s.splitName(name)
	if err != nil {
		return database.Statement{}, err
	}
	for _, p := range params {
		if !utils.IsValidIdentifier(p.Name) {
			return database.Statement{}, fmt.Errorf("invalid parameter name %q", p.Name)
		}
	}

	target := s.dialect.Table(schema, proc)
	args := make([]any, 0, len(params))
	parts := make([]string, 0, len(params))

	switch s.dialect.Name() {
	case "sqlserver":
		for _, p := range params {
			parts = append(parts, fmt.Sprintf("@%s = @%s", p.Name, p.Name))
			args = append(args, sql.Named(p.Name, p.Value))
		}
		query := "EXEC " + target
		if len(parts) > 0 {
			query += " " + strings.Join(parts, ", ")
		}
		return database.Statement{SQL: query, Args: args}, nil
	case "postgres":
		for i, p := range params {
			parts = append(parts, fmt.Sprintf("%s => %s", p.Name, s.dialect.Placeholder(i+1)))
			args = append(args, p.Value)
		}
	default:
		for i, p := range params {
			parts = append(parts, s.dialect.Placeholder(i+1))
			args = append(args, p.Value)
		}
	}
	return database.Statement{
		SQL:  fmt.Sprintf("CALL %s(%s)", target, strings.Join(parts, ", ")),
		Args: args,
	}, nil
}

func (s *ProcedureService) splitName(name string) (string, string, error) {
	schema, proc := s.schema, name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		schema, proc = name[:i], name[i+1:]
		if !utils.IsValidIdentifier(schema) {
			return "", "", fmt.Errorf("invalid schema name %q", schema)
		}
	}
	if !utils.IsValidIdentifier(proc) {
		return "", "", fmt.Errorf("invalid procedure name %q", name)
	}
	return schema, proc, nil
}

// ParseProcedureParams decodes a raw query string keeping the parameter
// order. A repeated name keeps its first position and its last value.
func ParseProcedureParams(rawQuery string) ([]ProcedureParam, error) {
	var params []ProcedureParam
	index := make(map[string]int)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter %q: %w", key, err)
		}
		val, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", name, err)
		}
		if i, ok := index[name]; ok {
			params[i].Value = val
			continue
		}
		index[name] = len(params)
		params = append(params, ProcedureParam{Name: name, Value: val})
	}
	return params, nil
}
