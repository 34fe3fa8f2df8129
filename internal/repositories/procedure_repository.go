package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"dbrest/internal/database"
	"dbrest/internal/models"
)

// ProcedureRepository lists the stored procedures of a database.
type ProcedureRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewProcedureRepository(db *database.DB) *ProcedureRepository {
	return &ProcedureRepository{db: db.DB, dialect: db.Dialect}
}

const sqlServerProcedures = `
	SELECT
		SCHEMA_NAME(p.schema_id) AS schema_name,
		p.name AS procedure_name,
		STRING_AGG(
			CONCAT(
				'@', pa.name, ' ', t.name,
				CASE
					WHEN t.name IN ('varchar', 'nvarchar', 'varbinary') THEN CONCAT('(', pa.max_length, ')')
					ELSE ''
				END,
				CASE
					WHEN pa.is_nullable = 1 THEN ' NULLABLE'
					ELSE ' NOT NULLABLE'
				END,
				CASE
					WHEN pa.has_default_value = 1 THEN CONCAT(' DEFAULT ', CONVERT(VARCHAR(MAX), pa.default_value))
					ELSE ''
				END
			),
			', '
		) WITHIN GROUP (ORDER BY pa.parameter_id) AS parameters
	FROM sys.procedures p
	JOIN sys.parameters pa ON p.object_id = pa.object_id
	JOIN sys.types t ON pa.user_type_id = t.user_type_id
	WHERE pa.name IS NOT NULL
	GROUP BY p.schema_id, p.name
	ORDER BY p.name`

const postgresProcedures = `
	SELECT
		r.routine_schema,
		r.routine_name,
		COALESCE(string_agg(
			COALESCE(p.parameter_name, '') || ' ' || p.data_type,
			', ' ORDER BY p.ordinal_position
		), '') AS parameters
	FROM information_schema.routines r
	LEFT JOIN information_schema.parameters p
		ON p.specific_schema = r.specific_schema
		AND p.specific_name = r.specific_name
	WHERE r.routine_type = 'PROCEDURE'
	AND r.routine_schema = $1
	GROUP BY r.routine_schema, r.routine_name, r.specific_name
	ORDER BY r.routine_name`

const mysqlProcedures = `
	SELECT
		r.ROUTINE_SCHEMA,
		r.ROUTINE_NAME,
		COALESCE(GROUP_CONCAT(
			CONCAT(p.PARAMETER_MODE, ' ', p.PARAMETER_NAME, ' ', p.DTD_IDENTIFIER)
			ORDER BY p.ORDINAL_POSITION SEPARATOR ', '
		), '') AS parameters
	FROM information_schema.ROUTINES r
	LEFT JOIN information_schema.PARAMETERS p
		ON p.SPECIFIC_SCHEMA = r.ROUTINE_SCHEMA
		AND p.SPECIFIC_NAME = r.SPECIFIC_NAME
		AND p.ROUTINE_TYPE = 'PROCEDURE'
	WHERE r.ROUTINE_TYPE = 'PROCEDURE'
	AND r.ROUTINE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	GROUP BY r.ROUTINE_SCHEMA, r.ROUTINE_NAME
	ORDER BY r.ROUTINE_NAME`

// GetProcedures returns the procedures visible in schema with their
// parameters rendered as a single line. SQL Server lists every schema.
func (r *ProcedureRepository) GetProcedures(ctx context.Context, schema string) ([]models.Procedure, error) {
	var (
		query string
		args  []any
	)
	switch r.dialect.Name() {
	case "sqlserver":
		query = sqlServerProcedures
	case "postgres":
		query, args = postgresProcedures, []any{schema}
	case "mysql":
		query, args = mysqlProcedures, []any{schema}
	default:
		return nil, fmt.Errorf("stored procedures are not available on %s", r.dialect.Name())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procs []models.Procedure
	for rows.Next() {
		var (
			p      models.Procedure
			params sql.NullString
		)
		if err := rows.Scan(&p.Schema, &p.Name, &params); err != nil {
			return nil, err
		}
		p.Parameters = params.String
		procs = append(procs, p)
	}
	return procs, rows.Err()
}
