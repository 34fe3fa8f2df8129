package services

import (
	"context"
	"fmt"

	"dbrest/internal/models"
)

// RecordService implements the per-table CRUD operations.
type RecordService struct {
	registry *Registry
	builder  *QueryBuilder
	store    RecordStore
}

func NewRecordService(registry *Registry, builder *QueryBuilder, store RecordStore) *RecordService {
	return &RecordService{registry: registry, builder: builder, store: store}
}

func (s *RecordService) resolve(alias string) (*models.Table, error) {
	b, ok := s.registry.Resolve(alias)
	if !ok {
		return nil, ErrTableNotFound
	}
	return b.Table, nil
}

// Create inserts payload and returns the stored row, re-read by its key.
func (s *RecordService) Create(ctx context.Context, alias string, payload map[string]any) (map[string]any, error) {
	table, err := s.resolve(alias)
	if err != nil {
		return nil, err
	}

	stmt, err := s.builder.Insert(table, payload)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(ctx, stmt)
	if err != nil {
		return nil, &WriteError{Op: "insert into", Table: table.Name, Err: err}
	}

	pk, _ := table.PrimaryKey()
	if supplied, ok := payload[pk]; ok && (id == nil || !stmt.Returning) {
		// the driver's last insert id is meaningless for a caller-chosen key
		id = supplied
	}
	if id == nil {
		return nil, fmt.Errorf("created item %w", ErrNotFound)
	}

	row, err := s.getByID(ctx, table, id)
	if err != nil {
		return nil, fmt.Errorf("created item: %w", err)
	}
	return row, nil
}

// List returns the rows matching the filter parameters. An empty result is
// reported as not found.
func (s *RecordService) List(ctx context.Context, alias string, params map[string]string) ([]map[string]any, error) {
	table, err := s.resolve(alias)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Query(ctx, s.builder.SelectFiltered(table, params))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no records in table %s: %w", table.Name, ErrNotFound)
	}
	return rows, nil
}

// Get returns the row with the given id.
func (s *RecordService) Get(ctx context.Context, alias, rawID string) (map[string]any, error) {
	table, id, err := s.resolveWithID(alias, rawID)
	if err != nil {
		return nil, err
	}
	return s.getByID(ctx, table, id)
}

// Update applies payload to the row with the given id and returns the row as
// stored afterwards.
func (s *RecordService) Update(ctx context.Context, alias, rawID string, payload map[string]any) (map[string]any, error) {
	table, id, err := s.resolveWithID(alias, rawID)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return s.getByID(ctx, table, id)
	}

	stmt, err := s.builder.Update(table, id, payload)
	if err != nil {
		return nil, err
	}

	affected, err := s.store.Exec(ctx, stmt)
	if err != nil {
		return nil, &WriteError{Op: "update", Table: table.Name, Err: err}
	}
	if affected == 0 {
		return nil, ErrRowNotFound
	}

	pk, _ := table.PrimaryKey()
	if newID, ok := payload[pk]; ok {
		id = newID
	}
	return s.getByID(ctx, table, id)
}

// Delete removes the row with the given id and returns its values as they
// were before deletion.
func (s *RecordService) Delete(ctx context.Context, alias, rawID string) (map[string]any, error) {
	table, id, err := s.resolveWithID(alias, rawID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.getByID(ctx, table, id)
	if err != nil {
		return nil, err
	}

	stmt, err := s.builder.Delete(table, id)
	if err != nil {
		return nil, err
	}
	affected, err := s.store.Exec(ctx, stmt)
	if err != nil {
		return nil, &WriteError{Op: "delete from", Table: table.Name, Err: err}
	}
	if affected == 0 {
		return nil, ErrRowNotFound
	}
	return snapshot, nil
}

func (s *RecordService) resolveWithID(alias, rawID string) (*models.Table, any, error) {
	table, err := s.resolve(alias)
	if err != nil {
		return nil, nil, err
	}
	id, err := ConvertID(table, rawID)
	if err != nil {
		return nil, nil, err
	}
	return table, id, nil
}

func (s *RecordService) getByID(ctx context.Context, table *models.Table, id any) (map[string]any, error) {
	stmt, err := s.builder.SelectByID(table, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRowNotFound
	}
	return rows[0], nil
}
