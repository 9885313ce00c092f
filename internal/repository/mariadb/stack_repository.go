package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const stackSettingKey = "aws_stack"

// StackRepository persists the provisioned resource descriptor in the
// settings table, as a single JSON value keyed by name.
type StackRepository struct {
	db *sql.DB
}

// compile-time check: *StackRepository must satisfy port.StackRepository
var _ port.StackRepository = (*StackRepository)(nil)

func NewStackRepository(db *sql.DB) *StackRepository {
	return &StackRepository{db: db}
}

// GetStack returns nil when no stack has been provisioned yet.
func (r *StackRepository) GetStack(ctx context.Context) (*model.StackDescriptor, error) {
	const query = `SELECT setting_value FROM settings WHERE setting_name = ?`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, stackSettingKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stack model.StackDescriptor
	if err := json.Unmarshal(raw, &stack); err != nil {
		return nil, fmt.Errorf("could not decode the stored stack descriptor: %w", err)
	}
	return &stack, nil
}

func (r *StackRepository) SaveStack(ctx context.Context, stack *model.StackDescriptor) error {
	log.Printf("saving stack descriptor (bucket %q)...", stack.BucketName)

	raw, err := json.Marshal(stack)
	if err != nil {
		return fmt.Errorf("could not encode the stack descriptor: %w", err)
	}

	const query = `
      INSERT INTO settings (setting_name, setting_value)
      VALUES (?, ?)
      ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)
    `
	_, err = r.db.ExecContext(ctx, query, stackSettingKey, raw)
	return err
}
