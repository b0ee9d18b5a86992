package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"territory-planner/internal/models"
)

type customerRepository struct {
	store *Store
}

const customerColumns = `id, name, publisher, lat, lng, revenue, representative_id`

func scanCustomer(row interface{ Scan(...any) error }, c *models.Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Publisher, &c.Lat, &c.Lng, &c.Revenue, &c.RepresentativeID)
}

func (r *customerRepository) List(ctx context.Context) ([]models.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var c models.Customer
	err := scanCustomer(r.store.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id), &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

func (r *customerRepository) ReplaceAll(ctx context.Context, customers []models.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceCustomers(ctx, tx, customers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.store.logger.Debug("replaced customers", zap.Int("count", len(customers)))
	return nil
}

func replaceCustomers(ctx context.Context, tx *sql.Tx, customers []models.Customer) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("failed to clear customers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare customer insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Publisher, c.Lat, c.Lng, c.Revenue, c.RepresentativeID); err != nil {
			return fmt.Errorf("failed to insert customer %d: %w", c.ID, err)
		}
	}
	return nil
}

func (r *customerRepository) ApplyAssignment(ctx context.Context, a models.Assignment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE customers SET representative_id = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment update: %w", err)
	}
	defer stmt.Close()

	for _, customerID := range a.CustomerIDs() {
		if _, err := stmt.ExecContext(ctx, a[customerID], customerID); err != nil {
			return fmt.Errorf("failed to update customer %d: %w", customerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
