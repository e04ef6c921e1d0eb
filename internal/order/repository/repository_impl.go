package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/order/domain"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, org_id, order_number, customer_id, agent_id, department_id, status, priority,
			subtotal, tax_amount, total, payment_status, paid_amount, payment_method, due_date, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrgID,
		order.OrderNumber,
		order.CustomerID,
		order.AgentID,
		order.DepartmentID,
		order.Status,
		order.Priority,
		order.Subtotal,
		order.TaxAmount,
		order.Total,
		order.PaymentStatus,
		order.PaidAmount,
		order.PaymentMethod,
		order.DueDate,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) InsertAssignments(ctx context.Context, db *gorm.DB, assignments []domain.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&assignments).Error
}

func (r *repo) InsertAttachments(ctx context.Context, db *gorm.DB, attachments []domain.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&attachments).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Order, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})

	if filter.OrgID != nil {
		stmt = stmt.Where("orders.org_id = ?", *filter.OrgID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.
			Joins("LEFT JOIN customers ON customers.id = orders.customer_id").
			Where("(LOWER(orders.order_number) LIKE ? OR LOWER(orders.notes) LIKE ? OR LOWER(customers.name) LIKE ? OR LOWER(customers.email) LIKE ?)",
				like, like, like, like)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("LOWER(orders.status) = ?", strings.ToLower(status))
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		stmt = stmt.Where("LOWER(orders.priority) = ?", strings.ToLower(priority))
	}
	if filter.DepartmentID != nil {
		stmt = stmt.Where("orders.department_id = ?", *filter.DepartmentID)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []domain.Order
	err := page.Apply(stmt).
		Select("orders.*").
		Order("orders.created_at desc, orders.id desc").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) LoadChildren(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (domain.Children, error) {
	children := domain.Children{
		Items:       map[snowflake.ID][]domain.Item{},
		Assignments: map[snowflake.ID][]domain.Assignment{},
		Attachments: map[snowflake.ID][]domain.Attachment{},
		Proofs:      map[snowflake.ID][]domain.Proof{},
	}
	if len(orderIDs) == 0 {
		return children, nil
	}
	conn := db.WithContext(ctx)

	var items []domain.Item
	if err := conn.Where("order_id IN ?", orderIDs).Order("position asc, id asc").Find(&items).Error; err != nil {
		return children, err
	}
	for _, it := range items {
		children.Items[it.OrderID] = append(children.Items[it.OrderID], it)
	}

	var assignments []domain.Assignment
	if err := conn.Where("order_id IN ?", orderIDs).Order("created_at asc, id asc").Find(&assignments).Error; err != nil {
		return children, err
	}
	for _, a := range assignments {
		children.Assignments[a.OrderID] = append(children.Assignments[a.OrderID], a)
	}

	var attachments []domain.Attachment
	if err := conn.Where("order_id IN ?", orderIDs).Order("created_at asc, id asc").Find(&attachments).Error; err != nil {
		return children, err
	}
	for _, a := range attachments {
		children.Attachments[a.OrderID] = append(children.Attachments[a.OrderID], a)
	}

	var proofs []domain.Proof
	if err := conn.Where("order_id IN ?", orderIDs).Order("created_at asc, id asc").Find(&proofs).Error; err != nil {
		return children, err
	}
	for _, p := range proofs {
		children.Proofs[p.OrderID] = append(children.Proofs[p.OrderID], p)
	}

	return children, nil
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, payment domain.Payment) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, paid_amount = ?, payment_method = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		payment.Status,
		payment.Amount,
		payment.Method,
		payment.UpdatedAt,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		order.Status,
		order.UpdatedAt,
		order.OrgID,
		order.ID,
	).Error
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	conn := db.WithContext(ctx)

	for _, table := range []string{"order_items", "order_assignments", "order_attachments", "order_proofs"} {
		if err := conn.Exec(`DELETE FROM `+table+` WHERE org_id = ? AND order_id IN ?`, orgID, ids).Error; err != nil {
			return 0, err
		}
	}

	result := conn.Exec(`DELETE FROM orders WHERE org_id = ? AND id IN ?`, orgID, ids)
	return result.RowsAffected, result.Error
}
