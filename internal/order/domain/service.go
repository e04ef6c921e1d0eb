package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	"github.com/smallbiznis/pressroom/internal/shipment"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
)

type Service interface {
	// List returns a page of orders with their relations. Super-admin callers
	// see every organization.
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	// Create reserves stock, resolves the customer and writes the order, its
	// children and a Draft companion invoice in one transaction.
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
	Delete(ctx context.Context, ids []string) (int64, error)
	Tracking(ctx context.Context, id string) ([]shipment.Tracking, error)
}

type ListRequest struct {
	Page         int
	Limit        int
	Search       string
	Status       string
	Priority     string
	DepartmentID string
}

type ListResponse struct {
	Orders     []Response          `json:"orders"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type ItemInput struct {
	ProductID   string           `json:"productId"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
	Options     map[string]any   `json:"options"`
}

type AssignmentInput struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type AttachmentInput struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

type CreateRequest struct {
	CustomerID      string            `json:"customerId"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	CustomerPhone   string            `json:"customerPhone"`
	CustomerCompany string            `json:"customerCompany"`
	CustomerAddress string            `json:"customerAddress"`
	AgentID         string            `json:"agentId"`
	DepartmentID    string            `json:"departmentId"`
	Status          string            `json:"status"`
	Priority        string            `json:"priority"`
	Items           []ItemInput       `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	TaxAmount       decimal.Decimal   `json:"taxAmount"`
	Total           decimal.Decimal   `json:"total"`
	DueDate         string            `json:"dueDate"`
	Notes           string            `json:"notes"`
	PaymentMethod   string            `json:"paymentMethod"`
	Assignments     []AssignmentInput `json:"assignments"`
	Attachments     []AttachmentInput `json:"attachments"`
}

type UpdateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Response struct {
	ID            string                       `json:"id"`
	OrgID         string                       `json:"orgId"`
	OrderNumber   string                       `json:"orderNumber"`
	CustomerID    string                       `json:"customerId"`
	Customer      *customerdomain.Summary      `json:"customer,omitempty"`
	AgentID       *string                      `json:"agentId"`
	Agent         *staffdomain.Agent           `json:"agent,omitempty"`
	DepartmentID  *string                      `json:"departmentId"`
	Department    *staffdomain.Department      `json:"department,omitempty"`
	Status        string                       `json:"status"`
	Priority      string                       `json:"priority"`
	Subtotal      decimal.Decimal              `json:"subtotal"`
	TaxAmount     decimal.Decimal              `json:"taxAmount"`
	Total         decimal.Decimal              `json:"total"`
	PaymentStatus string                       `json:"paymentStatus"`
	PaidAmount    decimal.Decimal              `json:"paidAmount"`
	PaymentMethod string                       `json:"paymentMethod"`
	Date          string                       `json:"date"`
	DueDate       *string                      `json:"dueDate"`
	Notes         string                       `json:"notes"`
	Items         []Item                       `json:"items"`
	Assignments   []Assignment                 `json:"assignments"`
	Attachments   []Attachment                 `json:"attachments"`
	Proofs        []Proof                      `json:"proofs"`
	Activity      []activitydomain.ActivityLog `json:"activity"`
	CreatedAt     time.Time                    `json:"createdAt"`
	UpdatedAt     time.Time                    `json:"updatedAt"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidIDs          = errors.New("invalid_ids")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPriority     = errors.New("invalid_priority")
	ErrInvalidAgent        = errors.New("invalid_agent")
	ErrInvalidDepartment   = errors.New("invalid_department")
	ErrInvalidAssignee     = errors.New("invalid_assignee")
	ErrInvalidItem         = errors.New("invalid_item")
	ErrInvalidAttachment   = errors.New("invalid_attachment")
	ErrNotFound            = errors.New("not_found")
)
