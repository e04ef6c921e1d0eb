package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	CascadeStrict     = "strict"
	CascadeBestEffort = "best_effort"
)

// WorkflowConfig holds the tunables of the quote/invoice/order workflow.
type WorkflowConfig struct {
	OrderStatuses      []string
	Priorities         []string
	MaxAssignees       int
	DescriptionLimit   int
	PaymentMethodLimit int
	InvoiceDueDays     int
	CascadePolicy      string
	DefaultPageSize    int
	MaxPageSize        int
}

func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		OrderStatuses: []string{
			"Pending",
			"Design",
			"Proofing",
			"Approved",
			"Prepress",
			"Printing",
			"Finishing",
			"Quality Check",
			"Ready",
			"Shipped",
			"Delivered",
			"Completed",
			"Cancelled",
		},
		Priorities:         []string{"low", "normal", "high", "urgent"},
		MaxAssignees:       10,
		DescriptionLimit:   200,
		PaymentMethodLimit: 20,
		InvoiceDueDays:     14,
		CascadePolicy:      CascadeStrict,
		DefaultPageSize:    20,
		MaxPageSize:        100,
	}
}

// HasStatus reports whether status is part of the configured order pipeline.
func (c WorkflowConfig) HasStatus(status string) bool {
	for _, s := range c.OrderStatuses {
		if strings.EqualFold(s, strings.TrimSpace(status)) {
			return true
		}
	}
	return false
}

func (c WorkflowConfig) HasPriority(priority string) bool {
	for _, p := range c.Priorities {
		if strings.EqualFold(p, strings.TrimSpace(priority)) {
			return true
		}
	}
	return false
}

type WorkflowConfigHolder struct {
	current atomic.Value // holds WorkflowConfig
}

func NewWorkflowConfigHolder() (*WorkflowConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("workflow")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pressroom")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRESSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setWorkflowDefaults(v)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeWorkflowConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticWorkflowConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeWorkflowConfig(v)
		if err != nil {
			log.Printf("[workflow-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[workflow-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticWorkflowConfigHolder wraps a fixed configuration.
func NewStaticWorkflowConfigHolder(cfg WorkflowConfig) *WorkflowConfigHolder {
	holder := &WorkflowConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *WorkflowConfigHolder) Get() WorkflowConfig {
	if h == nil {
		return DefaultWorkflowConfig()
	}
	return h.current.Load().(WorkflowConfig)
}

func setWorkflowDefaults(v *viper.Viper) {
	defaults := DefaultWorkflowConfig()
	v.SetDefault("workflow.orderStatuses", defaults.OrderStatuses)
	v.SetDefault("workflow.priorities", defaults.Priorities)
	v.SetDefault("workflow.maxAssignees", defaults.MaxAssignees)
	v.SetDefault("workflow.descriptionLimit", defaults.DescriptionLimit)
	v.SetDefault("workflow.paymentMethodLimit", defaults.PaymentMethodLimit)
	v.SetDefault("workflow.invoiceDueDays", defaults.InvoiceDueDays)
	v.SetDefault("workflow.cascadePolicy", defaults.CascadePolicy)
	v.SetDefault("workflow.defaultPageSize", defaults.DefaultPageSize)
	v.SetDefault("workflow.maxPageSize", defaults.MaxPageSize)
}

func decodeWorkflowConfig(v *viper.Viper) (WorkflowConfig, error) {
	var cfg WorkflowConfig
	if err := v.UnmarshalKey("workflow", &cfg); err != nil {
		return WorkflowConfig{}, err
	}
	cfg.CascadePolicy = strings.ToLower(strings.TrimSpace(cfg.CascadePolicy))
	if err := validateWorkflowConfig(cfg); err != nil {
		return WorkflowConfig{}, err
	}
	return cfg, nil
}

func validateWorkflowConfig(cfg WorkflowConfig) error {
	if len(cfg.OrderStatuses) == 0 {
		return errors.New("workflow.orderStatuses cannot be empty")
	}
	if len(cfg.Priorities) == 0 {
		return errors.New("workflow.priorities cannot be empty")
	}
	if cfg.MaxAssignees <= 0 {
		return errors.New("workflow.maxAssignees must be positive")
	}
	if cfg.DescriptionLimit <= 0 || cfg.PaymentMethodLimit <= 0 {
		return errors.New("workflow truncation limits must be positive")
	}
	if cfg.DefaultPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return errors.New("workflow page sizes are inconsistent")
	}
	switch cfg.CascadePolicy {
	case CascadeStrict, CascadeBestEffort:
	default:
		return fmt.Errorf("workflow.cascadePolicy %q is not one of %s, %s", cfg.CascadePolicy, CascadeStrict, CascadeBestEffort)
	}
	return nil
}
