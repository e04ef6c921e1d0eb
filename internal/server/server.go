package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/pressroom/internal/auth/session"
	"github.com/smallbiznis/pressroom/internal/authorization"
	"github.com/smallbiznis/pressroom/internal/config"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	"github.com/smallbiznis/pressroom/internal/observability"
	obsmiddleware "github.com/smallbiznis/pressroom/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pressroom/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pressroom/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/pressroom/internal/order/domain"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", HeaderOrg},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	sessions        *session.Manager
	authzSvc        authorization.Service
	quoteSvc        quotedomain.Service
	invoiceSvc      invoicedomain.Service
	orderSvc        orderdomain.Service
	customerSvc     customerdomain.Service
	productSvc      productdomain.Service
	staffSvc        staffdomain.Service
	organizationSvc organizationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Sessions        *session.Manager
	AuthzSvc        authorization.Service
	QuoteSvc        quotedomain.Service
	InvoiceSvc      invoicedomain.Service
	OrderSvc        orderdomain.Service
	CustomerSvc     customerdomain.Service
	ProductSvc      productdomain.Service
	StaffSvc        staffdomain.Service
	OrganizationSvc organizationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		sessions:        p.Sessions,
		authzSvc:        p.AuthzSvc,
		quoteSvc:        p.QuoteSvc,
		invoiceSvc:      p.InvoiceSvc,
		orderSvc:        p.OrderSvc,
		customerSvc:     p.CustomerSvc,
		productSvc:      p.ProductSvc,
		staffSvc:        p.StaffSvc,
		organizationSvc: p.OrganizationSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	documents := api.Group("/documents")
	{
		quotes := documents.Group("/quotes")
		quotes.GET("", s.authorizeOrgAction(authorization.ObjectQuote, authorization.ActionQuoteView), s.ListQuotes)
		quotes.POST("", s.authorizeOrgAction(authorization.ObjectQuote, authorization.ActionQuoteCreate), s.CreateQuote)
		quotes.PUT("", s.authorizeOrgAction(authorization.ObjectQuote, authorization.ActionQuoteUpdate), s.UpdateQuote)
		quotes.DELETE("", s.authorizeOrgAction(authorization.ObjectQuote, authorization.ActionQuoteDelete), s.DeleteQuotes)

		invoices := documents.Group("/invoices")
		invoices.GET("", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
		invoices.POST("", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
		invoices.PUT("", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.UpdateInvoice)
		invoices.DELETE("", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeleteInvoices)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderView), s.ListOrders)
		orders.POST("", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderCreate), s.CreateOrder)
		orders.DELETE("", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderDelete), s.DeleteOrders)
		orders.GET("/:id", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderView), s.GetOrderByID)
		orders.PATCH("/:id/status", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderUpdateStatus), s.UpdateOrderStatus)
		orders.GET("/:id/tracking", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionOrderView), s.GetOrderTracking)
	}

	customers := api.Group("/customers")
	{
		customers.GET("", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
		customers.POST("", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
		customers.GET("/:id", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomerByID)
	}

	products := api.Group("/products")
	{
		products.GET("", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionProductView), s.ListProducts)
		products.POST("", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionProductCreate), s.CreateProduct)
		products.GET("/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionProductView), s.GetProductByID)
		products.PATCH("/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionProductUpdate), s.UpdateProduct)
	}

	agents := api.Group("/agents")
	{
		agents.GET("", s.authorizeOrgAction(authorization.ObjectAgent, authorization.ActionAgentView), s.ListAgents)
		agents.POST("", s.authorizeOrgAction(authorization.ObjectAgent, authorization.ActionAgentCreate), s.CreateAgent)
	}

	departments := api.Group("/departments")
	{
		departments.GET("", s.authorizeOrgAction(authorization.ObjectDepartment, authorization.ActionDepartmentView), s.ListDepartments)
		departments.POST("", s.authorizeOrgAction(authorization.ObjectDepartment, authorization.ActionDepartmentCreate), s.CreateDepartment)
	}

	users := api.Group("/users")
	{
		users.GET("", s.authorizeOrgAction(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
		users.POST("", s.authorizeOrgAction(authorization.ObjectUser, authorization.ActionUserCreate), s.CreateUser)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
