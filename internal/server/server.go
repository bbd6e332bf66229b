package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/config"
	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/observability"
	obsmiddleware "github.com/AdrianPopi/acont/internal/observability/logger"
	obsmetrics "github.com/AdrianPopi/acont/internal/observability/metrics"
	obstracing "github.com/AdrianPopi/acont/internal/observability/tracing"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/AdrianPopi/acont/internal/providers/pdf"
	"github.com/AdrianPopi/acont/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{ErrorClassifier: classifyErrorForLog}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
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
			log.Info("http server listening", zap.String("addr", addr))
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	invoiceSvc    invoicedomain.Service
	creditNoteSvc creditnotedomain.Service
	clientSvc     clientdomain.Service
	productSvc    productdomain.Service
	pdf           pdf.Provider
	seller        pdf.Party
	obsMetrics    *obsmetrics.Metrics
	issueLimiter  *ratelimit.IssuanceLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	InvoiceSvc    invoicedomain.Service
	CreditNoteSvc creditnotedomain.Service
	ClientSvc     clientdomain.Service
	ProductSvc    productdomain.Service
	PDF           pdf.Provider
	ObsMetrics    *obsmetrics.Metrics        `optional:"true"`
	IssueLimiter  *ratelimit.IssuanceLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		invoiceSvc:    p.InvoiceSvc,
		creditNoteSvc: p.CreditNoteSvc,
		clientSvc:     p.ClientSvc,
		productSvc:    p.ProductSvc,
		pdf:           p.PDF,
		seller:        pdf.SellerFromConfig(p.Cfg.Seller),
		obsMetrics:    p.ObsMetrics,
		issueLimiter:  p.IssueLimiter,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(MerchantContext())

	issue := s.IssuanceRateLimit()
	guardInvoice := s.DocumentIssueGuard("invoice")
	guardCreditNote := s.DocumentIssueGuard("credit_note")

	api.POST("/clients", s.CreateClient)
	api.GET("/clients", s.ListClients)
	api.GET("/clients/:id", s.GetClientByID)

	api.POST("/products", s.CreateProduct)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	invoices := api.Group("/invoices")
	invoices.Use(docType("invoice"))
	invoices.POST("", issue, s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/meta", s.InvoiceMeta)
	invoices.GET("/:id", s.GetInvoiceByID)
	invoices.GET("/:id/pdf", s.RenderInvoicePDF)
	invoices.POST("/:id/issue", issue, guardInvoice, s.IssueInvoice)
	invoices.POST("/:id/pay", s.MarkInvoicePaid)
	invoices.POST("/:id/void", s.VoidInvoice)
	invoices.DELETE("/:id", s.DeleteInvoice)

	creditNotes := api.Group("/credit-notes")
	creditNotes.Use(docType("credit_note"))
	creditNotes.GET("/eligible-invoices", s.ListEligibleInvoices)
	creditNotes.GET("/source-invoice/:id", s.GetSourceInvoice)
	creditNotes.POST("", issue, s.CreateCreditNote)
	creditNotes.GET("", s.ListCreditNotes)
	creditNotes.GET("/meta", s.CreditNoteMeta)
	creditNotes.GET("/:id", s.GetCreditNoteByID)
	creditNotes.GET("/:id/pdf", s.RenderCreditNotePDF)
	creditNotes.POST("/:id/issue", issue, guardCreditNote, s.IssueCreditNote)
	creditNotes.POST("/:id/void", s.VoidCreditNote)
	creditNotes.DELETE("/:id", s.DeleteCreditNote)
}

// docType tags the request for access logs.
func docType(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("doc_type", name)
		c.Next()
	}
}
