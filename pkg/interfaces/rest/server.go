package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lbatista/fabrica/pkg/application/services/batch"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/infrastructure/metrics"
)

// Server exposes the planning engine over HTTP.
type Server struct {
	catalog    repositories.CatalogRepository
	planner    *planner.Service
	production *production.Service
	purchasing *purchasing.Service
	batch      *batch.Coordinator
	collector  *metrics.Collector
	log        *zap.Logger
}

// NewServer wires the HTTP surface.
func NewServer(
	catalog repositories.CatalogRepository,
	plan *planner.Service,
	prod *production.Service,
	purch *purchasing.Service,
	coord *batch.Coordinator,
	collector *metrics.Collector,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		catalog:    catalog,
		planner:    plan,
		production: prod,
		purchasing: purch,
		batch:      coord,
		collector:  collector,
		log:        log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.collector != nil {
		router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}

	v1 := router.Group("/api/v1")

	v1.GET("/items", s.listItems)
	v1.POST("/items", s.createItem)
	v1.GET("/items/:code", s.getItem)
	v1.DELETE("/items/:code", s.deleteItem)

	v1.POST("/simulate", s.simulate)

	s.registerRecipeRoutes(v1)

	batchGroup := v1.Group("/batch")
	batchGroup.POST("/select", s.batchSelect)
	batchGroup.GET("/calculate", s.batchCalculate)
	batchGroup.POST("/commit", s.batchCommit)
	batchGroup.POST("/clear", s.batchClear)

	prodGroup := v1.Group("/production-orders")
	prodGroup.POST("", s.createProductionOrder)
	prodGroup.GET("", s.listProductionOrders)
	prodGroup.GET("/:id", s.getProductionOrder)
	prodGroup.POST("/:id/transition", s.transitionProductionOrder)
	prodGroup.POST("/:id/archive", s.archiveProductionOrder)
	prodGroup.DELETE("/:id", s.deleteProductionOrder)

	purchGroup := v1.Group("/purchase-orders")
	purchGroup.POST("", s.createPurchaseOrder)
	purchGroup.GET("", s.listPurchaseOrders)
	purchGroup.GET("/:id", s.getPurchaseOrder)
	purchGroup.POST("/:id/receive", s.receivePurchaseOrder)
	purchGroup.POST("/:id/adjust", s.adjustPurchaseOrder)
	purchGroup.POST("/:id/follow-up", s.spawnFollowUp)
	purchGroup.POST("/:id/cancel", s.cancelPurchaseOrder)
	purchGroup.POST("/:id/archive", s.archivePurchaseOrder)
	purchGroup.DELETE("/:id/lines/:item", s.removePurchaseLine)
	purchGroup.DELETE("/:id", s.deletePurchaseOrder)

	return router
}

// writeError maps domain error kinds onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidQuantity),
		errors.Is(err, entities.ErrZeroFinalQuantity),
		errors.Is(err, entities.ErrBelowReceivedQuantity),
		errors.Is(err, entities.ErrPositionConflict):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrInsufficientStock),
		errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrCommitLocked):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
