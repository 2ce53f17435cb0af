package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/domain/services"
)

type selectionRequest struct {
	Selections []struct {
		RecipeID string `json:"recipe_id" binding:"required"`
		Quantity int    `json:"quantity" binding:"required"`
	} `json:"selections" binding:"required"`
}

func (r selectionRequest) toSelections() []dto.Selection {
	selections := make([]dto.Selection, 0, len(r.Selections))
	for _, s := range r.Selections {
		selections = append(selections, dto.Selection{
			RecipeID: entities.RecipeID(s.RecipeID),
			Quantity: s.Quantity,
		})
	}
	return selections
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.catalog.AllItems(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createItem(c *gin.Context) {
	var req struct {
		Name       string  `json:"name" binding:"required"`
		Kind       string  `json:"kind" binding:"required"`
		Unit       string  `json:"unit" binding:"required"`
		Stock      float64 `json:"stock"`
		MinStock   float64 `json:"min_stock"`
		UnitCost   string  `json:"unit_cost"`
		SalePrice  string  `json:"sale_price"`
		LossPct    float64 `json:"loss_pct"`
		CookFactor float64 `json:"cook_factor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var kind entities.ItemKind
	switch req.Kind {
	case "MP":
		kind = entities.RawMaterial
	case "PF":
		kind = entities.FinishedGood
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be MP or PF"})
		return
	}

	unit, err := entities.ParseUnit(req.Unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := s.catalog.AllItems(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	codes := make([]entities.ItemCode, 0, len(existing))
	for _, item := range existing {
		codes = append(codes, item.Code)
	}

	// lowest free number for the kind's prefix; deleted codes are reused
	code := services.NextItemCode(kind, codes)

	item, err := entities.NewItem(entities.ItemID(uuid.NewString()), code, req.Name, kind, unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item.Stock = req.Stock
	item.MinStock = req.MinStock
	item.LossPct = req.LossPct
	if req.CookFactor > 0 {
		item.CookFactor = req.CookFactor
	}
	if req.UnitCost != "" {
		if item.UnitCost, err = decimal.NewFromString(req.UnitCost); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.SalePrice != "" {
		if item.SalePrice, err = decimal.NewFromString(req.SalePrice); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.catalog.SaveItem(ctx, item); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) deleteItem(c *gin.Context) {
	ctx := c.Request.Context()
	item, err := s.catalog.GetItemByCode(ctx, entities.ItemCode(c.Param("code")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.catalog.DeleteItem(ctx, item.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getItem(c *gin.Context) {
	item, err := s.catalog.GetItemByCode(c.Request.Context(), entities.ItemCode(c.Param("code")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) simulate(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.planner.Simulate(c.Request.Context(), req.toSelections())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveSimulation(len(result.ShortLines()))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) batchSelect(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.batch.Select(req.toSelections()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selections": len(req.Selections)})
}

func (s *Server) batchCalculate(c *gin.Context) {
	result, err := s.batch.Calculate(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveSimulation(len(result.ShortLines()))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) batchCommit(c *gin.Context) {
	result, err := s.batch.Commit(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		for range result.Orders {
			s.collector.ObserveOrderCreated("production")
		}
		if result.PurchaseOrder != nil {
			s.collector.ObserveOrderCreated("purchase")
		}
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) batchClear(c *gin.Context) {
	s.batch.Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) createProductionOrder(c *gin.Context) {
	var req struct {
		RecipeID          string `json:"recipe_id" binding:"required"`
		Quantity          int    `json:"quantity" binding:"required"`
		Note              string `json:"note"`
		AllowInsufficient bool   `json:"allow_insufficient"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.production.Create(c.Request.Context(),
		entities.RecipeID(req.RecipeID), req.Quantity, req.Note, req.AllowInsufficient)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveOrderCreated("production")
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listProductionOrders(c *gin.Context) {
	filter := repositories.OrderFilter{IncludeArchived: c.Query("archived") == "true"}
	orders, err := s.production.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) getProductionOrder(c *gin.Context) {
	order, err := s.production.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) transitionProductionOrder(c *gin.Context) {
	var req struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := entities.NormalizeProductionStatus(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.production.Transition(c.Request.Context(), c.Param("id"), target)
	if err != nil {
		// a refused start still carries the shortage table and any
		// auto-generated purchase order
		if errors.Is(err, entities.ErrInsufficientStock) && result != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "result": result})
			return
		}
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveTransition("production", target.String())
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) archiveProductionOrder(c *gin.Context) {
	var req struct {
		Archived *bool `json:"archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.production.SetArchived(c.Request.Context(), c.Param("id"), *req.Archived)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deleteProductionOrder(c *gin.Context) {
	if err := s.production.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createPurchaseOrder(c *gin.Context) {
	var req struct {
		Lines []struct {
			ItemID string  `json:"item_id" binding:"required"`
			Qty    float64 `json:"qty" binding:"required"`
		} `json:"lines" binding:"required"`
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requests := make([]purchasing.LineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		requests = append(requests, purchasing.LineRequest{
			ItemID: entities.ItemID(line.ItemID),
			Qty:    line.Qty,
		})
	}

	order, err := s.purchasing.Create(c.Request.Context(), requests, req.Note, "")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveOrderCreated("purchase")
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listPurchaseOrders(c *gin.Context) {
	filter := repositories.OrderFilter{IncludeArchived: c.Query("archived") == "true"}
	orders, err := s.purchasing.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) getPurchaseOrder(c *gin.Context) {
	order, err := s.purchasing.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) receivePurchaseOrder(c *gin.Context) {
	var req struct {
		Receipts map[string]float64 `json:"receipts" binding:"required"`
		Finalize bool               `json:"finalize"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipts := make(map[entities.ItemID]float64, len(req.Receipts))
	for id, qty := range req.Receipts {
		receipts[entities.ItemID(id)] = qty
	}

	result, err := s.purchasing.Receive(c.Request.Context(), c.Param("id"), receipts, req.Finalize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveTransition("purchase", result.Order.Status.String())
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) adjustPurchaseOrder(c *gin.Context) {
	var req struct {
		ItemID string  `json:"item_id" binding:"required"`
		Delta  float64 `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, missing, err := s.purchasing.Adjust(c.Request.Context(), c.Param("id"),
		entities.ItemID(req.ItemID), req.Delta)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "missing": missing})
}

func (s *Server) spawnFollowUp(c *gin.Context) {
	var req struct {
		Missing []struct {
			ItemID string  `json:"item_id" binding:"required"`
			Qty    float64 `json:"qty" binding:"required"`
		} `json:"missing" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	missing := make([]dto.MissingQuantity, 0, len(req.Missing))
	for _, m := range req.Missing {
		missing = append(missing, dto.MissingQuantity{
			ItemID: entities.ItemID(m.ItemID),
			Qty:    m.Qty,
		})
	}

	order, err := s.purchasing.SpawnFollowUp(c.Request.Context(), c.Param("id"), missing)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveOrderCreated("purchase")
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) cancelPurchaseOrder(c *gin.Context) {
	order, err := s.purchasing.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if s.collector != nil {
		s.collector.ObserveTransition("purchase", order.Status.String())
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) archivePurchaseOrder(c *gin.Context) {
	var req struct {
		Archived *bool `json:"archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.purchasing.SetArchived(c.Request.Context(), c.Param("id"), *req.Archived)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) removePurchaseLine(c *gin.Context) {
	order, err := s.purchasing.RemoveLine(c.Request.Context(), c.Param("id"),
		entities.ItemID(c.Param("item")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deletePurchaseOrder(c *gin.Context) {
	if err := s.purchasing.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
