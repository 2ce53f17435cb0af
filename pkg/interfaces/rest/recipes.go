package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/services"
)

type bomLineRequest struct {
	ItemID             string   `json:"item_id" binding:"required"`
	Qty                float64  `json:"qty" binding:"required"`
	CookFactorOverride *float64 `json:"cook_factor_override"`
	Position           int      `json:"position"` // 0 = assign the lowest free slot
}

// conflictPolicy maps the request's on_conflict field onto a registry policy.
// The default relocates the occupant to the next free position.
func conflictPolicy(c *gin.Context) services.ConflictPolicy {
	switch strings.ToLower(c.Query("on_conflict")) {
	case "reject":
		return services.RejectPolicy{}
	default:
		return services.AutoRelocatePolicy{}
	}
}

func (s *Server) registerRecipeRoutes(v1 *gin.RouterGroup) {
	recipes := v1.Group("/recipes")
	recipes.POST("", s.createRecipe)
	recipes.GET("/:id", s.getRecipe)
	recipes.POST("/:id/lines", s.addRecipeLine)
	recipes.PUT("/:id/lines/:item", s.updateRecipeLine)
	recipes.DELETE("/:id/lines/:item", s.removeRecipeLine)
	recipes.POST("/:id/lines/:item/reposition", s.repositionRecipeLine)
	recipes.POST("/:id/heal", s.healRecipe)
}

func (s *Server) createRecipe(c *gin.Context) {
	var req struct {
		ProductCode string `json:"product_code" binding:"required"`
		Method      string `json:"method"`
		PhotoRef    string `json:"photo_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := s.catalog.GetItemByCode(ctx, entities.ItemCode(req.ProductCode))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if product.Kind != entities.FinishedGood {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "recipes belong to finished goods"})
		return
	}

	recipe, err := entities.NewRecipe(entities.RecipeID(uuid.NewString()), product.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipe.Method = req.Method
	recipe.PhotoRef = req.PhotoRef

	if err := s.catalog.SaveRecipe(ctx, recipe); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (s *Server) getRecipe(c *gin.Context) {
	recipe, err := s.catalog.GetRecipe(c.Request.Context(), entities.RecipeID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// mutateRecipe loads the recipe, applies fn through a registry, and saves.
func (s *Server) mutateRecipe(c *gin.Context, fn func(reg *services.RecipeRegistry) error) {
	ctx := c.Request.Context()
	recipe, err := s.catalog.GetRecipe(ctx, entities.RecipeID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}

	reg := services.NewRecipeRegistry(recipe, conflictPolicy(c))
	if err := fn(reg); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.catalog.SaveRecipe(ctx, recipe); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (s *Server) addRecipeLine(c *gin.Context) {
	var req bomLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mutateRecipe(c, func(reg *services.RecipeRegistry) error {
		return reg.AddLine(entities.ItemID(req.ItemID), req.Qty, req.CookFactorOverride, req.Position)
	})
}

func (s *Server) updateRecipeLine(c *gin.Context) {
	var req struct {
		Qty                float64  `json:"qty" binding:"required"`
		CookFactorOverride *float64 `json:"cook_factor_override"`
		Position           int      `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mutateRecipe(c, func(reg *services.RecipeRegistry) error {
		return reg.UpdateLine(entities.ItemID(c.Param("item")), req.Qty, req.CookFactorOverride, req.Position)
	})
}

func (s *Server) removeRecipeLine(c *gin.Context) {
	s.mutateRecipe(c, func(reg *services.RecipeRegistry) error {
		return reg.RemoveLine(entities.ItemID(c.Param("item")))
	})
}

func (s *Server) repositionRecipeLine(c *gin.Context) {
	var req struct {
		Position int `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mutateRecipe(c, func(reg *services.RecipeRegistry) error {
		return reg.Reposition(entities.ItemID(c.Param("item")), req.Position)
	})
}

func (s *Server) healRecipe(c *gin.Context) {
	s.mutateRecipe(c, func(reg *services.RecipeRegistry) error {
		reg.Heal()
		return nil
	})
}
