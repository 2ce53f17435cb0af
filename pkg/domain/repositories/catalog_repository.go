package repositories

import (
	"context"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// CatalogRepository provides access to items and recipes.
type CatalogRepository interface {
	GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error)
	GetItemByCode(ctx context.Context, code entities.ItemCode) (*entities.Item, error)
	AllItems(ctx context.Context) ([]*entities.Item, error)
	SaveItem(ctx context.Context, item *entities.Item) error
	DeleteItem(ctx context.Context, id entities.ItemID) error

	GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error)
	RecipeForProduct(ctx context.Context, productID entities.ItemID) (*entities.Recipe, error)
	SaveRecipe(ctx context.Context, recipe *entities.Recipe) error
	DeleteRecipe(ctx context.Context, id entities.RecipeID) error
}
