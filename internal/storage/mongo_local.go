package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type guestCart struct {
	SessionID string       `bson:"session_id"`
	Items     []*guestLine `bson:"items"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// guestLine keeps the price as a decimal string so no precision is lost in
// BSON doubles.
type guestLine struct {
	ProductID  string `bson:"product_id"`
	Name       string `bson:"name"`
	Quantity   int    `bson:"quantity"`
	UnitPrice  string `bson:"unit_price"`
	VariantSKU string `bson:"variant_sku,omitempty"`
	Image      string `bson:"image,omitempty"`
	Color      string `bson:"color,omitempty"`
	Size       string `bson:"size,omitempty"`
	Model      string `bson:"model,omitempty"`
	ModelName  string `bson:"model_name,omitempty"`
}

type MongoLocalStore struct {
	collection *mongo.Collection
}

func NewMongoLocalStore(db *mongo.Database) *MongoLocalStore {
	return &MongoLocalStore{
		collection: db.Collection("guest_carts"),
	}
}

// GetCart returns the guest cart, empty when none was saved. Null entries
// written by older clients are skipped.
func (m *MongoLocalStore) GetCart(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	var doc guestCart
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item == nil {
			continue
		}
		line, err := item.toDomain()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *MongoLocalStore) SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error {
	items := make([]*guestLine, len(lines))
	for i, l := range lines {
		items[i] = fromDomain(l)
	}

	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"session_id": sessionID,
		"items":      items,
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

// ClearCart removes the guest cart. Clearing a missing cart is not an error.
func (m *MongoLocalStore) ClearCart(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}

func (m *MongoLocalStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func fromDomain(l domain.CartLine) *guestLine {
	return &guestLine{
		ProductID:  l.ProductID,
		Name:       l.Name,
		Quantity:   l.Quantity,
		UnitPrice:  l.UnitPrice.String(),
		VariantSKU: l.VariantSKU,
		Image:      l.Image,
		Color:      l.Color,
		Size:       l.Size,
		Model:      l.Model,
		ModelName:  l.ModelName,
	}
}

func (g *guestLine) toDomain() (domain.CartLine, error) {
	price := decimal.Zero
	if g.UnitPrice != "" {
		p, err := decimal.NewFromString(g.UnitPrice)
		if err != nil {
			return domain.CartLine{}, fmt.Errorf("invalid price for product %s: %w", g.ProductID, err)
		}
		price = p
	}
	return domain.CartLine{
		ProductID:  g.ProductID,
		Name:       g.Name,
		Quantity:   g.Quantity,
		UnitPrice:  price,
		VariantSKU: g.VariantSKU,
		Image:      g.Image,
		Color:      g.Color,
		Size:       g.Size,
		Model:      g.Model,
		ModelName:  g.ModelName,
	}, nil
}
