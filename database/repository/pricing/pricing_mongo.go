package pricingRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lokals/database"
	"lokals/models"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

const catalogCacheTTL = 5 * time.Minute

// MongoPricingRepo implements PricingRepository using MongoDB, with a Redis
// read-through cache on catalog entries (the hottest lookup).
type MongoPricingRepo struct {
	catalogColl *mongo.Collection
	dynamicColl *mongo.Collection
	demandColl  *mongo.Collection
	surgeColl   *mongo.Collection
	availColl   *mongo.Collection
	cache       *redis.Client
}

// NewMongoPricingRepo creates a new PricingRepository backed by MongoDB.
// cache may be nil, in which case every lookup goes straight to the store.
func NewMongoPricingRepo(cache *redis.Client) PricingRepository {
	db := database.MongoClient.Database("lokals")
	return &MongoPricingRepo{
		catalogColl: db.Collection("service_catalog"),
		dynamicColl: db.Collection("dynamic_prices"),
		demandColl:  db.Collection("demand_multipliers"),
		surgeColl:   db.Collection("location_surge"),
		availColl:   db.Collection("service_availability"),
		cache:       cache,
	}
}

func (r *MongoPricingRepo) GetCatalogEntry(ctx context.Context, code string) (*models.ServiceCatalogEntry, error) {
	cacheKey := "catalog:" + code
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entry models.ServiceCatalogEntry
			if err := json.Unmarshal([]byte(raw), &entry); err == nil {
				return &entry, nil
			}
		}
	}

	var entry models.ServiceCatalogEntry
	if err := r.catalogColl.FindOne(ctx, bson.M{"code": code, "active": true}).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch catalog entry %s: %w", code, err)
	}

	if r.cache != nil {
		if raw, err := json.Marshal(entry); err == nil {
			r.cache.Set(ctx, cacheKey, raw, catalogCacheTTL)
		}
	}
	return &entry, nil
}

func (r *MongoPricingRepo) GetDynamicPrice(ctx context.Context, code string) (*models.DynamicPrice, error) {
	var price models.DynamicPrice
	err := r.dynamicColl.FindOne(ctx, bson.M{"service_code": code}).Decode(&price)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dynamic price for %s: %w", code, err)
	}
	return &price, nil
}

func (r *MongoPricingRepo) GetDemandMultiplier(ctx context.Context, code string) (*float64, error) {
	var doc struct {
		Multiplier float64 `bson:"multiplier"`
	}
	err := r.demandColl.FindOne(ctx, bson.M{"service_code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch demand multiplier for %s: %w", code, err)
	}
	return &doc.Multiplier, nil
}

func (r *MongoPricingRepo) GetLocationSurge(ctx context.Context, locationID string) (*float64, error) {
	var doc struct {
		Multiplier float64 `bson:"multiplier"`
	}
	err := r.surgeColl.FindOne(ctx, bson.M{"location_id": locationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch surge for location %s: %w", locationID, err)
	}
	return &doc.Multiplier, nil
}

func (r *MongoPricingRepo) GetServiceAvailability(ctx context.Context, serviceCategory, city string) (bool, error) {
	var doc struct {
		Status string `bson:"status"`
	}
	err := r.availColl.FindOne(ctx, bson.M{
		"service_category": serviceCategory,
		"location_type":    "city",
		"location_value":   city,
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// No availability record means the service is open everywhere.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch availability for %s in %s: %w", serviceCategory, city, err)
	}
	return doc.Status == "ENABLED", nil
}
