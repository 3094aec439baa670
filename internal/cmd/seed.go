package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/matthieukhl/backoffice/internal/inventory"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	skipOrders bool
	orderCount int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with sample data",
	Long: `Creates sample customers, products, orders and reviews.

Orders go through the regular order workflow, so product stock is
reduced exactly as it would be for orders placed over the API.`,
	RunE: seed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&skipOrders, "catalog-only", false, "Create customers and products only, skip orders and reviews")
	seedCmd.Flags().IntVar(&orderCount, "orders", 50, "Number of sample orders to place")
}

func seed(cmd *cobra.Command, args []string) error {
	fmt.Println("🌱 Seeding database...")

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if err := db.SetupSchema(ctx); err != nil {
		return fmt.Errorf("failed to setup schema: %w", err)
	}

	st := store.New(db)
	engine := orders.NewEngine(st, inventory.NewLedger(), zap.NewNop())
	if err := populateSampleData(ctx, st, engine, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to populate sample data: %w", err)
	}

	fmt.Println("✅ Sample data loaded!")
	return nil
}

type sampleCatalog struct {
	customers []*models.Customer
	products  []*models.Product
}

func populateSampleData(ctx context.Context, st *store.Store, engine *orders.Engine, now time.Time) error {
	var catalog sampleCatalog

	fmt.Println("   👥 Creating customers...")
	if err := createCustomers(ctx, st, now, &catalog); err != nil {
		return err
	}

	fmt.Println("   📦 Creating products...")
	if err := createProducts(ctx, st, now, &catalog); err != nil {
		return err
	}

	if skipOrders {
		return nil
	}

	fmt.Println("   🛒 Placing orders...")
	if err := createOrders(ctx, engine, &catalog); err != nil {
		return err
	}

	fmt.Println("   ⭐ Writing reviews...")
	return createReviews(ctx, st, now, &catalog)
}

func createCustomers(ctx context.Context, st *store.Store, now time.Time, catalog *sampleCatalog) error {
	customers := []struct {
		email, name, phone, address string
	}{
		{"john.doe@email.com", "John Doe", "+1 212 555 0101", "New York, USA"},
		{"jane.smith@gmail.com", "Jane Smith", "+44 20 7946 0102", "London, UK"},
		{"bob.wilson@yahoo.com", "Bob Wilson", "+1 416 555 0103", "Toronto, Canada"},
		{"alice.brown@hotmail.com", "Alice Brown", "+61 2 5550 0104", "Sydney, Australia"},
		{"charlie.davis@outlook.com", "Charlie Davis", "+49 30 5550 0105", "Berlin, Germany"},
		{"diana.miller@company.com", "Diana Miller", "+81 3 5550 0106", "Tokyo, Japan"},
		{"frank.garcia@startup.io", "Frank Garcia", "+1 415 555 0107", "San Francisco, USA"},
		{"grace.lee@enterprise.com", "Grace Lee", "+82 2 5550 0108", "Seoul, South Korea"},
		{"henry.taylor@business.net", "Henry Taylor", "+33 1 5550 0109", "Paris, France"},
		{"ivy.anderson@firm.org", "Ivy Anderson", "+46 8 5550 0110", "Stockholm, Sweden"},
	}

	for i, c := range customers {
		customer := &models.Customer{
			Name:      c.name,
			Email:     c.email,
			Phone:     c.phone,
			Address:   c.address,
			CreatedAt: now.AddDate(0, 0, -(i*37)%365),
		}
		if err := st.CreateCustomer(ctx, customer); err != nil {
			return fmt.Errorf("failed to create customer %s: %w", c.email, err)
		}
		catalog.customers = append(catalog.customers, customer)
	}
	return nil
}

func createProducts(ctx context.Context, st *store.Store, now time.Time, catalog *sampleCatalog) error {
	products := []struct {
		name, description string
		category          models.Category
		price             string
		stock             int
	}{
		{"Laptop Pro 15\"", "High-performance laptop for professionals", models.CategoryElectronics, "1299.99", 50},
		{"Wireless Mouse", "Ergonomic wireless mouse with USB receiver", models.CategoryElectronics, "29.99", 200},
		{"Programming Book", "Complete guide to modern software development", models.CategoryBooks, "49.99", 100},
		{"Cotton T-Shirt", "Premium cotton t-shirt, multiple sizes", models.CategoryClothing, "19.99", 500},
		{"Running Shoes", "Professional running shoes for athletes", models.CategoryOther, "89.99", 150},
		{"Coffee Mug", "Ceramic coffee mug with company logo", models.CategoryHome, "9.99", 300},
		{"Smartphone Case", "Protective case for latest smartphone models", models.CategoryElectronics, "24.99", 400},
		{"Cookbook Collection", "Collection of international recipes", models.CategoryBooks, "34.99", 75},
		{"Winter Jacket", "Warm winter jacket, waterproof material", models.CategoryClothing, "129.99", 80},
		{"Yoga Mat", "Non-slip yoga mat for home workouts", models.CategoryOther, "39.99", 120},
		{"LED Desk Lamp", "Adjustable LED lamp for office use", models.CategoryHome, "59.99", 60},
		{"Tablet Stand", "Adjustable stand for tablets and phones", models.CategoryElectronics, "19.99", 180},
		{"Mystery Novel", "Bestselling mystery novel by famous author", models.CategoryBooks, "12.99", 250},
		{"Business Shirt", "Professional dress shirt for business", models.CategoryClothing, "39.99", 200},
		{"Tennis Racket", "Professional tennis racket for tournaments", models.CategoryOther, "199.99", 8},
	}

	for i, p := range products {
		created := now.AddDate(0, 0, -(i*13)%180)
		product := &models.Product{
			Name:        p.name,
			Description: p.description,
			Price:       decimal.RequireFromString(p.price),
			Category:    p.category,
			Stock:       p.stock,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		if err := st.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.name, err)
		}
		catalog.products = append(catalog.products, product)
	}
	return nil
}

func createOrders(ctx context.Context, engine *orders.Engine, catalog *sampleCatalog) error {
	for i := 0; i < orderCount; i++ {
		customer := catalog.customers[i%len(catalog.customers)]

		// 2-4 lines per order, spread across the catalogue
		lineCount := 2 + (i % 3)
		lines := make([]orders.LineItem, 0, lineCount)
		for item := 0; item < lineCount; item++ {
			product := catalog.products[(item*3+i)%len(catalog.products)]
			lines = append(lines, orders.LineItem{ProductID: product.ID, Quantity: 1 + (item % 3)})
		}

		if _, err := engine.CreateOrder(ctx, customer.ID, lines); err != nil {
			// sold-out products are expected once the catalogue drains
			fmt.Printf("   ⚠️  Skipped order %d: %v\n", i+1, err)
		}
	}
	return nil
}

func createReviews(ctx context.Context, st *store.Store, now time.Time, catalog *sampleCatalog) error {
	comments := []string{
		"Does exactly what it says.",
		"Good value for the price.",
		"Arrived quickly, well packaged.",
		"Not what I expected.",
		"Would buy again.",
	}

	for i, customer := range catalog.customers {
		for j := 0; j < 3; j++ {
			product := catalog.products[(i+j*5)%len(catalog.products)]
			review := &models.Review{
				ProductID:  product.ID,
				CustomerID: customer.ID,
				Rating:     models.MinRating + (i+j)%models.MaxRating,
				Comment:    comments[(i+j)%len(comments)],
				CreatedAt:  now,
			}
			if err := st.CreateReview(ctx, review); err != nil {
				return fmt.Errorf("failed to create review: %w", err)
			}
		}
	}
	return nil
}
