package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/spf13/cobra"
)

var (
	showLast        int
	showDescription bool
)

var checkCmd = &cobra.Command{
	Use:   "check-stock",
	Short: "List products running low on stock",
	Long: `Lists the products whose stock is below the low-stock threshold,
lowest stock first, together with their rating so restocking can be
prioritised.`,
	RunE: checkStock,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().IntVar(&showLast, "last", 10, "Number of products to show")
	checkCmd.Flags().BoolVar(&showDescription, "show-description", false, "Show product descriptions")
}

func checkStock(cmd *cobra.Command, args []string) error {
	fmt.Printf("🔍 Checking products with less than %d units in stock...\n", models.LowStockThreshold)

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := lowStockReport(cmd.Context(), store.New(db), showLast)
	if err != nil {
		return fmt.Errorf("failed to fetch low-stock products: %w", err)
	}

	if len(report) == 0 {
		fmt.Println("📭 No products are running low")
		return nil
	}

	fmt.Printf("\n📋 Found %d product%s running low:\n", len(report), pluralize(len(report)))
	fmt.Println(strings.Repeat("─", 80))

	for i, line := range report {
		p := line.product
		fmt.Printf("\n📦 #%d - %s (id %d)\n", i+1, p.Name, p.ID)
		fmt.Printf("   📊 Stock: %d | Price: %s | Category: %s\n", p.Stock, p.Price.StringFixed(2), p.Category)
		if avg, ok := line.rating.Average(); ok {
			fmt.Printf("   ⭐ Rating: %s (%d review%s)\n", avg.StringFixed(1), line.rating.Count, pluralize(line.rating.Count))
		}
		if p.Stock == 0 {
			fmt.Println("   🚫 Sold out")
		}
		if showDescription && p.Description != "" {
			fmt.Printf("   📝 %s\n", truncate(p.Description, 100))
		}
	}

	fmt.Printf("\n💡 Use --show-description flag to see product descriptions\n")
	return nil
}

type stockLine struct {
	product models.Product
	rating  models.RatingSummary
}

// lowStockReport returns at most limit low-stock products, lowest stock first
func lowStockReport(ctx context.Context, st *store.Store, limit int) ([]stockLine, error) {
	products, err := st.ListProducts(ctx, store.ProductFilter{LowStockOnly: true, Ordering: "stock"})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	ratings, err := st.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := make([]stockLine, 0, len(products))
	for _, p := range products {
		report = append(report, stockLine{product: p, rating: ratings[p.ID]})
	}
	return report, nil
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
